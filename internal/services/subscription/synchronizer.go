package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Synchronizer keeps the event metadata registered under the configured
// provider in step with the catalog.
type Synchronizer struct {
	api     MetadataAPI
	store   ConfigStore
	catalog Catalog
	logger  *slog.Logger
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(api MetadataAPI, store ConfigStore, catalog Catalog, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		api:     api,
		store:   store,
		catalog: catalog,
		logger:  logger.With("service", "metadata-synchronizer"),
	}
}

// Run registers metadata for every catalog event that is not registered
// yet and returns one message per registration.
func (s *Synchronizer) Run(ctx context.Context) ([]string, error) {
	defs, err := s.catalog.Sorted()
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, nil
	}

	provider, err := s.store.ProviderID()
	if err != nil {
		return nil, err
	}
	if provider == "" {
		return nil, fmt.Errorf("cannot register events metadata. Run %s to configure an event provider: %w",
			CreateProviderCommand, ErrNoProvider)
	}

	registered, err := s.api.ListRegisteredEventMetadata(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("an error occurred while fetching previously registered events: %w", err)
	}
	known := make(map[string]struct{}, len(registered))
	for _, md := range registered {
		known[md.EventCode] = struct{}{}
	}

	var messages []string
	for _, def := range defs {
		code := events.WithPrefix(def.Name)
		if _, ok := known[code]; ok {
			continue
		}

		if err := s.api.CreateEventMetadata(ctx, provider, ioevents.MetadataFor(code)); err != nil {
			return messages, fmt.Errorf("an error occurred while registering metadata for event %s: %w", def.Name, err)
		}
		s.logger.Info("registered event metadata", "event_code", def.Name)
		messages = append(messages, fmt.Sprintf("Event metadata was registered for the event %q", def.Name))
	}
	return messages, nil
}

// SyncReport describes a full metadata synchronization.
type SyncReport struct {
	ProviderID string
	Declared   []ioevents.EventMetadata
	Updated    []ioevents.EventMetadata
	// Stale holds registered metadata that no catalog event declares.
	Stale   []ioevents.EventMetadata
	Deleted []ioevents.EventMetadata
	Failed  []ioevents.EventMetadata
}

// Sync registers metadata for every declared event, replacing what is
// already registered. Registered metadata no longer declared is reported as
// stale and deleted when deleteStale is set.
func (s *Synchronizer) Sync(ctx context.Context, deleteStale bool) (*SyncReport, error) {
	provider, err := providerID(s.store)
	if err != nil {
		return nil, err
	}

	declared, err := s.declared()
	if err != nil {
		return nil, err
	}

	registered, err := s.api.ListRegisteredEventMetadata(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered event metadata: %w", err)
	}

	report := &SyncReport{ProviderID: provider, Declared: declared}
	report.Stale = staleMetadata(registered, declared)

	for _, md := range declared {
		if err := s.api.CreateEventMetadata(ctx, provider, md); err != nil {
			return report, fmt.Errorf("failed to update metadata for %s: %w", md.EventCode, err)
		}
		report.Updated = append(report.Updated, md)
	}

	if !deleteStale {
		return report, nil
	}

	for _, md := range report.Stale {
		deleted, err := s.api.DeleteEventMetadata(ctx, provider, md)
		if err != nil || !deleted {
			s.logger.Warn("failed to delete event metadata", "event_code", md.EventCode, "error", err)
			report.Failed = append(report.Failed, md)
			continue
		}
		report.Deleted = append(report.Deleted, md)
	}
	return report, nil
}

func (s *Synchronizer) declared() ([]ioevents.EventMetadata, error) {
	defs, err := s.catalog.Sorted()
	if err != nil {
		return nil, err
	}

	out := make([]ioevents.EventMetadata, 0, len(defs))
	for _, def := range defs {
		out = append(out, ioevents.MetadataFor(events.WithPrefix(def.Name)))
	}
	return out, nil
}

func staleMetadata(registered, declared []ioevents.EventMetadata) []ioevents.EventMetadata {
	want := make(map[ioevents.EventMetadata]struct{}, len(declared))
	for _, md := range declared {
		want[md] = struct{}{}
	}

	var stale []ioevents.EventMetadata
	for _, md := range registered {
		if _, ok := want[md]; !ok {
			stale = append(stale, md)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].EventCode < stale[j].EventCode })
	return stale
}
