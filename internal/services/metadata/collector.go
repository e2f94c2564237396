// Package metadata stamps stored events with platform and store details.
package metadata

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
)

// ErrNoSuchStore is returned by a StoreResolver when no default store is configured.
var ErrNoSuchStore = errors.New("no such store")

// Metadata keys.
const (
	KeyCommerceEdition     = "commerceEdition"
	KeyCommerceVersion     = "commerceVersion"
	KeyEventsClientVersion = "eventsClientVersion"
	KeyStoreID             = "storeId"
	KeyWebsiteID           = "websiteId"
	KeyStoreGroupID        = "storeGroupId"
)

var editions = map[string]string{
	"Community":  "Open Source",
	"Enterprise": "Adobe Commerce",
	"B2B":        "Adobe Commerce + B2B",
}

// Platform describes the running commerce platform.
type Platform struct {
	Edition       string
	Version       string
	ClientVersion string
}

// Store identifies the default store scope.
type Store struct {
	ID        string
	WebsiteID string
	GroupID   string
}

// StoreResolver returns the default store.
type StoreResolver interface {
	DefaultStore(ctx context.Context) (Store, error)
}

// Collector builds the metadata map once and serves it from cache until Refresh.
type Collector struct {
	platform Platform
	stores   StoreResolver
	logger   *slog.Logger

	mu       sync.Mutex
	metadata map[string]any
}

// NewCollector creates a new Collector.
func NewCollector(platform Platform, stores StoreResolver, logger *slog.Logger) *Collector {
	return &Collector{
		platform: platform,
		stores:   stores,
		logger:   logger.With("component", "metadata-collector"),
	}
}

// Metadata returns a copy of the cached metadata. It never fails: store
// identifiers are blank when the store cannot be resolved.
func (c *Collector) Metadata(ctx context.Context) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metadata == nil {
		c.metadata = c.load(ctx)
	}
	return maps.Clone(c.metadata)
}

// Refresh drops the cached metadata.
func (c *Collector) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata = nil
}

func (c *Collector) load(ctx context.Context) map[string]any {
	m := map[string]any{
		KeyCommerceEdition:     CommerceEdition(c.platform.Edition),
		KeyCommerceVersion:     c.platform.Version,
		KeyEventsClientVersion: c.platform.ClientVersion,
	}

	store, err := c.stores.DefaultStore(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSuchStore) {
			c.logger.Warn("failed to resolve default store", "error", err)
		}
		store = Store{}
	}

	m[KeyStoreID] = store.ID
	m[KeyWebsiteID] = store.WebsiteID
	m[KeyStoreGroupID] = store.GroupID
	return m
}

// CommerceEdition translates a platform edition into its product name.
// Unknown editions translate to an empty string.
func CommerceEdition(edition string) string {
	return editions[edition]
}

// StaticStore resolves the default store from fixed identifiers.
type StaticStore Store

// DefaultStore implements StoreResolver.
func (s StaticStore) DefaultStore(ctx context.Context) (Store, error) {
	if s.ID == "" {
		return Store{}, ErrNoSuchStore
	}
	return Store(s), nil
}
