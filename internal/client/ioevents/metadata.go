package ioevents

import (
	"fmt"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// EventProvider is an I/O Events provider registered for a commerce instance.
type EventProvider struct {
	ID               string `json:"id"`
	InstanceID       string `json:"instance_id,omitempty"`
	Label            string `json:"label"`
	Description      string `json:"description,omitempty"`
	ProviderMetadata string `json:"provider_metadata,omitempty"`
}

// EventMetadata describes one event type registered under a provider.
type EventMetadata struct {
	EventCode   string `json:"event_code"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// MetadataFor builds the registration metadata for a prefixed event code.
func MetadataFor(code string) EventMetadata {
	name := events.StripPrefix(code)
	kind, rest := events.SplitType(name)

	label := "event" + code
	switch kind {
	case events.TypePlugin:
		label = fmt.Sprintf("Plugin event %s", rest)
	case events.TypeObserver:
		label = fmt.Sprintf("Observer event %s", rest)
	}

	return EventMetadata{
		EventCode:   code,
		Label:       label,
		Description: "event " + code,
	}
}
