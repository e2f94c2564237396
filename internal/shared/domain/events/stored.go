package events

import "time"

// Status is the delivery state of a stored event.
type Status int

const (
	StatusWaiting Status = 0
	StatusSuccess Status = 1
	StatusFailure Status = 2
	StatusSending Status = 3
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusSending:
		return "sending"
	default:
		return "unknown"
	}
}

// StoredEvent is a row in the event mailbox table.
type StoredEvent struct {
	ID           int64
	EventCode    string
	EventData    map[string]any
	Metadata     map[string]any
	Status       Status
	RetriesCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is the outbound shape of one event inside a publish batch.
type Message struct {
	EventCode string         `json:"eventCode"`
	EventData map[string]any `json:"eventData"`
	Metadata  map[string]any `json:"metadata"`
}

// Message returns the outbound message for the stored event.
func (e *StoredEvent) Message() Message {
	return Message{
		EventCode: e.EventCode,
		EventData: e.EventData,
		Metadata:  e.Metadata,
	}
}

// ParseStatus returns the status named s, as produced by Status.String.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusWaiting, StatusSuccess, StatusFailure, StatusSending} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}
