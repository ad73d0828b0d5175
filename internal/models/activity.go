// internal/models/activity.go
package models

// EventType is the kind of viewer interaction being tracked.
type EventType string

const (
	EventAgreement EventType = "agreement"
	EventView      EventType = "view"
	EventDownload  EventType = "download"
	EventPrint     EventType = "print"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventAgreement, EventView, EventDownload, EventPrint:
		return true
	}
	return false
}

type TrackedEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"` // RFC3339
}
