package models

import "time"

// EventType names a report lifecycle event
type EventType string

// Report lifecycle events, also used as RabbitMQ routing keys.
const (
	EventReportCreated       EventType = "report.created"
	EventReportStatusUpdated EventType = "report.status_updated"
)

// ReportEvent is published to RabbitMQ and broadcast to live listeners.
// Sequence starts at 1 for report.created and grows by one with every later
// event of the same report; consumers drop events older than one already seen.
type ReportEvent struct {
	Type      EventType   `json:"type"`
	Sequence  int64       `json:"sequence"`
	Report    EventReport `json:"report"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventReport is a report without its photo.
type EventReport struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Priority           string    `json:"priority"`
	Location           string    `json:"location"`
	Description        string    `json:"description"`
	HasPhoto           bool      `json:"has_photo"`
	Status             Status    `json:"status"`
	AssignedDepartment string    `json:"assigned_department"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewReportEvent builds an event of the given type for r.
func NewReportEvent(eventType EventType, r *Report) ReportEvent {
	return ReportEvent{
		Type: eventType,
		Report: EventReport{
			ID:                 r.ID,
			Title:              r.Title,
			Category:           r.Category,
			Priority:           r.Priority,
			Location:           r.Location,
			Description:        r.Description,
			HasPhoto:           len(r.Photo) > 0,
			Status:             r.Status,
			AssignedDepartment: r.AssignedDepartment,
			CreatedAt:          r.CreatedAt,
			UpdatedAt:          r.UpdatedAt,
		},
		Timestamp: time.Now().UTC(),
	}
}
