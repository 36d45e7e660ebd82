package events

import (
	"time"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationCheckedIn     EventType = "registration_checked_in"
	EventRegistrationStatusChanged EventType = "registration_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.ActorType `json:"type"`
	DonorID *string          `json:"donor_id,omitempty"`
	StaffID *string          `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	CampaignID     string      `json:"campaign_id"`
	RegistrationID string      `json:"registration_id"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// RegistrationCheckedInPayload payload.
type RegistrationCheckedInPayload struct {
	QueueNumber int       `json:"queue_number"`
	CheckInTime time.Time `json:"check_in_time"`
}

// RegistrationStatusChangedPayload payload.
type RegistrationStatusChangedPayload struct {
	OldStatus domain.RegistrationStatus `json:"old_status"`
	NewStatus domain.RegistrationStatus `json:"new_status"`
}
