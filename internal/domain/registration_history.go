package domain

import "time"

// ActorType indicates who performed a change.
type ActorType string

const (
	ActorTypeDonor  ActorType = "DONOR"
	ActorTypeStaff  ActorType = "STAFF"
	ActorTypeSystem ActorType = "SYSTEM"
)

// RegistrationHistory is an immutable audit trail entry for a registration.
type RegistrationHistory struct {
	ID             string
	RegistrationID string
	ChangedByType  ActorType
	ChangedByID    *string
	OldStatus      RegistrationStatus
	NewStatus      RegistrationStatus
	QueueNumber    *int
	CreatedAt      time.Time
}
