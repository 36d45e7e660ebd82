package domain

import "time"

// SubjectType differentiates donor vs staff tokens.
type SubjectType string

const (
	SubjectTypeDonor SubjectType = "DONOR"
	SubjectTypeStaff SubjectType = "STAFF"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *StaffRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
