package domain

import "time"

// Donor is the authenticated end-user who books campaign appointments.
type Donor struct {
	ID        string
	FullName  string
	Phone     string
	Email     string
	CreatedAt time.Time
}
