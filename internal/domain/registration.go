package domain

import (
	"strings"
	"time"
)

// RegistrationStatus is the closed set of appointment states.
type RegistrationStatus string

const (
	// RegistrationStatusUnknown marks a persisted value outside the known set.
	RegistrationStatusUnknown   RegistrationStatus = ""
	RegistrationStatusBooked    RegistrationStatus = "Booked"
	RegistrationStatusCheckedIn RegistrationStatus = "Checked-in"
	RegistrationStatusCompleted RegistrationStatus = "Completed"
	RegistrationStatusCancelled RegistrationStatus = "Cancelled"
	RegistrationStatusRejected  RegistrationStatus = "Rejected"
)

var registrationStatuses = map[string]RegistrationStatus{
	"booked":     RegistrationStatusBooked,
	"checked-in": RegistrationStatusCheckedIn,
	"completed":  RegistrationStatusCompleted,
	"cancelled":  RegistrationStatusCancelled,
	"rejected":   RegistrationStatusRejected,
}

// ParseRegistrationStatus normalizes a stored status string. Comparison is case-insensitive;
// unrecognized values yield RegistrationStatusUnknown and false.
func ParseRegistrationStatus(raw string) (RegistrationStatus, bool) {
	status, ok := registrationStatuses[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// IsTerminal reports whether no further transition leaves the status.
func (s RegistrationStatus) IsTerminal() bool {
	switch s {
	case RegistrationStatusCompleted, RegistrationStatusCancelled, RegistrationStatusRejected:
		return true
	}
	return false
}

// Registration is a donor's booking for a specific campaign.
type Registration struct {
	ID          string
	CampaignID  string
	UserID      string
	Status      RegistrationStatus
	RawStatus   string
	QueueNumber *int
	CheckInTime *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Denormalized donor contact fields used for lookup and display.
	FullName string
	Phone    string
	Email    string
}

// SetStatusFromStorage assigns both the raw and normalized status.
func (r *Registration) SetStatusFromStorage(raw string) {
	r.RawStatus = raw
	status, ok := ParseRegistrationStatus(raw)
	if !ok {
		r.Status = RegistrationStatusUnknown
		return
	}
	r.Status = status
}

// CheckedIn reports whether a queue position has been assigned.
func (r *Registration) CheckedIn() bool {
	return r.QueueNumber != nil && r.CheckInTime != nil
}

// TimestampLayout renders UTC instants with millisecond precision so the text round-trips exactly.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CheckInInstant truncates t to the precision kept in check_in_time.
func CheckInInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
