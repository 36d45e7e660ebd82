package domain

import "time"

// StaffRole enumerates hospital operator roles.
type StaffRole string

const (
	StaffRoleStaff StaffRole = "STAFF"
	StaffRoleAdmin StaffRole = "ADMIN"
)

// StaffMember models hospital staff running a campaign.
type StaffMember struct {
	ID         string
	Name       string
	Email      string
	Role       StaffRole
	HospitalID *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanManage reports whether the staff member may operate the campaign.
func (s *StaffMember) CanManage(campaign *Campaign) bool {
	if s == nil || campaign == nil || !s.Active {
		return false
	}
	if s.Role == StaffRoleAdmin {
		return true
	}
	return s.HospitalID != nil && campaign.HospitalID != nil && *s.HospitalID == *campaign.HospitalID
}
