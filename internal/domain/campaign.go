package domain

import (
	"strings"
	"time"
)

// CampaignStatus is the lifecycle state of a blood drive as stored by hospital staff.
type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusInactive CampaignStatus = "inactive"
)

// Campaign is a scheduled blood-donation drive at a location/time window.
type Campaign struct {
	ID         string
	HospitalID *string
	Name       string
	Status     CampaignStatus
	StartsAt   time.Time
	EndsAt     time.Time
	Location   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AcceptsCheckIn reports whether donors may check in to the campaign.
func (c *Campaign) AcceptsCheckIn() bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(string(c.Status)), string(CampaignStatusActive))
}
