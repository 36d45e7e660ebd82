package dto

import (
	"time"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

// LookupCheckinRequest payload for staff manual check-in.
type LookupCheckinRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CampaignResponse is the public view of a campaign.
type CampaignResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// RegistrationResponse describes a registration. check_in_time is ISO-8601 UTC with milliseconds.
type RegistrationResponse struct {
	ID          string  `json:"id"`
	CampaignID  string  `json:"campaign_id"`
	UserID      string  `json:"user_id"`
	Status      string  `json:"status"`
	QueueNumber *int    `json:"queue_number"`
	CheckInTime *string `json:"check_in_time"`
	FullName    string  `json:"full_name,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// CheckinOutcomeResponse is returned by the check-in endpoints.
type CheckinOutcomeResponse struct {
	State        string                `json:"state"`
	Message      string                `json:"message"`
	Campaign     *CampaignResponse     `json:"campaign,omitempty"`
	Registration *RegistrationResponse `json:"registration,omitempty"`
	LoginURL     string                `json:"login_url,omitempty"`
	Details      map[string]any        `json:"details,omitempty"`
}

// RosterResponse is the staff dashboard payload.
type RosterResponse struct {
	Campaign      CampaignResponse       `json:"campaign"`
	Stats         service.BoardStats     `json:"stats"`
	Registrations []RegistrationResponse `json:"registrations"`
}

// HistoryEntryResponse describes an audit entry.
type HistoryEntryResponse struct {
	ID            string  `json:"id"`
	ChangedByType string  `json:"changed_by_type"`
	ChangedByID   *string `json:"changed_by_id"`
	OldStatus     string  `json:"old_status"`
	NewStatus     string  `json:"new_status"`
	QueueNumber   *int    `json:"queue_number"`
	CreatedAt     string  `json:"created_at"`
}

// NewCampaignResponse maps a campaign.
func NewCampaignResponse(c *domain.Campaign) *CampaignResponse {
	if c == nil {
		return nil
	}
	return &CampaignResponse{
		ID:       c.ID,
		Name:     c.Name,
		Status:   string(c.Status),
		Location: c.Location,
		StartsAt: c.StartsAt,
		EndsAt:   c.EndsAt,
	}
}

// NewRegistrationResponse maps a registration. includeContact controls whether donor contact details are exposed.
func NewRegistrationResponse(r *domain.Registration, includeContact bool) *RegistrationResponse {
	if r == nil {
		return nil
	}
	status := string(r.Status)
	if r.Status == domain.RegistrationStatusUnknown {
		status = r.RawStatus
	}
	resp := &RegistrationResponse{
		ID:          r.ID,
		CampaignID:  r.CampaignID,
		UserID:      r.UserID,
		Status:      status,
		QueueNumber: r.QueueNumber,
		FullName:    r.FullName,
		CreatedAt:   domain.FormatTimestamp(r.CreatedAt),
	}
	if r.CheckInTime != nil {
		ts := domain.FormatTimestamp(*r.CheckInTime)
		resp.CheckInTime = &ts
	}
	if includeContact {
		resp.Phone = r.Phone
		resp.Email = r.Email
	}
	return resp
}

// NewCheckinOutcomeResponse maps an outcome.
func NewCheckinOutcomeResponse(out *service.CheckinOutcome, includeContact bool) CheckinOutcomeResponse {
	return CheckinOutcomeResponse{
		State:        string(out.State),
		Message:      out.Message,
		Campaign:     NewCampaignResponse(out.Campaign),
		Registration: NewRegistrationResponse(out.Registration, includeContact),
		LoginURL:     out.LoginURL,
		Details:      out.Details,
	}
}

// NewRosterResponse maps the staff roster.
func NewRosterResponse(roster *service.CampaignRoster) RosterResponse {
	items := make([]RegistrationResponse, 0, len(roster.Registrations))
	for i := range roster.Registrations {
		items = append(items, *NewRegistrationResponse(&roster.Registrations[i], true))
	}
	return RosterResponse{
		Campaign:      *NewCampaignResponse(roster.Campaign),
		Stats:         roster.Stats,
		Registrations: items,
	}
}

// NewHistoryResponse maps audit entries.
func NewHistoryResponse(entries []domain.RegistrationHistory) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:            e.ID,
			ChangedByType: string(e.ChangedByType),
			ChangedByID:   e.ChangedByID,
			OldStatus:     string(e.OldStatus),
			NewStatus:     string(e.NewStatus),
			QueueNumber:   e.QueueNumber,
			CreatedAt:     domain.FormatTimestamp(e.CreatedAt),
		})
	}
	return out
}
