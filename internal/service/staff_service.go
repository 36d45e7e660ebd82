package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/events"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// StaffService serves the hospital-side operations on a campaign's registrations.
type StaffService struct {
	campaigns     repository.CampaignRepository
	registrations repository.RegistrationRepository
	history       repository.RegistrationHistoryRepository
	checkins      *CheckinService
	dispatcher    events.Dispatcher
	boardSize     int
	logger        *zap.Logger
	now           func() time.Time
}

// StaffDependencies bundles collaborators for staff operations.
type StaffDependencies struct {
	CampaignRepo     repository.CampaignRepository
	RegistrationRepo repository.RegistrationRepository
	HistoryRepo      repository.RegistrationHistoryRepository
	Checkins         *CheckinService
	Dispatcher       events.Dispatcher
	BoardSize        int
	Logger           *zap.Logger
	Clock            func() time.Time
}

// CampaignRoster is the staff view of a campaign.
type CampaignRoster struct {
	Campaign      *domain.Campaign
	Registrations []domain.Registration
	Stats         BoardStats
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &StaffService{
		campaigns:     deps.CampaignRepo,
		registrations: deps.RegistrationRepo,
		history:       deps.HistoryRepo,
		checkins:      deps.Checkins,
		dispatcher:    deps.Dispatcher,
		boardSize:     deps.BoardSize,
		logger:        logger,
		now:           now,
	}
}

// ListRegistrations returns every registration of the campaign in booking order.
func (s *StaffService) ListRegistrations(ctx context.Context, staff *domain.StaffMember, campaignID string) (*CampaignRoster, error) {
	campaign, err := s.manageableCampaign(ctx, staff, campaignID)
	if err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	return &CampaignRoster{
		Campaign:      campaign,
		Registrations: regs,
		Stats:         BuildBoard(regs, s.boardSize).Stats,
	}, nil
}

// CheckInByIdentifier resolves a phone number or email to a registration of the campaign and checks it in.
func (s *StaffService) CheckInByIdentifier(ctx context.Context, staff *domain.StaffMember, campaignID, identifier string) (*CheckinOutcome, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, apperrors.NewValidationError("identifier is required", nil)
	}
	campaign, err := s.manageableCampaign(ctx, staff, campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.AcceptsCheckIn() {
		return newOutcome(StateCampaignNotActive, campaign, nil), nil
	}
	regs, err := s.registrations.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	reg, ok := FindRegistration(regs, identifier)
	if !ok {
		return newOutcome(StateNotRegistered, campaign, nil), nil
	}
	return advance(ctx, s.checkins, campaign, reg, staffActor(staff.ID))
}

// CheckInRegistration checks in a registration chosen from the roster.
func (s *StaffService) CheckInRegistration(ctx context.Context, staff *domain.StaffMember, campaignID, registrationID string) (*domain.Registration, error) {
	campaign, err := s.manageableCampaign(ctx, staff, campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.AcceptsCheckIn() {
		return nil, apperrors.NewCheckinError(apperrors.CodeCampaignNotActive, messageFor(StateCampaignNotActive, nil), nil)
	}
	return s.checkins.CheckIn(ctx, registrationID, campaign.ID, staffActor(staff.ID))
}

// UpdateStatus moves a registration along the transitions staff may perform by hand.
// Checked-in is reachable only through check-in, which assigns the queue number.
func (s *StaffService) UpdateStatus(ctx context.Context, staff *domain.StaffMember, campaignID, registrationID string, newStatus domain.RegistrationStatus) (*domain.Registration, error) {
	campaign, err := s.manageableCampaign(ctx, staff, campaignID)
	if err != nil {
		return nil, err
	}
	reg, err := s.registrationInCampaign(ctx, campaign.ID, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status == domain.RegistrationStatusUnknown {
		return nil, statusError(reg)
	}
	if !isValidTransition(reg.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": string(reg.Status),
			"to":   string(newStatus),
		})
	}

	updated, err := s.registrations.UpdateStatus(ctx, reg.ID, newStatus)
	if err != nil {
		return nil, err
	}
	oldStatus := reg.Status
	if err := s.recordStatusChange(ctx, staff, updated, oldStatus); err != nil {
		return nil, err
	}
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:           events.EventRegistrationStatusChanged,
		CampaignID:     campaign.ID,
		RegistrationID: updated.ID,
		Actor:          staffActor(staff.ID),
		Payload: events.RegistrationStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
		},
	})
	s.logger.Info("registration status changed",
		zap.String("registration_id", updated.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(updated.Status)),
		zap.String("staff_id", staff.ID),
	)
	return updated, nil
}

// ListHistory returns the audit trail of a registration.
func (s *StaffService) ListHistory(ctx context.Context, staff *domain.StaffMember, campaignID, registrationID string) ([]domain.RegistrationHistory, error) {
	campaign, err := s.manageableCampaign(ctx, staff, campaignID)
	if err != nil {
		return nil, err
	}
	if _, err := s.registrationInCampaign(ctx, campaign.ID, registrationID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.RegistrationHistory{}, nil
	}
	return s.history.ListByRegistration(ctx, registrationID)
}

func (s *StaffService) manageableCampaign(ctx context.Context, staff *domain.StaffMember, campaignID string) (*domain.Campaign, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff context required")
	}
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewCheckinError(apperrors.CodeCampaignNotFound, messageFor(StateCampaignNotFound, nil),
				map[string]any{"campaign_id": campaignID})
		}
		return nil, err
	}
	if !staff.CanManage(campaign) {
		return nil, apperrors.NewForbidden("campaign belongs to another hospital")
	}
	return campaign, nil
}

func (s *StaffService) registrationInCampaign(ctx context.Context, campaignID, registrationID string) (*domain.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("registration", map[string]any{"registration_id": registrationID})
		}
		return nil, err
	}
	if reg.CampaignID != campaignID {
		return nil, apperrors.NewNotFound("registration", map[string]any{"registration_id": registrationID})
	}
	return reg, nil
}

func (s *StaffService) recordStatusChange(ctx context.Context, staff *domain.StaffMember, reg *domain.Registration, oldStatus domain.RegistrationStatus) error {
	if s.history == nil {
		return nil
	}
	staffID := staff.ID
	return s.history.Create(ctx, &domain.RegistrationHistory{
		RegistrationID: reg.ID,
		ChangedByType:  domain.ActorTypeStaff,
		ChangedByID:    &staffID,
		OldStatus:      oldStatus,
		NewStatus:      reg.Status,
		QueueNumber:    reg.QueueNumber,
	})
}

var allowedTransitions = map[domain.RegistrationStatus][]domain.RegistrationStatus{
	domain.RegistrationStatusBooked:    {domain.RegistrationStatusCancelled, domain.RegistrationStatusRejected},
	domain.RegistrationStatusCheckedIn: {domain.RegistrationStatusCompleted},
	domain.RegistrationStatusCompleted: {},
	domain.RegistrationStatusCancelled: {},
	domain.RegistrationStatusRejected:  {},
}

func isValidTransition(current, next domain.RegistrationStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
