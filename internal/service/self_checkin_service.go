package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/events"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
	"github.com/spec-kit/blood-drive-checkin/internal/visit"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// SelfCheckinService decides the outcome of a donor opening the check-in page for a campaign.
type SelfCheckinService struct {
	campaigns     repository.CampaignRepository
	registrations repository.RegistrationRepository
	checkins      *CheckinService
	latch         visit.Latch
	loginURL      string
	logger        *zap.Logger
}

// SelfCheckinDependencies bundles collaborators for donor self check-in.
type SelfCheckinDependencies struct {
	CampaignRepo     repository.CampaignRepository
	RegistrationRepo repository.RegistrationRepository
	Checkins         *CheckinService
	Latch            visit.Latch
	LoginURL         string
	Logger           *zap.Logger
}

// SelfCheckinRequest identifies one page visit.
type SelfCheckinRequest struct {
	// DonorID is empty when the visitor has no session.
	DonorID    string
	CampaignID string
	// VisitID ties together requests re-fired by the same page load.
	VisitID string
}

// NewSelfCheckinService constructs the orchestrator.
func NewSelfCheckinService(deps SelfCheckinDependencies) *SelfCheckinService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelfCheckinService{
		campaigns:     deps.CampaignRepo,
		registrations: deps.RegistrationRepo,
		checkins:      deps.Checkins,
		latch:         deps.Latch,
		loginURL:      deps.LoginURL,
		logger:        logger,
	}
}

// Run evaluates the visit. Expected conditions are reported through the outcome state; only
// infrastructure failures outside the check-in write are returned as errors. Repeated requests
// carrying the same visit id share the first outcome.
func (s *SelfCheckinService) Run(ctx context.Context, req SelfCheckinRequest) (*CheckinOutcome, error) {
	if req.DonorID == "" {
		out := newOutcome(StateNotAuthenticated, nil, nil)
		out.LoginURL = s.LoginRedirect(req.CampaignID)
		return out, nil
	}
	if req.VisitID == "" || s.latch == nil {
		return s.decide(ctx, req)
	}

	key := strings.Join([]string{req.DonorID, req.CampaignID, req.VisitID}, "|")
	raw, err := s.latch.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		out, err := s.decide(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
	if err != nil {
		return nil, err
	}
	var out CheckinOutcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SelfCheckinService) decide(ctx context.Context, req SelfCheckinRequest) (*CheckinOutcome, error) {
	campaignID := strings.TrimSpace(req.CampaignID)
	if campaignID == "" {
		return newOutcome(StateCampaignNotFound, nil, nil), nil
	}
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return newOutcome(StateCampaignNotFound, nil, nil), nil
		}
		return nil, err
	}
	if !campaign.AcceptsCheckIn() {
		return newOutcome(StateCampaignNotActive, campaign, nil), nil
	}

	regs, err := s.registrations.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	reg := registrationForDonor(regs, req.DonorID)
	if reg == nil {
		return newOutcome(StateNotRegistered, campaign, nil), nil
	}
	out, err := advance(ctx, s.checkins, campaign, reg, donorActor(req.DonorID))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("self check-in evaluated",
		zap.String("campaign_id", campaign.ID),
		zap.String("registration_id", reg.ID),
		zap.String("state", string(out.State)),
	)
	return out, nil
}

// LoginRedirect returns the login page address that brings the donor back to the campaign's check-in page.
func (s *SelfCheckinService) LoginRedirect(campaignID string) string {
	if s.loginURL == "" {
		return ""
	}
	back := "/checkin"
	if campaignID != "" {
		back += "?campaign=" + url.QueryEscape(campaignID)
	}
	sep := "?"
	if strings.Contains(s.loginURL, "?") {
		sep = "&"
	}
	return s.loginURL + sep + "redirect=" + url.QueryEscape(back)
}

func registrationForDonor(regs []domain.Registration, donorID string) *domain.Registration {
	for i := range regs {
		if regs[i].UserID == donorID {
			return &regs[i]
		}
	}
	return nil
}

// advance applies the status rules to a located registration and calls the coordinator only for Booked.
func advance(ctx context.Context, checkins *CheckinService, campaign *domain.Campaign, reg *domain.Registration, actor events.Actor) (*CheckinOutcome, error) {
	if err := statusError(reg); err != nil {
		return outcomeFromError(err, campaign, reg)
	}
	updated, err := checkins.CheckIn(ctx, reg.ID, campaign.ID, actor)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeAlreadyCheckedIn) {
			// A concurrent check-in won; show the number it assigned.
			if current, getErr := checkins.registrations.GetByID(ctx, reg.ID); getErr == nil {
				reg = current
			}
		}
		return outcomeFromError(err, campaign, reg)
	}
	return newOutcome(StateCheckedIn, campaign, updated), nil
}
