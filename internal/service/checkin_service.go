package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/events"
	"github.com/spec-kit/blood-drive-checkin/internal/observability"
	"github.com/spec-kit/blood-drive-checkin/internal/queue"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// CheckinService transitions Booked registrations to Checked-in with a fresh queue number.
type CheckinService struct {
	registrations repository.RegistrationRepository
	history       repository.RegistrationHistoryRepository
	assigner      queue.Assigner
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// CheckinDependencies bundles collaborators for the check-in coordinator.
type CheckinDependencies struct {
	RegistrationRepo repository.RegistrationRepository
	HistoryRepo      repository.RegistrationHistoryRepository
	Assigner         queue.Assigner
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Clock            func() time.Time
}

// NewCheckinService constructs the coordinator.
func NewCheckinService(deps CheckinDependencies) *CheckinService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &CheckinService{
		registrations: deps.RegistrationRepo,
		history:       deps.HistoryRepo,
		assigner:      deps.Assigner,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           now,
	}
}

// CheckIn assigns the next queue number of the campaign to a Booked registration and stamps the
// check-in time. Any other status is reported as the matching check-in condition and nothing is written.
// A failed write surfaces as WRITE_FAILURE carrying the underlying message; the row stays Booked.
func (s *CheckinService) CheckIn(ctx context.Context, appointmentID, campaignID string, actor events.Actor) (*domain.Registration, error) {
	started := s.now()
	reg, err := s.registrations.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.reject(started, notRegisteredError(campaignID))
		}
		return nil, err
	}
	if reg.CampaignID != campaignID {
		return nil, s.reject(started, notRegisteredError(campaignID))
	}
	if err := statusError(reg); err != nil {
		return nil, s.reject(started, err)
	}

	updated, err := s.assigner.Assign(ctx, campaignID, func(ctx context.Context, queueNumber int) (*domain.Registration, error) {
		// Another check-in of the same row may have committed while this one waited for the campaign lock.
		current, err := s.registrations.GetByID(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		if rejection := statusError(current); rejection != nil {
			return nil, rejection
		}
		return s.registrations.MarkCheckedIn(ctx, reg.ID, queueNumber, domain.CheckInInstant(s.now()))
	})
	if err != nil {
		if rejection := s.lostRace(ctx, reg.ID, err); rejection != nil {
			return nil, s.reject(started, rejection)
		}
		s.logger.Error("check-in write failed",
			zap.String("registration_id", reg.ID),
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
		return nil, s.reject(started, apperrors.NewWriteFailure(err))
	}

	var queueNumber int
	if updated.QueueNumber != nil {
		queueNumber = *updated.QueueNumber
	}
	s.recordHistory(ctx, actor, updated.ID, reg.Status, updated.Status, updated.QueueNumber)
	payload := events.RegistrationCheckedInPayload{QueueNumber: queueNumber}
	if updated.CheckInTime != nil {
		payload.CheckInTime = *updated.CheckInTime
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventRegistrationCheckedIn,
		CampaignID:     campaignID,
		RegistrationID: updated.ID,
		Actor:          actor,
		Payload:        payload,
	})
	s.metrics.RecordCheckin(string(StateCheckedIn), s.now().Sub(started))
	s.logger.Info("registration checked in",
		zap.String("registration_id", updated.ID),
		zap.String("campaign_id", campaignID),
		zap.Int("queue_number", queueNumber),
	)
	return updated, nil
}

// lostRace reports the condition of a registration that stopped being Booked during the write, or nil
// when err is an ordinary write failure.
func (s *CheckinService) lostRace(ctx context.Context, registrationID string, err error) *apperrors.DomainError {
	var rejection *apperrors.DomainError
	if errors.As(err, &rejection) {
		return rejection
	}
	if !errors.Is(err, repository.ErrAlreadyCheckedIn) {
		return nil
	}
	if current, getErr := s.registrations.GetByID(ctx, registrationID); getErr == nil {
		if rejection := statusError(current); rejection != nil {
			return rejection
		}
	}
	return apperrors.NewCheckinError(apperrors.CodeAlreadyCheckedIn, messageFor(StateAlreadyCheckedIn, nil), nil)
}

func (s *CheckinService) reject(started time.Time, err *apperrors.DomainError) error {
	s.metrics.RecordCheckin(err.Code, s.now().Sub(started))
	return err
}

// recordHistory stores an audit entry. The check-in has already committed, so failures are only logged.
func (s *CheckinService) recordHistory(ctx context.Context, actor events.Actor, registrationID string, oldStatus, newStatus domain.RegistrationStatus, queueNumber *int) {
	if s.history == nil {
		return
	}
	entry := &domain.RegistrationHistory{
		RegistrationID: registrationID,
		ChangedByType:  actor.Type,
		ChangedByID:    actorID(actor),
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		QueueNumber:    queueNumber,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record registration history",
			zap.String("registration_id", registrationID),
			zap.Error(err),
		)
	}
}

func (s *CheckinService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.now, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

// statusError reports why a registration cannot be checked in, or nil when it is Booked.
func statusError(reg *domain.Registration) *apperrors.DomainError {
	switch reg.Status {
	case domain.RegistrationStatusBooked:
		return nil
	case domain.RegistrationStatusCheckedIn:
		details := map[string]any{}
		if reg.QueueNumber != nil {
			details["queue_number"] = *reg.QueueNumber
		}
		if reg.CheckInTime != nil {
			details["check_in_time"] = domain.FormatTimestamp(*reg.CheckInTime)
		}
		return apperrors.NewCheckinError(apperrors.CodeAlreadyCheckedIn, messageFor(StateAlreadyCheckedIn, reg), details)
	case domain.RegistrationStatusCompleted:
		return apperrors.NewCheckinError(apperrors.CodeAlreadyCompleted, messageFor(StateAlreadyCompleted, reg), nil)
	case domain.RegistrationStatusCancelled, domain.RegistrationStatusRejected:
		return apperrors.NewCheckinError(apperrors.CodeAlreadyCancelled, messageFor(StateAlreadyCancelled, reg),
			map[string]any{"status": string(reg.Status)})
	default:
		return apperrors.NewCheckinError(apperrors.CodeInvalidStatus, messageFor(StateInvalidStatus, reg),
			map[string]any{"status": reg.RawStatus})
	}
}

func notRegisteredError(campaignID string) *apperrors.DomainError {
	return apperrors.NewCheckinError(apperrors.CodeNotRegistered, messageFor(StateNotRegistered, nil),
		map[string]any{"campaign_id": campaignID})
}

func actorID(actor events.Actor) *string {
	switch actor.Type {
	case domain.ActorTypeDonor:
		return actor.DonorID
	case domain.ActorTypeStaff:
		return actor.StaffID
	}
	return nil
}

func donorActor(donorID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeDonor, DonorID: &donorID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeStaff, StaffID: &staffID}
}

func queuePosition(reg *domain.Registration) string {
	if reg == nil || reg.QueueNumber == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *reg.QueueNumber)
}
