package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/events"
)

// ActivityService writes a structured activity trail for registration events.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventRegistrationCheckedIn, a.handleCheckedIn)
	a.dispatcher.Subscribe(events.EventRegistrationStatusChanged, a.handleStatusChanged)
}

func (a *ActivityService) handleCheckedIn(_ context.Context, event events.Event) error {
	fields := append(eventFields(event), zap.Any("payload", event.Payload))
	a.logger.Info("RegistrationCheckedIn", fields...)
	return nil
}

func (a *ActivityService) handleStatusChanged(_ context.Context, event events.Event) error {
	fields := append(eventFields(event), zap.Any("payload", event.Payload))
	a.logger.Info("RegistrationStatusChanged", fields...)
	return nil
}

func eventFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("campaign_id", event.CampaignID),
		zap.String("registration_id", event.RegistrationID),
		zap.String("actor_type", string(event.Actor.Type)),
	}
	if id := actorID(event.Actor); id != nil {
		fields = append(fields, zap.String("actor_id", *id))
	}
	return fields
}
