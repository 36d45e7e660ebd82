package service

import (
	"fmt"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// CheckinState is the outcome category of a check-in attempt.
type CheckinState string

const (
	StateCheckedIn         CheckinState = "CHECKED_IN"
	StateAlreadyCheckedIn  CheckinState = apperrors.CodeAlreadyCheckedIn
	StateAlreadyCompleted  CheckinState = apperrors.CodeAlreadyCompleted
	StateAlreadyCancelled  CheckinState = apperrors.CodeAlreadyCancelled
	StateNotRegistered     CheckinState = apperrors.CodeNotRegistered
	StateCampaignNotFound  CheckinState = apperrors.CodeCampaignNotFound
	StateCampaignNotActive CheckinState = apperrors.CodeCampaignNotActive
	StateNotAuthenticated  CheckinState = apperrors.CodeNotAuthenticated
	StateInvalidStatus     CheckinState = apperrors.CodeInvalidStatus
	StateWriteFailure      CheckinState = apperrors.CodeWriteFailure
)

// Success reports whether the attempt produced a new check-in.
func (s CheckinState) Success() bool {
	return s == StateCheckedIn
}

// CheckinOutcome is what a donor or staff member sees after an attempt.
type CheckinOutcome struct {
	State        CheckinState         `json:"state"`
	Message      string               `json:"message"`
	Campaign     *domain.Campaign     `json:"campaign,omitempty"`
	Registration *domain.Registration `json:"registration,omitempty"`
	LoginURL     string               `json:"login_url,omitempty"`
	Details      map[string]any       `json:"details,omitempty"`
}

func messageFor(state CheckinState, reg *domain.Registration) string {
	switch state {
	case StateCheckedIn:
		return fmt.Sprintf("Check-in successful. Your queue number is %s.", queuePosition(reg))
	case StateAlreadyCheckedIn:
		return fmt.Sprintf("You are already checked in. Your queue number is %s.", queuePosition(reg))
	case StateAlreadyCompleted:
		return "Your donation for this campaign has already been completed. Thank you!"
	case StateAlreadyCancelled:
		return "This registration has been cancelled and cannot be checked in."
	case StateNotRegistered:
		return "You are not registered for this campaign."
	case StateCampaignNotFound:
		return "The campaign could not be found."
	case StateCampaignNotActive:
		return "This campaign is not open for check-in."
	case StateNotAuthenticated:
		return "Please log in to check in."
	case StateInvalidStatus:
		raw := ""
		if reg != nil {
			raw = reg.RawStatus
		}
		return fmt.Sprintf("Registration has an unexpected status %q. Please contact staff.", raw)
	}
	return "Check-in failed."
}

func newOutcome(state CheckinState, campaign *domain.Campaign, reg *domain.Registration) *CheckinOutcome {
	return &CheckinOutcome{
		State:        state,
		Message:      messageFor(state, reg),
		Campaign:     campaign,
		Registration: reg,
	}
}

// outcomeFromError folds a check-in condition into an outcome. Errors that are not check-in
// conditions are returned unchanged.
func outcomeFromError(err error, campaign *domain.Campaign, reg *domain.Registration) (*CheckinOutcome, error) {
	domainErr := apperrors.ToDomainError(err)
	switch domainErr.Code {
	case apperrors.CodeAlreadyCheckedIn, apperrors.CodeAlreadyCompleted, apperrors.CodeAlreadyCancelled,
		apperrors.CodeNotRegistered, apperrors.CodeInvalidStatus, apperrors.CodeWriteFailure:
		return &CheckinOutcome{
			State:        CheckinState(domainErr.Code),
			Message:      domainErr.Message,
			Campaign:     campaign,
			Registration: reg,
			Details:      domainErr.Details,
		}, nil
	}
	return nil, err
}
