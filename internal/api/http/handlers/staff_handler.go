package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blood-drive-checkin/internal/api/dto"
	"github.com/spec-kit/blood-drive-checkin/internal/auth"
	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// StaffHandler exposes the hospital dashboard endpoints.
type StaffHandler struct {
	service *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{service: staffService}
}

// ListRegistrations GET /staff/campaigns/:campaignId/registrations.
func (h *StaffHandler) ListRegistrations(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}
	roster, err := h.service.ListRegistrations(c.UserContext(), staff, c.Params("campaignId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRosterResponse(roster)})
}

// LookupCheckIn POST /staff/campaigns/:campaignId/check-in/lookup.
func (h *StaffHandler) LookupCheckIn(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}
	var req dto.LookupCheckinRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	out, err := h.service.CheckInByIdentifier(c.UserContext(), staff, c.Params("campaignId"), req.Identifier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCheckinOutcomeResponse(out, true)})
}

// CheckIn POST /staff/campaigns/:campaignId/registrations/:id/check-in.
func (h *StaffHandler) CheckIn(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}
	reg, err := h.service.CheckInRegistration(c.UserContext(), staff, c.Params("campaignId"), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRegistrationResponse(reg, true)})
}

// UpdateStatus PATCH /staff/campaigns/:campaignId/registrations/:id/status.
func (h *StaffHandler) UpdateStatus(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	status, ok := domain.ParseRegistrationStatus(req.Status)
	if !ok {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	reg, err := h.service.UpdateStatus(c.UserContext(), staff, c.Params("campaignId"), c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRegistrationResponse(reg, true)})
}

// History GET /staff/campaigns/:campaignId/registrations/:id/history.
func (h *StaffHandler) History(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListHistory(c.UserContext(), staff, c.Params("campaignId"), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponse(entries)})
}

func requireStaff(c *fiber.Ctx) (*domain.StaffMember, error) {
	staff, ok := auth.StaffFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return staff, nil
}
