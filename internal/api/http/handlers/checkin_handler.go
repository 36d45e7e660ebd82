package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blood-drive-checkin/internal/api/dto"
	"github.com/spec-kit/blood-drive-checkin/internal/auth"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

// VisitIDHeader carries the id the donor page generates once per page load.
const VisitIDHeader = "X-Visit-ID"

// CheckinHandler serves the donor self-check-in page.
type CheckinHandler struct {
	service *service.SelfCheckinService
}

// NewCheckinHandler constructs handler.
func NewCheckinHandler(selfCheckin *service.SelfCheckinService) *CheckinHandler {
	return &CheckinHandler{service: selfCheckin}
}

// SelfCheckIn POST /checkin?campaign=<id>.
// Every expected condition is answered with 200 and a state the page renders; only infrastructure
// failures produce an error response.
func (h *CheckinHandler) SelfCheckIn(c *fiber.Ctx) error {
	out, err := h.service.Run(c.UserContext(), service.SelfCheckinRequest{
		DonorID:    auth.DonorIDFromContext(c),
		CampaignID: c.Query("campaign"),
		VisitID:    c.Get(VisitIDHeader),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCheckinOutcomeResponse(out, false)})
}
