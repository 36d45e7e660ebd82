package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/api/dto"
	"github.com/spec-kit/blood-drive-checkin/internal/realtime"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

const initialBoardKey = "kiosk_initial_board"

// KioskHandler serves the venue display.
type KioskHandler struct {
	boards *service.BoardService
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewKioskHandler constructs handler.
func NewKioskHandler(boards *service.BoardService, hub *realtime.Hub, logger *zap.Logger) *KioskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KioskHandler{boards: boards, hub: hub, logger: logger}
}

// Board GET /kiosk/campaigns/:campaignId/board.
func (h *KioskHandler) Board(c *fiber.Ctx) error {
	snapshot, err := h.boards.Snapshot(c.UserContext(), c.Params("campaignId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBoardResponse(snapshot)})
}

// Upgrade validates the campaign and prepares the first board before switching protocols.
func (h *KioskHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	snapshot, err := h.boards.Snapshot(c.UserContext(), c.Params("campaignId"))
	if err != nil {
		return err
	}
	payload, err := dto.EncodeBoard(snapshot)
	if err != nil {
		return err
	}
	c.Locals(initialBoardKey, payload)
	return c.Next()
}

// Stream GET /kiosk/campaigns/:campaignId/ws.
func (h *KioskHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		campaignID := conn.Params("campaignId")
		initial, _ := conn.Locals(initialBoardKey).([]byte)
		h.logger.Info("kiosk connected", zap.String("campaign_id", campaignID), zap.String("remote", conn.RemoteAddr().String()))
		h.hub.Serve(campaignID, conn, initial)
		h.logger.Info("kiosk disconnected", zap.String("campaign_id", campaignID))
	})
}
