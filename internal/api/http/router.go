package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/blood-drive-checkin/internal/api/http/handlers"
	"github.com/spec-kit/blood-drive-checkin/internal/auth"
	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/observability"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Checkin        *handlers.CheckinHandler
	Staff          *handlers.StaffHandler
	Kiosk          *handlers.KioskHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	KioskUsername  string
	KioskPassHash  string
	// CheckinPerMinute caps self-check-in requests per client IP. Zero disables the limit.
	CheckinPerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	checkin := []fiber.Handler{cfg.AuthMiddleware.Optional}
	if cfg.CheckinPerMinute > 0 {
		checkin = append(checkin, checkinLimiter(cfg.CheckinPerMinute))
	}
	checkin = append(checkin, cfg.Checkin.SelfCheckIn)
	app.Post("/checkin", checkin...)

	staff := app.Group("/staff/campaigns/:campaignId", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleStaff, domain.StaffRoleAdmin))
	staff.Get("/registrations", cfg.Staff.ListRegistrations)
	staff.Post("/check-in/lookup", cfg.Staff.LookupCheckIn)
	staff.Post("/registrations/:id/check-in", cfg.Staff.CheckIn)
	staff.Patch("/registrations/:id/status", cfg.Staff.UpdateStatus)
	staff.Get("/registrations/:id/history", cfg.Staff.History)

	kiosk := app.Group("/kiosk/campaigns/:campaignId", auth.KioskBasicAuth(cfg.KioskUsername, cfg.KioskPassHash))
	kiosk.Get("/board", cfg.Kiosk.Board)
	kiosk.Get("/ws", cfg.Kiosk.Upgrade, cfg.Kiosk.Stream())
}

func checkinLimiter(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewDomainError("RATE_LIMITED", "too many check-in attempts", fiber.StatusTooManyRequests, nil)
		},
	})
}
