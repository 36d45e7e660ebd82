package worker

import (
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

// StartActivityWorker registers activity trail handlers.
func StartActivityWorker(activity *service.ActivityService) {
	if activity == nil {
		return
	}
	activity.RegisterHandlers()
}
