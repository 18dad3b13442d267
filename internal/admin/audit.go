package admin

import (
	"context"

	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

// AdminAction represents the type of admin action performed
type AdminAction string

const (
	ActionTeamDelete AdminAction = "team.delete"
)

// AuditLog logs an admin action with the acting team for the security
// audit trail. All admin actions should be logged through this function.
func AuditLog(ctx context.Context, action AdminAction, details map[string]interface{}) {
	log := logger.Ctx(ctx)

	adminEmail, ok := auth.GetTeamEmail(ctx)
	if !ok {
		log.Warn("Admin action without authenticated team",
			"action", string(action),
			"details", details)
		return
	}

	logArgs := []interface{}{
		"audit", true, // marker for filtering audit logs
		"action", string(action),
		"admin_email", adminEmail,
	}
	for k, v := range details {
		logArgs = append(logArgs, k, v)
	}

	log.Info("ADMIN_AUDIT", logArgs...)
}
