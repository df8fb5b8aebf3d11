package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
)

// AuditLog exposes the audit trail to super admins.
type AuditLog struct {
	db     database.Database
	logger *zap.Logger
}

// NewAuditLog creates a new audit log handler.
func NewAuditLog(db database.Database, logger *zap.Logger) *AuditLog {
	return &AuditLog{db: db, logger: logger.Named("handler.audit")}
}

// List returns audit entries, newest first.
func (h *AuditLog) List(c *gin.Context) {
	offset, limit := pagination(c)

	filter := &database.AuditFilter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		Offset:       offset,
		Limit:        limit,
	}
	if userID := c.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}

	entries, err := h.db.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	c.JSON(http.StatusOK, entries)
}
