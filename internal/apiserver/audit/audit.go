// Package audit appends best-effort records of state-changing
// operations. Audit failures are logged and never fail the request that
// triggered them.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
)

// Recorder writes audit log entries.
type Recorder struct {
	db     database.Database
	logger *zap.Logger
}

// NewRecorder creates a new audit recorder.
func NewRecorder(db database.Database, logger *zap.Logger) *Recorder {
	return &Recorder{db: db, logger: logger.Named("audit")}
}

// Record writes an entry attributed to the request's actor. Details may
// be nil.
func (r *Recorder) Record(c *gin.Context, userID *string, action, resourceType string, resourceID *string, details map[string]any) {
	entry := &database.AuditLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		CreatedAt:    time.Now(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = string(raw)
		}
	}
	r.write(c.Request.Context(), entry)
}

// RecordSystem writes an entry with no acting user, for background
// jobs.
func (r *Recorder) RecordSystem(ctx context.Context, action, resourceType string, resourceID *string, details map[string]any) {
	entry := &database.AuditLog{
		ID:           uuid.NewString(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = string(raw)
		}
	}
	r.write(ctx, entry)
}

func (r *Recorder) write(ctx context.Context, entry *database.AuditLog) {
	// Audit writes happen outside the request's transaction so a
	// rollback never erases the trace, and vice versa.
	if err := r.db.CreateAuditLog(database.ContextWithTransaction(ctx, nil), entry); err != nil {
		r.logger.Warn("failed to write audit entry",
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}
