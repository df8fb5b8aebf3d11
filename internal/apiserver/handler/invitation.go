package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/middleware"
	"github.com/Phantom-bronze/UserModule/internal/auth/policy"
	"github.com/Phantom-bronze/UserModule/internal/common/cnst"
	"github.com/Phantom-bronze/UserModule/internal/common/config"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
	"github.com/Phantom-bronze/UserModule/internal/mail"
)

// Invitation handles the invitation lifecycle: issue, list, preview
// and cancel. Acceptance happens in the auth callback.
type Invitation struct {
	db      database.Database
	mailer  mail.Mailer
	audit   *audit.Recorder
	ttl     time.Duration
	baseURL string
	logger  *zap.Logger
}

// NewInvitation creates a new invitation handler.
func NewInvitation(db database.Database, mailer mail.Mailer, recorder *audit.Recorder, cfg *config.APIServerConfig, logger *zap.Logger) *Invitation {
	return &Invitation{
		db:      db,
		mailer:  mailer,
		audit:   recorder,
		ttl:     cfg.Invitation.TokenTTL,
		baseURL: cfg.PublicBaseURL,
		logger:  logger.Named("handler.invitation"),
	}
}

// Create issues an invitation and emails the acceptance link.
func (h *Invitation) Create(c *gin.Context) {
	var req dto.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	actor := middleware.ActorFromContext(c)

	role, ok := database.ParseInvitableRole(req.Role)
	if !ok {
		errorx.Respond(c, h.logger, errorx.Validation("role must be admin or user"))
		return
	}

	// Admins always invite into their own tenant; super admins must say
	// which tenant they mean.
	tenantID := req.TenantID
	if actor.Role != database.RoleSuperAdmin {
		if actor.TenantID == nil {
			errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
			return
		}
		tenantID = *actor.TenantID
	}
	if tenantID == "" {
		errorx.Respond(c, h.logger, errorx.Validation("tenantId is required"))
		return
	}
	if !policy.CanInvite(actor, role, tenantID) {
		errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
		return
	}

	ctx := c.Request.Context()

	tenant, err := h.db.GetTenantByID(ctx, tenantID)
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("tenant not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	if !tenant.IsActive {
		errorx.Respond(c, h.logger, errorx.Validation("company is deactivated"))
		return
	}

	if _, err := h.db.GetUserByEmail(ctx, req.Email); err == nil {
		errorx.Respond(c, h.logger, errorx.Conflict("a user with this email already exists"))
		return
	}
	pending, err := h.db.HasPendingInvitation(ctx, req.Email)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	if pending {
		errorx.Respond(c, h.logger, errorx.Conflict("a pending invitation already exists for this email"))
		return
	}

	active, err := h.db.CountActiveUsers(ctx, tenantID)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	if active >= int64(tenant.MaxUsers) {
		errorx.Respond(c, h.logger, errorx.Capacity("company has reached its user limit"))
		return
	}

	token, err := database.NewInvitationToken()
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	inv := &database.Invitation{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Role:      role,
		TenantID:  tenantID,
		InvitedBy: &actor.ID,
		Token:     token,
		Status:    database.InvitationPending,
		ExpiresAt: time.Now().Add(h.ttl),
	}
	if err := h.db.CreateInvitation(ctx, inv); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.sendInvitationMail(c, inv, tenant, actor)

	h.audit.Record(c, &actor.ID, cnst.ActionInvitationSent, cnst.ResourceInvitation, &inv.ID,
		map[string]any{"email": inv.Email, "role": string(inv.Role)})
	c.JSON(http.StatusCreated, toInvitationResponse(inv))
}

// sendInvitationMail delivers the acceptance link. Delivery failures
// are logged but do not fail the request; the link can be re-read from
// the invitation list.
func (h *Invitation) sendInvitationMail(c *gin.Context, inv *database.Invitation, tenant *database.Tenant, actor *database.User) {
	subject, text, html, err := mail.RenderInvitation(mail.InvitationData{
		TenantName:  tenant.Name,
		InviterName: actor.FullName,
		Role:        string(inv.Role),
		AcceptURL:   inv.URL(h.baseURL),
		ExpiresIn:   fmt.Sprintf("%.0f hours", h.ttl.Hours()),
	})
	if err != nil {
		h.logger.Error("failed to render invitation email", zap.Error(err))
		return
	}
	if err := h.mailer.Send(c.Request.Context(), inv.Email, subject, text, html); err != nil {
		h.logger.Warn("failed to send invitation email",
			zap.String("invitation_id", inv.ID),
			zap.Error(err))
	}
}

// List returns invitations visible to the actor.
func (h *Invitation) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	offset, limit := pagination(c)

	tenantID := ""
	if actor.Role == database.RoleSuperAdmin {
		tenantID = c.Query("tenant_id")
	} else {
		if actor.TenantID == nil {
			c.JSON(http.StatusOK, []*dto.InvitationResponse{})
			return
		}
		tenantID = *actor.TenantID
	}

	invitations, err := h.db.ListInvitations(c.Request.Context(), tenantID, offset, limit)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	out := make([]*dto.InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, toInvitationResponse(inv))
	}
	c.JSON(http.StatusOK, out)
}

// Preview lets an invitee inspect an invitation before signing in.
// Public; keyed by the unguessable token.
func (h *Invitation) Preview(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		errorx.Respond(c, h.logger, errorx.Validation("token is required"))
		return
	}

	inv, err := h.db.GetInvitationByToken(c.Request.Context(), token)
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("invitation not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	tenantName := ""
	if tenant, err := h.db.GetTenantByID(c.Request.Context(), inv.TenantID); err == nil {
		tenantName = tenant.Name
	}

	c.JSON(http.StatusOK, dto.InvitationPreviewResponse{
		Email:      inv.Email,
		Role:       string(inv.Role),
		TenantName: tenantName,
		Valid:      inv.Valid(time.Now()),
	})
}

// Cancel revokes a pending invitation.
func (h *Invitation) Cancel(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	id := c.Param("id")

	inv, err := h.db.GetInvitationByID(c.Request.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("invitation not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	if !policy.CanAccessTenant(actor, inv.TenantID) {
		errorx.Respond(c, h.logger, errorx.NotFound("invitation not found"))
		return
	}

	if err := h.db.CancelInvitation(c.Request.Context(), id); err != nil {
		if err == database.ErrNotPending {
			errorx.Respond(c, h.logger, errorx.Conflict("invitation is not pending"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionInvitationCancelled, cnst.ResourceInvitation, &id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "invitation cancelled"})
}
