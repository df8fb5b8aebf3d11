package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/middleware"
	"github.com/Phantom-bronze/UserModule/internal/auth/policy"
	"github.com/Phantom-bronze/UserModule/internal/common/cnst"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
)

const (
	defaultMaxUsers   = 10
	defaultMaxDevices = 5
)

// Tenant handles company management. Creation, deletion and the
// activation toggle are super-admin only; reads are tenant-scoped.
type Tenant struct {
	db     database.Database
	audit  *audit.Recorder
	logger *zap.Logger
}

// NewTenant creates a new tenant handler.
func NewTenant(db database.Database, recorder *audit.Recorder, logger *zap.Logger) *Tenant {
	return &Tenant{db: db, audit: recorder, logger: logger.Named("handler.tenant")}
}

// Create registers a new company.
func (h *Tenant) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	if req.Subdomain != nil {
		if _, err := h.db.GetTenantBySubdomain(c.Request.Context(), *req.Subdomain); err == nil {
			errorx.Respond(c, h.logger, errorx.Conflict("subdomain is already taken"))
			return
		}
	}

	tenant := &database.Tenant{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Subdomain:  req.Subdomain,
		LogoURL:    req.LogoURL,
		IsActive:   true,
		MaxUsers:   req.MaxUsers,
		MaxDevices: req.MaxDevices,
	}
	if tenant.MaxUsers == 0 {
		tenant.MaxUsers = defaultMaxUsers
	}
	if tenant.MaxDevices == 0 {
		tenant.MaxDevices = defaultMaxDevices
	}

	if err := h.db.CreateTenant(c.Request.Context(), tenant); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, cnst.ActionTenantCreated, cnst.ResourceTenant, &tenant.ID,
		map[string]any{"name": tenant.Name})
	c.JSON(http.StatusCreated, tenant)
}

// List returns all companies for super admins, or the actor's own.
func (h *Tenant) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	offset, limit := pagination(c)

	if actor.Role != database.RoleSuperAdmin {
		if actor.TenantID == nil {
			c.JSON(http.StatusOK, []*database.Tenant{})
			return
		}
		tenant, err := h.db.GetTenantByID(c.Request.Context(), *actor.TenantID)
		if err != nil {
			errorx.Respond(c, h.logger, errorx.Internal(err))
			return
		}
		c.JSON(http.StatusOK, []*database.Tenant{tenant})
		return
	}

	tenants, err := h.db.ListTenants(c.Request.Context(), offset, limit)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	c.JSON(http.StatusOK, tenants)
}

// Get returns a single company.
func (h *Tenant) Get(c *gin.Context) {
	tenant, ok := h.loadScoped(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// Stats returns user and device counters for a company.
func (h *Tenant) Stats(c *gin.Context) {
	tenant, ok := h.loadScoped(c)
	if !ok {
		return
	}
	stats, err := h.db.GetTenantStats(c.Request.Context(), tenant.ID)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Update applies a partial update to a company.
func (h *Tenant) Update(c *gin.Context) {
	var req dto.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	tenant, ok := h.loadScoped(c)
	if !ok {
		return
	}

	actor := middleware.ActorFromContext(c)
	// Quotas are platform-level settings.
	if (req.MaxUsers != nil || req.MaxDevices != nil) && actor.Role != database.RoleSuperAdmin {
		errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
		return
	}

	if req.Subdomain != nil && (tenant.Subdomain == nil || *req.Subdomain != *tenant.Subdomain) {
		if _, err := h.db.GetTenantBySubdomain(c.Request.Context(), *req.Subdomain); err == nil {
			errorx.Respond(c, h.logger, errorx.Conflict("subdomain is already taken"))
			return
		}
		tenant.Subdomain = req.Subdomain
	}
	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.LogoURL != nil {
		tenant.LogoURL = *req.LogoURL
	}
	if req.MaxUsers != nil {
		tenant.MaxUsers = *req.MaxUsers
	}
	if req.MaxDevices != nil {
		tenant.MaxDevices = *req.MaxDevices
	}

	if err := h.db.UpdateTenant(c.Request.Context(), tenant); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionTenantUpdated, cnst.ResourceTenant, &tenant.ID, nil)
	c.JSON(http.StatusOK, tenant)
}

// Activate re-enables a company. Its users stay deactivated until
// re-enabled individually.
func (h *Tenant) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate disables a company and locks out all of its users.
func (h *Tenant) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Tenant) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	if err := h.db.SetTenantActive(c.Request.Context(), id, active); err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("tenant not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	action := cnst.ActionTenantActivated
	if !active {
		action = cnst.ActionTenantDeactivated
	}
	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, action, cnst.ResourceTenant, &id, nil)
	c.JSON(http.StatusOK, gin.H{"id": id, "isActive": active})
}

// Delete removes a company and everything scoped to it.
func (h *Tenant) Delete(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.db.GetTenantByID(c.Request.Context(), id); err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("tenant not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	if err := h.db.DeleteTenant(c.Request.Context(), id); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, cnst.ActionTenantDeleted, cnst.ResourceTenant, &id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "tenant deleted"})
}

// loadScoped fetches the tenant in the path and enforces tenant scoping.
// Cross-tenant probes get the same not-found as missing rows.
func (h *Tenant) loadScoped(c *gin.Context) (*database.Tenant, bool) {
	id := c.Param("id")
	actor := middleware.ActorFromContext(c)

	if !policy.CanAccessTenant(actor, id) {
		errorx.Respond(c, h.logger, errorx.NotFound("tenant not found"))
		return nil, false
	}

	tenant, err := h.db.GetTenantByID(c.Request.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("tenant not found"))
			return nil, false
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return nil, false
	}
	return tenant, true
}
