package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/middleware"
	"github.com/Phantom-bronze/UserModule/internal/auth/policy"
	"github.com/Phantom-bronze/UserModule/internal/common/cnst"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
)

// User handles user account management.
type User struct {
	db     database.Database
	audit  *audit.Recorder
	logger *zap.Logger
}

// NewUser creates a new user handler.
func NewUser(db database.Database, recorder *audit.Recorder, logger *zap.Logger) *User {
	return &User{db: db, audit: recorder, logger: logger.Named("handler.user")}
}

// List returns users visible to the actor. Admins see their own
// tenant; super admins see everyone and may filter by tenant.
func (h *User) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	offset, limit := pagination(c)

	filter := &database.UserFilter{
		Search: c.Query("search"),
		Offset: offset,
		Limit:  limit,
	}
	if role := c.Query("role"); role != "" {
		r := database.UserRole(role)
		if !r.Valid() {
			errorx.Respond(c, h.logger, errorx.Validation("unknown role"))
			return
		}
		filter.Role = &r
	}
	switch c.Query("is_active") {
	case "true":
		v := true
		filter.IsActive = &v
	case "false":
		v := false
		filter.IsActive = &v
	}

	if actor.Role == database.RoleSuperAdmin {
		if tenantID := c.Query("tenant_id"); tenantID != "" {
			filter.TenantID = &tenantID
		}
	} else {
		// Non-super-admins only ever see their own tenant.
		filter.TenantID = actor.TenantID
		if filter.TenantID == nil {
			c.JSON(http.StatusOK, []*dto.UserResponse{})
			return
		}
	}

	users, err := h.db.ListUsers(c.Request.Context(), filter)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	c.JSON(http.StatusOK, toUserResponses(users))
}

// Get returns a single user.
func (h *User) Get(c *gin.Context) {
	target, ok := h.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toUserResponse(target))
}

// Update applies an admin-side partial update to a user account.
func (h *User) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	actor := middleware.ActorFromContext(c)
	target, ok := h.loadVisible(c)
	if !ok {
		return
	}
	if !policy.CanManage(actor, target) {
		errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
		return
	}

	changed := map[string]any{}
	if req.Role != nil && *req.Role != string(target.Role) {
		role, ok := database.ParseInvitableRole(*req.Role)
		if !ok || !policy.CanAssignRole(actor, role) {
			errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
			return
		}
		target.Role = role
		changed["role"] = string(role)
	}
	if req.FullName != nil {
		target.FullName = *req.FullName
	}
	if req.CanAddDevices != nil && *req.CanAddDevices != target.CanAddDevices {
		target.CanAddDevices = *req.CanAddDevices
		changed["canAddDevices"] = *req.CanAddDevices
	}

	var statusAction string
	if req.IsActive != nil && *req.IsActive != target.IsActive {
		target.IsActive = *req.IsActive
		statusAction = cnst.ActionUserDeactivated
		if target.IsActive {
			statusAction = cnst.ActionUserActivated
		}
	}

	if err := h.db.UpdateUser(c.Request.Context(), target); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionUserUpdated, cnst.ResourceUser, &target.ID, nil)
	if len(changed) > 0 {
		h.audit.Record(c, &actor.ID, cnst.ActionUserPermissionChanged, cnst.ResourceUser, &target.ID, changed)
	}
	if statusAction != "" {
		h.audit.Record(c, &actor.ID, statusAction, cnst.ResourceUser, &target.ID, nil)
	}
	c.JSON(http.StatusOK, toUserResponse(target))
}

// Delete removes a user account and the devices they own.
func (h *User) Delete(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	target, ok := h.loadVisible(c)
	if !ok {
		return
	}
	// Self-deletion is rejected before any permission check.
	if target.ID == actor.ID {
		errorx.Respond(c, h.logger, errorx.Validation("cannot delete your own account"))
		return
	}
	if !policy.CanManage(actor, target) {
		errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
		return
	}

	if err := h.db.DeleteUser(c.Request.Context(), target.ID); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionUserDeleted, cnst.ResourceUser, &target.ID,
		map[string]any{"email": target.Email})
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// UpdateProfile applies a self-service update to the actor's own
// profile. Role and status are not reachable through this path.
func (h *User) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	actor := middleware.ActorFromContext(c)
	if req.FullName != nil {
		actor.FullName = *req.FullName
	}
	if req.ProfilePictureURL != nil {
		actor.ProfilePictureURL = *req.ProfilePictureURL
	}

	if err := h.db.UpdateUser(c.Request.Context(), actor); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionUserUpdated, cnst.ResourceUser, &actor.ID, nil)
	c.JSON(http.StatusOK, toUserResponse(actor))
}

// loadVisible fetches the user in the path, masking accounts outside
// the actor's scope as not found.
func (h *User) loadVisible(c *gin.Context) (*database.User, bool) {
	actor := middleware.ActorFromContext(c)

	target, err := h.db.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("user not found"))
			return nil, false
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return nil, false
	}

	if actor.Role != database.RoleSuperAdmin && actor.ID != target.ID {
		if target.TenantID == nil || actor.TenantID == nil || *target.TenantID != *actor.TenantID {
			errorx.Respond(c, h.logger, errorx.NotFound("user not found"))
			return nil, false
		}
	}
	return target, true
}
