package handler

import (
	"context"
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
	"github.com/Phantom-bronze/UserModule/pkg/metrics"
)

// Device handles TV registration, pairing and management. Register and
// Heartbeat are called by the devices themselves and are
// unauthenticated; everything else requires a session.
type Device struct {
	db      database.Database
	audit   *audit.Recorder
	metrics *metrics.Metrics
	codeTTL time.Duration
	logger  *zap.Logger
}

// NewDevice creates a new device handler.
func NewDevice(db database.Database, recorder *audit.Recorder, m *metrics.Metrics, cfg *config.APIServerConfig, logger *zap.Logger) *Device {
	return &Device{
		db:      db,
		audit:   recorder,
		metrics: m,
		codeTTL: cfg.Device.CodeTTL,
		logger:  logger.Named("handler.device"),
	}
}

// Register is called by a TV on boot. Idempotent on hardware id: an
// already-linked device gets its linked status back, an unlinked one
// gets a pairing code, refreshed if the old one went stale.
func (h *Device) Register(c *gin.Context) {
	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	device, err := h.db.GetDeviceByHardwareID(ctx, req.HardwareID)
	switch {
	case err == nil:
		if device.IsLinked {
			c.JSON(http.StatusOK, dto.RegisterDeviceResponse{
				DeviceID: device.ID,
				IsLinked: true,
			})
			return
		}
		if device.CodeExpired(now, h.codeTTL) || device.Code == nil {
			code, cerr := h.newUniqueCode(ctx)
			if cerr != nil {
				errorx.Respond(c, h.logger, errorx.Internal(cerr))
				return
			}
			if rerr := h.db.RefreshDeviceCode(ctx, device.ID, code, now); rerr != nil {
				errorx.Respond(c, h.logger, errorx.Internal(rerr))
				return
			}
			device.Code = &code
			device.CodeIssuedAt = now
		}
	case database.IsNotFound(err):
		code, cerr := h.newUniqueCode(ctx)
		if cerr != nil {
			errorx.Respond(c, h.logger, errorx.Internal(cerr))
			return
		}
		name := req.Name
		if name == "" {
			name = "New Display"
		}
		device = &database.Device{
			ID:           uuid.NewString(),
			Name:         name,
			Code:         &code,
			HardwareID:   req.HardwareID,
			CodeIssuedAt: now,
		}
		if cerr := h.db.CreateDevice(ctx, device); cerr != nil {
			errorx.Respond(c, h.logger, errorx.Internal(cerr))
			return
		}
		h.audit.Record(c, nil, cnst.ActionDeviceRegistered, cnst.ResourceDevice, &device.ID,
			map[string]any{"hardwareId": device.HardwareID})
	default:
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	c.JSON(http.StatusOK, dto.RegisterDeviceResponse{
		DeviceID:      device.ID,
		Code:          *device.Code,
		CodeExpiresAt: device.CodeIssuedAt.Add(h.codeTTL),
		IsLinked:      false,
	})
}

// Heartbeat is the periodic device check-in. It keeps the device
// online and tells it what to play.
func (h *Device) Heartbeat(c *gin.Context) {
	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	h.metrics.Heartbeat()
	device, err := h.db.Heartbeat(c.Request.Context(), req.HardwareID, time.Now())
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("device not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	c.JSON(http.StatusOK, dto.HeartbeatResponse{
		IsLinked:          device.IsLinked,
		CurrentPlaylistID: device.CurrentPlaylistID,
	})
}

// Link claims a device by its pairing code for the acting user.
func (h *Device) Link(c *gin.Context) {
	var req dto.LinkDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	actor := middleware.ActorFromContext(c)
	if !policy.CanManageDevices(actor) {
		errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
		return
	}
	if actor.TenantID == nil {
		errorx.Respond(c, h.logger, errorx.Validation("super admins cannot own devices"))
		return
	}
	tenantID := *actor.TenantID

	var device *database.Device
	err := h.db.Transaction(c.Request.Context(), func(ctx context.Context) error {
		var txErr error
		device, txErr = h.linkByCode(ctx, req.Code, actor.ID, tenantID)
		return txErr
	})
	h.metrics.LinkAttempt(err == nil)
	if err != nil {
		errorx.Respond(c, h.logger, err)
		return
	}

	if req.Name != "" {
		device.Name = req.Name
		if err := h.db.UpdateDevice(c.Request.Context(), device); err != nil {
			errorx.Respond(c, h.logger, errorx.Internal(err))
			return
		}
	}

	h.audit.Record(c, &actor.ID, cnst.ActionDeviceLinked, cnst.ResourceDevice, &device.ID,
		map[string]any{"tenantId": tenantID})
	c.JSON(http.StatusOK, toDeviceResponse(device))
}

func (h *Device) linkByCode(ctx context.Context, code, userID, tenantID string) (*database.Device, error) {
	now := time.Now()

	device, err := h.db.GetDeviceByCode(ctx, code)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, errorx.NotFound("no device with this code")
		}
		return nil, errorx.Internal(err)
	}
	if device.CodeExpired(now, h.codeTTL) {
		return nil, errorx.Validation("pairing code has expired")
	}

	// Locking the tenant row keeps the quota check and the link below
	// atomic against a concurrent link in the same tenant.
	tenant, err := h.db.GetTenantByIDForUpdate(ctx, tenantID)
	if err != nil {
		return nil, errorx.Internal(err)
	}
	count, err := h.db.CountTenantDevices(ctx, tenantID)
	if err != nil {
		return nil, errorx.Internal(err)
	}
	if count >= int64(tenant.MaxDevices) {
		return nil, errorx.Capacity("company has reached its device limit")
	}

	if err := h.db.LinkDevice(ctx, device.ID, userID, tenantID, now); err != nil {
		if err == database.ErrAlreadyLinked {
			return nil, errorx.Conflict("device was just linked by someone else")
		}
		return nil, errorx.Internal(err)
	}
	return h.db.GetDeviceByID(ctx, device.ID)
}

// List returns devices visible to the actor: admins see the whole
// tenant, plain users only their own.
func (h *Device) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	offset, limit := pagination(c)
	ctx := c.Request.Context()

	var (
		devices []*database.Device
		err     error
	)
	switch actor.Role {
	case database.RoleSuperAdmin:
		if tenantID := c.Query("tenant_id"); tenantID != "" {
			devices, err = h.db.ListTenantDevices(ctx, tenantID, offset, limit)
		} else {
			devices = nil
		}
	case database.RoleAdmin:
		if actor.TenantID != nil {
			devices, err = h.db.ListTenantDevices(ctx, *actor.TenantID, offset, limit)
		}
	default:
		devices, err = h.db.ListUserDevices(ctx, actor.ID, offset, limit)
	}
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	c.JSON(http.StatusOK, toDeviceResponses(devices))
}

// Get returns a single device.
func (h *Device) Get(c *gin.Context) {
	device, ok := h.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toDeviceResponse(device))
}

// Update renames a device or switches its playlist.
func (h *Device) Update(c *gin.Context) {
	var req dto.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	device, ok := h.loadVisible(c)
	if !ok {
		return
	}
	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.CurrentPlaylistID != nil {
		if *req.CurrentPlaylistID == "" {
			device.CurrentPlaylistID = nil
		} else {
			device.CurrentPlaylistID = req.CurrentPlaylistID
		}
	}

	if err := h.db.UpdateDevice(c.Request.Context(), device); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, cnst.ActionDeviceUpdated, cnst.ResourceDevice, &device.ID, nil)
	c.JSON(http.StatusOK, toDeviceResponse(device))
}

// Unlink releases a device back to the pairing pool under a new code.
func (h *Device) Unlink(c *gin.Context) {
	device, ok := h.loadVisible(c)
	if !ok {
		return
	}

	code, err := h.newUniqueCode(c.Request.Context())
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	if err := h.db.UnlinkDevice(c.Request.Context(), device.ID, code, time.Now()); err != nil {
		if err == database.ErrNotLinked {
			errorx.Respond(c, h.logger, errorx.Conflict("device is not linked"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, cnst.ActionDeviceUnlinked, cnst.ResourceDevice, &device.ID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "device unlinked"})
}

// Delete removes a device entirely.
func (h *Device) Delete(c *gin.Context) {
	device, ok := h.loadVisible(c)
	if !ok {
		return
	}

	if err := h.db.DeleteDevice(c.Request.Context(), device.ID); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, cnst.ActionDeviceDeleted, cnst.ResourceDevice, &device.ID,
		map[string]any{"hardwareId": device.HardwareID})
	c.JSON(http.StatusOK, gin.H{"message": "device deleted"})
}

// loadVisible fetches the device in the path, masking devices outside
// the actor's scope as not found. Plain users only reach their own
// devices; admins reach their tenant's.
func (h *Device) loadVisible(c *gin.Context) (*database.Device, bool) {
	actor := middleware.ActorFromContext(c)

	device, err := h.db.GetDeviceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("device not found"))
			return nil, false
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return nil, false
	}

	visible := false
	switch actor.Role {
	case database.RoleSuperAdmin:
		visible = true
	case database.RoleAdmin:
		visible = device.TenantID != nil && actor.TenantID != nil && *device.TenantID == *actor.TenantID
	default:
		visible = device.UserID != nil && *device.UserID == actor.ID
	}
	if !visible {
		errorx.Respond(c, h.logger, errorx.NotFound("device not found"))
		return nil, false
	}
	return device, true
}

// newUniqueCode draws pairing codes until one is free. The space is
// only 10000 codes, so collisions are expected under load.
func (h *Device) newUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < 25; i++ {
		code, err := database.NewDeviceCode()
		if err != nil {
			return "", err
		}
		inUse, err := h.db.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", errorx.Capacity("no pairing codes available, retry later")
}
