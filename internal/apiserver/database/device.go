package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

func (d *gormDB) CreateDevice(ctx context.Context, device *Device) error {
	return getDBFromContext(ctx, d.db).Create(device).Error
}

func (d *gormDB) GetDeviceByID(ctx context.Context, id string) (*Device, error) {
	var device Device
	if err := getDBFromContext(ctx, d.db).Where("id = ?", id).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (d *gormDB) GetDeviceByHardwareID(ctx context.Context, hardwareID string) (*Device, error) {
	var device Device
	if err := getDBFromContext(ctx, d.db).Where("hardware_id = ?", hardwareID).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (d *gormDB) GetDeviceByCode(ctx context.Context, code string) (*Device, error) {
	var device Device
	if err := getDBFromContext(ctx, d.db).
		Where("device_code = ? AND is_linked = ?", code, false).
		First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (d *gormDB) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&Device{}).
		Where("device_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (d *gormDB) ListUserDevices(ctx context.Context, userID string, offset, limit int) ([]*Device, error) {
	var devices []*Device
	err := getDBFromContext(ctx, d.db).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&devices).Error
	return devices, err
}

func (d *gormDB) ListTenantDevices(ctx context.Context, tenantID string, offset, limit int) ([]*Device, error) {
	var devices []*Device
	err := getDBFromContext(ctx, d.db).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&devices).Error
	return devices, err
}

func (d *gormDB) UpdateDevice(ctx context.Context, device *Device) error {
	return getDBFromContext(ctx, d.db).Save(device).Error
}

func (d *gormDB) DeleteDevice(ctx context.Context, id string) error {
	return getDBFromContext(ctx, d.db).Where("id = ?", id).Delete(&Device{}).Error
}

// LinkDevice claims the device for userID with a conditional update.
// The is_linked guard makes concurrent links single-winner; losers see
// ErrAlreadyLinked.
func (d *gormDB) LinkDevice(ctx context.Context, deviceID, userID, tenantID string, now time.Time) error {
	res := getDBFromContext(ctx, d.db).Model(&Device{}).
		Where("id = ? AND is_linked = ?", deviceID, false).
		Updates(map[string]any{
			"user_id":     userID,
			"tenant_id":   tenantID,
			"is_linked":   true,
			"device_code": nil,
			"linked_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyLinked
	}
	return nil
}

func (d *gormDB) UnlinkDevice(ctx context.Context, deviceID, newCode string, now time.Time) error {
	res := getDBFromContext(ctx, d.db).Model(&Device{}).
		Where("id = ? AND is_linked = ?", deviceID, true).
		Updates(map[string]any{
			"user_id":             nil,
			"tenant_id":           nil,
			"is_linked":           false,
			"device_code":         newCode,
			"code_issued_at":      now,
			"linked_at":           nil,
			"current_playlist_id": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotLinked
	}
	return nil
}

func (d *gormDB) Heartbeat(ctx context.Context, hardwareID string, now time.Time) (*Device, error) {
	tx := getDBFromContext(ctx, d.db)
	res := tx.Model(&Device{}).
		Where("hardware_id = ?", hardwareID).
		Updates(map[string]any{
			"is_online": true,
			"last_seen": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return d.GetDeviceByHardwareID(ctx, hardwareID)
}

func (d *gormDB) RefreshDeviceCode(ctx context.Context, deviceID, code string, now time.Time) error {
	res := getDBFromContext(ctx, d.db).Model(&Device{}).
		Where("id = ? AND is_linked = ?", deviceID, false).
		Updates(map[string]any{
			"device_code":    code,
			"code_issued_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyLinked
	}
	return nil
}

func (d *gormDB) MarkDevicesOffline(ctx context.Context, threshold time.Time) ([]string, error) {
	tx := getDBFromContext(ctx, d.db)

	var ids []string
	if err := tx.Model(&Device{}).
		Where("is_online = ? AND (last_seen IS NULL OR last_seen < ?)", true, threshold).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := tx.Model(&Device{}).
		Where("id IN ?", ids).
		Update("is_online", false).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
