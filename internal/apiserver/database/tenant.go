package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *gormDB) CreateTenant(ctx context.Context, tenant *Tenant) error {
	return getDBFromContext(ctx, d.db).Create(tenant).Error
}

func (d *gormDB) GetTenantByID(ctx context.Context, id string) (*Tenant, error) {
	var tenant Tenant
	if err := getDBFromContext(ctx, d.db).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetTenantByIDForUpdate reads the tenant under a row lock so that a
// quota check and the write it guards happen atomically within the
// surrounding transaction. SQLite has no SELECT ... FOR UPDATE; its
// single-writer lock already serializes the same window.
func (d *gormDB) GetTenantByIDForUpdate(ctx context.Context, id string) (*Tenant, error) {
	tx := getDBFromContext(ctx, d.db)
	if d.db.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var tenant Tenant
	if err := tx.Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (d *gormDB) GetTenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	var tenant Tenant
	if err := getDBFromContext(ctx, d.db).Where("subdomain = ?", subdomain).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (d *gormDB) ListTenants(ctx context.Context, offset, limit int) ([]*Tenant, error) {
	var tenants []*Tenant
	err := getDBFromContext(ctx, d.db).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

func (d *gormDB) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	return getDBFromContext(ctx, d.db).Save(tenant).Error
}

func (d *gormDB) DeleteTenant(ctx context.Context, id string) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := getDBFromContext(ctx, d.db)
		if err := tx.Where("tenant_id = ?", id).Delete(&Device{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&Invitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&GoogleCredential{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&User{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Tenant{}).Error
	})
}

func (d *gormDB) SetTenantActive(ctx context.Context, id string, active bool) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := getDBFromContext(ctx, d.db)
		res := tx.Model(&Tenant{}).Where("id = ?", id).Update("is_active", active)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if !active {
			// Deactivating a tenant locks out its users as well.
			if err := tx.Model(&User{}).Where("tenant_id = ?", id).
				Update("is_active", false).Error; err != nil {
				return err
			}
			return tx.Model(&Device{}).Where("tenant_id = ?", id).
				Update("is_online", false).Error
		}
		return nil
	})
}

func (d *gormDB) GetTenantStats(ctx context.Context, id string) (*TenantStats, error) {
	tx := getDBFromContext(ctx, d.db)
	stats := &TenantStats{}

	if err := tx.Model(&User{}).Where("tenant_id = ?", id).
		Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&User{}).Where("tenant_id = ? AND is_active = ?", id, true).
		Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&User{}).Where("tenant_id = ? AND role = ?", id, RoleAdmin).
		Count(&stats.AdminUsers).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Device{}).Where("tenant_id = ?", id).
		Count(&stats.TotalDevices).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Device{}).Where("tenant_id = ? AND is_online = ?", id, true).
		Count(&stats.OnlineDevices).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Device{}).Where("tenant_id = ? AND is_linked = ?", id, true).
		Count(&stats.LinkedDevices).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (d *gormDB) CountActiveUsers(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&User{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&count).Error
	return count, err
}

func (d *gormDB) CountTenantDevices(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&Device{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}
