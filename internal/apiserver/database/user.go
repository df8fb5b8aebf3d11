package database

import (
	"context"
)

func (d *gormDB) CreateUser(ctx context.Context, user *User) error {
	return getDBFromContext(ctx, d.db).Create(user).Error
}

func (d *gormDB) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := getDBFromContext(ctx, d.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *gormDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := getDBFromContext(ctx, d.db).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *gormDB) ListUsers(ctx context.Context, filter *UserFilter) ([]*User, error) {
	query := getDBFromContext(ctx, d.db).Model(&User{})
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("email LIKE ? OR full_name LIKE ?", like, like)
	}

	var users []*User
	err := query.
		Order("created_at desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&users).Error
	return users, err
}

func (d *gormDB) UpdateUser(ctx context.Context, user *User) error {
	return getDBFromContext(ctx, d.db).Save(user).Error
}

func (d *gormDB) DeleteUser(ctx context.Context, id string) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := getDBFromContext(ctx, d.db)
		if err := tx.Where("user_id = ?", id).Delete(&Device{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&GoogleDriveToken{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Invitation{}).Where("invited_by = ?", id).
			Update("invited_by", nil).Error; err != nil {
			return err
		}
		// Audit rows survive with a detached user id.
		if err := tx.Model(&AuditLog{}).Where("user_id = ?", id).
			Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&User{}).Error
	})
}

func (d *gormDB) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&User{}).Count(&count).Error
	return count, err
}
