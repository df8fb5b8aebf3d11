package database

import (
	"context"
)

func (d *gormDB) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	return getDBFromContext(ctx, d.db).Create(entry).Error
}

func (d *gormDB) ListAuditLogs(ctx context.Context, filter *AuditFilter) ([]*AuditLog, error) {
	query := getDBFromContext(ctx, d.db).Model(&AuditLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var entries []*AuditLog
	err := query.
		Order("created_at desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&entries).Error
	return entries, err
}
