package database

import (
	"context"

	"gorm.io/gorm/clause"
)

func (d *gormDB) UpsertGoogleCredential(ctx context.Context, cred *GoogleCredential) error {
	return getDBFromContext(ctx, d.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_id", "client_secret", "project_id",
			"service_account_email", "credentials_json",
			"is_valid", "updated_at",
		}),
	}).Create(cred).Error
}

func (d *gormDB) GetGoogleCredentialByTenant(ctx context.Context, tenantID string) (*GoogleCredential, error) {
	var cred GoogleCredential
	if err := getDBFromContext(ctx, d.db).
		Where("tenant_id = ?", tenantID).
		First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

func (d *gormDB) ListGoogleCredentials(ctx context.Context) ([]*GoogleCredential, error) {
	var creds []*GoogleCredential
	err := getDBFromContext(ctx, d.db).Order("created_at asc").Find(&creds).Error
	return creds, err
}

func (d *gormDB) DeleteGoogleCredential(ctx context.Context, tenantID string) error {
	return getDBFromContext(ctx, d.db).
		Where("tenant_id = ?", tenantID).
		Delete(&GoogleCredential{}).Error
}

func (d *gormDB) UpsertGoogleDriveToken(ctx context.Context, token *GoogleDriveToken) error {
	return getDBFromContext(ctx, d.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "token_expiry",
			"scope", "updated_at",
		}),
	}).Create(token).Error
}

func (d *gormDB) GetGoogleDriveTokenByUser(ctx context.Context, userID string) (*GoogleDriveToken, error) {
	var token GoogleDriveToken
	if err := getDBFromContext(ctx, d.db).
		Where("user_id = ?", userID).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (d *gormDB) ListGoogleDriveTokens(ctx context.Context) ([]*GoogleDriveToken, error) {
	var tokens []*GoogleDriveToken
	err := getDBFromContext(ctx, d.db).Order("created_at asc").Find(&tokens).Error
	return tokens, err
}

func (d *gormDB) DeleteGoogleDriveToken(ctx context.Context, userID string) error {
	return getDBFromContext(ctx, d.db).
		Where("user_id = ?", userID).
		Delete(&GoogleDriveToken{}).Error
}
