package database

import (
	"context"
	"time"
)

func (d *gormDB) CreateInvitation(ctx context.Context, inv *Invitation) error {
	return getDBFromContext(ctx, d.db).Create(inv).Error
}

func (d *gormDB) GetInvitationByID(ctx context.Context, id string) (*Invitation, error) {
	var inv Invitation
	if err := getDBFromContext(ctx, d.db).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (d *gormDB) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	var inv Invitation
	if err := getDBFromContext(ctx, d.db).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (d *gormDB) ListInvitations(ctx context.Context, tenantID string, offset, limit int) ([]*Invitation, error) {
	query := getDBFromContext(ctx, d.db).Model(&Invitation{})
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var invitations []*Invitation
	err := query.
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&invitations).Error
	return invitations, err
}

// HasPendingInvitation reports whether any tenant holds a pending
// invitation for the email. Uniqueness is global so one address can
// never be courted by two tenants at once.
func (d *gormDB) HasPendingInvitation(ctx context.Context, email string) (bool, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&Invitation{}).
		Where("email = ? AND status = ?", email, InvitationPending).
		Count(&count).Error
	return count > 0, err
}

// AcceptInvitation performs a conditional update so that exactly one of
// any set of concurrent accept or cancel attempts wins.
func (d *gormDB) AcceptInvitation(ctx context.Context, id string, now time.Time) error {
	res := getDBFromContext(ctx, d.db).Model(&Invitation{}).
		Where("id = ? AND status = ?", id, InvitationPending).
		Updates(map[string]any{
			"status":      InvitationAccepted,
			"accepted_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (d *gormDB) CancelInvitation(ctx context.Context, id string) error {
	res := getDBFromContext(ctx, d.db).Model(&Invitation{}).
		Where("id = ? AND status = ?", id, InvitationPending).
		Update("status", InvitationCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (d *gormDB) ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error) {
	res := getDBFromContext(ctx, d.db).Model(&Invitation{}).
		Where("status = ? AND expires_at <= ?", InvitationPending, now).
		Update("status", InvitationExpired)
	return res.RowsAffected, res.Error
}
