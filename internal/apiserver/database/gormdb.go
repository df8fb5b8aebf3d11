package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotPending is returned when an invitation transition loses the
	// race against another terminal transition.
	ErrNotPending = errors.New("invitation is not pending")
	// ErrAlreadyLinked is returned when a device link loses the race
	// against another successful link.
	ErrAlreadyLinked = errors.New("device is already linked")
	// ErrNotLinked is returned when unlinking a device that is not linked.
	ErrNotLinked = errors.New("device is not linked")
)

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// gormDB implements Database on top of a gorm connection. The driver
// constructors differ only in how they open and migrate the connection.
type gormDB struct {
	db *gorm.DB
}

func newGormDB(db *gorm.DB) (*gormDB, error) {
	if err := db.AutoMigrate(
		&Tenant{},
		&User{},
		&Invitation{},
		&Device{},
		&GoogleCredential{},
		&GoogleDriveToken{},
		&AuditLog{},
	); err != nil {
		return nil, err
	}
	return &gormDB{db: db}, nil
}

// Close closes the database connection
func (d *gormDB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn with a transaction bound into the context.
func (d *gormDB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if TransactionFromContext(ctx) != nil {
		// Already inside a transaction, just run.
		return fn(ctx)
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTransaction(ctx, tx))
	})
}
