package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func newStores(tx *gorm.DB) Stores {
	return Stores{
		People:      NewGormPersonRepository(tx),
		Credentials: NewGormCredentialRepository(tx),
		Marks:       NewGormMarkRepository(tx),
	}
}

// Do wraps fn in db.Transaction, which also rolls back when fn panics.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(stores Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStores(tx))
	})
}

func (u *GormUnitOfWork) Read(ctx context.Context, fn func(stores Stores) error) error {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin read transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	return fn(newStores(tx))
}
