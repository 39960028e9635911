package repositories

import (
	"context"

	"gorm.io/gorm"
)

// GORMTxManager runs units of work in database transactions.
type GORMTxManager struct {
	db *gorm.DB
}

// NewGORMTxManager creates a new instance of GORMTxManager.
func NewGORMTxManager(db *gorm.DB) *GORMTxManager {
	return &GORMTxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (m *GORMTxManager) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMRepositories(tx))
	})
}

// NewGORMRepositories binds every GORM repository to db.
func NewGORMRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    NewGORMUserRepository(db),
		Projects: NewGORMProjectRepository(db),
		Matches:  NewGORMMatchRepository(db),
	}
}
