// Package gorm provides a SQL-backed key-value store (SQLite or PostgreSQL)
package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/alchemorsel/client/internal/ports/outbound"
)

// StoredValueModel is one durable key-value pair
type StoredValueModel struct {
	Key       string `gorm:"type:varchar(255);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName sets the table name
func (StoredValueModel) TableName() string {
	return "client_storage"
}

// Store implements outbound.KeyValueStore with GORM
type Store struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database file and migrates it.
// An empty path uses an in-memory database.
func OpenSQLite(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite serialises writers anyway; one connection keeps :memory: coherent.
	sqlDB.SetMaxOpenConns(1)

	return NewStore(db)
}

// OpenPostgres connects to PostgreSQL and migrates the storage table.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an open connection and runs auto-migration.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&StoredValueModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Get retrieves a value
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var model StoredValueModel
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return model.Value, true, nil
}

// Set upserts a value
func (s *Store) Set(ctx context.Context, key, value string) error {
	model := StoredValueModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&StoredValueModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ outbound.KeyValueStore = (*Store)(nil)
