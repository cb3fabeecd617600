package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// SQLiteAdapter implements ports.VerdictRepository using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// VerdictModel is the GORM model for announced verdicts.
type VerdictModel struct {
	ID          string    `gorm:"primaryKey"`
	AnnouncedAt time.Time `gorm:"index"`
	Names       string    // JSON encoded []string
	NameCount   int
	Monitors    int
	Delivered   int
}

// NewSQLiteAdapter opens the database at path, migrates the schema and
// instruments queries with OpenTelemetry spans.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	if err := db.AutoMigrate(&VerdictModel{}); err != nil {
		return nil, err
	}
	return &SQLiteAdapter{db: db}, nil
}

// SaveVerdictsBatch stores verdicts in a single transaction. Re-saving an id
// overwrites it.
func (a *SQLiteAdapter) SaveVerdictsBatch(ctx context.Context, verdicts []domain.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	models := make([]VerdictModel, 0, len(verdicts))
	for _, v := range verdicts {
		m, err := toModel(v)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// ListVerdicts returns the most recent verdicts first. A non-positive limit
// returns everything.
func (a *SQLiteAdapter) ListVerdicts(ctx context.Context, limit int) ([]domain.Verdict, error) {
	query := a.db.WithContext(ctx).Order("announced_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []VerdictModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Verdict, 0, len(models))
	for _, m := range models {
		v, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// GetVerdict retrieves a verdict by id.
func (a *SQLiteAdapter) GetVerdict(ctx context.Context, id string) (*domain.Verdict, error) {
	var m VerdictModel
	if err := a.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVerdictNotFound
		}
		return nil, err
	}
	return toDomain(m)
}

// CountVerdicts returns the number of stored verdicts.
func (a *SQLiteAdapter) CountVerdicts(ctx context.Context) (int64, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&VerdictModel{}).Count(&n).Error
	return n, err
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ ports.VerdictRepository = (*SQLiteAdapter)(nil)
