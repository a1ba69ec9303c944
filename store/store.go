// Package store persists snapshot batches and analysis results in an
// append-only sqlite database.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cryptopulse/logger"
	"cryptopulse/models"
)

// Store wraps the sqlite database holding the two cycle tables.
type Store struct {
	db  *gorm.DB
	log *logger.Log
}

// Open creates the data directory if needed, opens the sqlite file and
// runs migrations for both tables.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&models.AssetSnapshot{}, &models.AnalysisResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log := logger.GetLogger()
	log.WithComponent("store").WithFields(logger.Fields{"path": path}).Info("store opened")

	return &Store{db: db, log: log}, nil
}

// Append inserts all snapshot rows of one cycle in a single
// transaction. The (symbol, fetched_at) unique index rejects
// overwrites: the store is an append-only time series.
func (s *Store) Append(ctx context.Context, snapshots []models.AssetSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&snapshots).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append snapshots: %w", err)
	}

	s.log.WithComponent("store").WithFields(logger.Fields{
		"rows":       len(snapshots),
		"fetched_at": snapshots[0].FetchedAt,
	}).Info("snapshot batch appended")
	return nil
}

// RecordAnalysis inserts all result rows of one cycle in a single
// transaction; a failing row rolls back the whole cycle's output.
func (s *Store) RecordAnalysis(ctx context.Context, results []models.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&results).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}

	s.log.WithComponent("store").WithFields(logger.Fields{
		"rows":        len(results),
		"computed_at": results[0].ComputedAt,
	}).Info("analysis results recorded")
	return nil
}

// LatestSnapshot returns the rows of the most recent fetch cycle in
// symbol order, or an empty slice when the store is empty.
func (s *Store) LatestSnapshot(ctx context.Context) ([]models.AssetSnapshot, error) {
	var newest models.AssetSnapshot
	err := s.db.WithContext(ctx).Order("fetched_at DESC").First(&newest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve latest cycle: %w", err)
	}

	var snapshots []models.AssetSnapshot
	err = s.db.WithContext(ctx).
		Where("fetched_at = ?", newest.FetchedAt).
		Order("symbol").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return snapshots, nil
}

// AnalysisAt returns every result row of the cycle identified by
// computedAt, ordered by kind, rank and symbol.
func (s *Store) AnalysisAt(ctx context.Context, computedAt time.Time) ([]models.AnalysisResult, error) {
	var results []models.AnalysisResult
	err := s.db.WithContext(ctx).
		Where("computed_at = ?", computedAt).
		Order("metric_kind, rank, symbol").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis results: %w", err)
	}
	return results, nil
}

// Close releases the underlying sqlite handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
