package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunVersionRepository implements VersionRepository using Bun ORM
type BunVersionRepository struct {
	db *bun.DB
}

// NewBunVersionRepository creates a new Bun-based version repository
func NewBunVersionRepository(db *bun.DB) *BunVersionRepository {
	return &BunVersionRepository{db: db}
}

// CreateHistory inserts a version history
func (r *BunVersionRepository) CreateHistory(ctx context.Context, history *models.VersionHistory) error {
	if _, err := r.db.NewInsert().Model(history).Exec(ctx); err != nil {
		return fmt.Errorf("create version history: %w", err)
	}
	return nil
}

// CreateVersion inserts a version into an existing history
func (r *BunVersionRepository) CreateVersion(ctx context.Context, version *models.Version) error {
	if _, err := r.db.NewInsert().Model(version).Exec(ctx); err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

// GetVersion retrieves a version by id
func (r *BunVersionRepository) GetVersion(ctx context.Context, id int64) (*models.Version, error) {
	version := new(models.Version)
	if err := r.db.NewSelect().Model(version).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "version", strconv.FormatInt(id, 10))
	}
	return version, nil
}

// GetHistory retrieves a version history by id
func (r *BunVersionRepository) GetHistory(ctx context.Context, id int64) (*models.VersionHistory, error) {
	history := new(models.VersionHistory)
	if err := r.db.NewSelect().Model(history).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "version history", strconv.FormatInt(id, 10))
	}
	return history, nil
}

// LatestVersion returns the highest-numbered version in a history
func (r *BunVersionRepository) LatestVersion(ctx context.Context, historyID int64) (*models.Version, error) {
	version := new(models.Version)
	err := r.db.NewSelect().
		Model(version).
		Where("history_id = ?", historyID).
		Order("version_number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "version history", strconv.FormatInt(historyID, 10))
	}
	return version, nil
}
