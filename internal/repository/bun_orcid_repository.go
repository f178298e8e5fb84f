package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOrcidRepository implements OrcidRepository using Bun ORM
type BunOrcidRepository struct {
	db *bun.DB
}

// NewBunOrcidRepository creates a new Bun-based ORCID repository
func NewBunOrcidRepository(db *bun.DB) *BunOrcidRepository {
	return &BunOrcidRepository{db: db}
}

// CreateQueueEntry inserts a pending synchronisation
func (r *BunOrcidRepository) CreateQueueEntry(ctx context.Context, entry *models.OrcidQueueEntry) error {
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("create orcid queue entry: %w", err)
	}
	return nil
}

// GetQueueEntry retrieves a queue entry by id
func (r *BunOrcidRepository) GetQueueEntry(ctx context.Context, id int64) (*models.OrcidQueueEntry, error) {
	entry := new(models.OrcidQueueEntry)
	if err := r.db.NewSelect().Model(entry).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "orcid queue entry", strconv.FormatInt(id, 10))
	}
	return entry, nil
}

// CreateHistoryEntry inserts a synchronisation outcome
func (r *BunOrcidRepository) CreateHistoryEntry(ctx context.Context, entry *models.OrcidHistoryEntry) error {
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("create orcid history entry: %w", err)
	}
	return nil
}

// GetHistoryEntry retrieves a history entry by id
func (r *BunOrcidRepository) GetHistoryEntry(ctx context.Context, id int64) (*models.OrcidHistoryEntry, error) {
	entry := new(models.OrcidHistoryEntry)
	if err := r.db.NewSelect().Model(entry).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "orcid history entry", strconv.FormatInt(id, 10))
	}
	return entry, nil
}
