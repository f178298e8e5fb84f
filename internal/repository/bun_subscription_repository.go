package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunSubscriptionRepository implements SubscriptionRepository using Bun ORM
type BunSubscriptionRepository struct {
	db *bun.DB
}

// NewBunSubscriptionRepository creates a new Bun-based subscription repository
func NewBunSubscriptionRepository(db *bun.DB) *BunSubscriptionRepository {
	return &BunSubscriptionRepository{db: db}
}

// Create inserts a subscription
func (r *BunSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if _, err := r.db.NewInsert().Model(sub).Exec(ctx); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription by id
func (r *BunSubscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	sub := new(models.Subscription)
	if err := r.db.NewSelect().Model(sub).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "subscription", strconv.FormatInt(id, 10))
	}
	return sub, nil
}
