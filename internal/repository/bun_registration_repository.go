package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRegistrationRepository implements RegistrationRepository using Bun ORM
type BunRegistrationRepository struct {
	db *bun.DB
}

// NewBunRegistrationRepository creates a new Bun-based registration token repository
func NewBunRegistrationRepository(db *bun.DB) *BunRegistrationRepository {
	return &BunRegistrationRepository{db: db}
}

// Create stores a registration token
func (r *BunRegistrationRepository) Create(ctx context.Context, data *models.RegistrationData) error {
	if _, err := r.db.NewInsert().Model(data).Exec(ctx); err != nil {
		return fmt.Errorf("create registration data: %w", err)
	}
	return nil
}

// GetByToken returns an unexpired registration token
func (r *BunRegistrationRepository) GetByToken(ctx context.Context, token string) (*models.RegistrationData, error) {
	data := new(models.RegistrationData)
	err := r.db.NewSelect().
		Model(data).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration token: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get registration data: %w", err)
	}
	return data, nil
}

// Delete consumes a registration token
func (r *BunRegistrationRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().
		Model((*models.RegistrationData)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete registration data: %w", err)
	}
	return nil
}
