package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dspace/dspace-rest/internal/db/bunx"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunEPersonRepository implements EPersonRepository using Bun ORM
type BunEPersonRepository struct {
	db *bun.DB
}

// NewBunEPersonRepository creates a new Bun-based EPerson repository
func NewBunEPersonRepository(db *bun.DB) *BunEPersonRepository {
	return &BunEPersonRepository{db: db}
}

// Create inserts a new EPerson. Email is stored lowercased; a missing ID is generated.
func (r *BunEPersonRepository) Create(ctx context.Context, eperson *models.EPerson) error {
	if eperson.ID == "" {
		eperson.ID = bunx.NewUUIDv7()
	}
	eperson.Email = strings.ToLower(strings.TrimSpace(eperson.Email))
	_, err := r.db.NewInsert().
		Model(eperson).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create eperson: %w", err)
	}
	return nil
}

// GetByID retrieves an EPerson by UUID
func (r *BunEPersonRepository) GetByID(ctx context.Context, id string) (*models.EPerson, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByEmail retrieves an EPerson by email, case-insensitively
func (r *BunEPersonRepository) GetByEmail(ctx context.Context, email string) (*models.EPerson, error) {
	return r.getBy(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByNetID retrieves an EPerson by the identifier asserted by a federated login
func (r *BunEPersonRepository) GetByNetID(ctx context.Context, netID string) (*models.EPerson, error) {
	return r.getBy(ctx, "netid = ?", netID)
}

func (r *BunEPersonRepository) getBy(ctx context.Context, where string, arg string) (*models.EPerson, error) {
	eperson := new(models.EPerson)
	err := r.db.NewSelect().
		Model(eperson).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("eperson %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("get eperson: %w", err)
	}
	return eperson, nil
}

// Update updates an existing EPerson
func (r *BunEPersonRepository) Update(ctx context.Context, eperson *models.EPerson) error {
	eperson.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(eperson).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update eperson: %w", err)
	}
	return requireAffected(result, "eperson", eperson.ID)
}

// Delete removes an EPerson and their group memberships
func (r *BunEPersonRepository) Delete(ctx context.Context, id string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.GroupMember)(nil)).Where("eperson_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		result, err := tx.NewDelete().Model((*models.EPerson)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete eperson: %w", err)
		}
		return requireAffected(result, "eperson", id)
	})
}

// List retrieves all EPersons ordered by email
func (r *BunEPersonRepository) List(ctx context.Context) ([]models.EPerson, error) {
	var epersons []models.EPerson
	err := r.db.NewSelect().
		Model(&epersons).
		Order("email ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list epersons: %w", err)
	}
	return epersons, nil
}

// SetPasswordHash updates the stored bcrypt hash
func (r *BunEPersonRepository) SetPasswordHash(ctx context.Context, id string, passwordHash string) error {
	return r.setColumn(ctx, id, "password_hash", passwordHash)
}

// SetSessionSalt replaces the per-EPerson token salt, voiding tokens signed with the old one
func (r *BunEPersonRepository) SetSessionSalt(ctx context.Context, id string, salt string) error {
	return r.setColumn(ctx, id, "session_salt", salt)
}

// TouchLastActive records the time of the latest authenticated request
func (r *BunEPersonRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return r.setColumn(ctx, id, "last_active", at)
}

func (r *BunEPersonRepository) setColumn(ctx context.Context, id, column string, value any) error {
	result, err := r.db.NewUpdate().
		Model((*models.EPerson)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set eperson %s: %w", column, err)
	}
	return requireAffected(result, "eperson", id)
}

func requireAffected(result sql.Result, what, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
