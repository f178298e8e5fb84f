package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dspace/dspace-rest/internal/db/bunx"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunGroupRepository implements GroupRepository using Bun ORM
type BunGroupRepository struct {
	db *bun.DB
}

// NewBunGroupRepository creates a new Bun-based group repository
func NewBunGroupRepository(db *bun.DB) *BunGroupRepository {
	return &BunGroupRepository{db: db}
}

// Create inserts a group, assigning a UUIDv7 when ID is empty
func (r *BunGroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = bunx.NewUUIDv7()
	}
	if _, err := r.db.NewInsert().Model(group).Exec(ctx); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// GetByName retrieves a group by its unique name
func (r *BunGroupRepository) GetByName(ctx context.Context, name string) (*models.Group, error) {
	group := new(models.Group)
	err := r.db.NewSelect().
		Model(group).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// List retrieves all groups ordered by name
func (r *BunGroupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.NewSelect().Model(&groups).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// AddMember adds an EPerson to the named group. Adding an existing member is a no-op.
func (r *BunGroupRepository) AddMember(ctx context.Context, groupName, epersonID string) error {
	group, err := r.GetByName(ctx, groupName)
	if err != nil {
		return err
	}
	member := &models.GroupMember{GroupID: group.ID, EPersonID: epersonID}
	_, err = r.db.NewInsert().
		Model(member).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add member to %s: %w", groupName, err)
	}
	return nil
}

// RemoveMember removes an EPerson from the named group
func (r *BunGroupRepository) RemoveMember(ctx context.Context, groupName, epersonID string) error {
	group, err := r.GetByName(ctx, groupName)
	if err != nil {
		return err
	}
	_, err = r.db.NewDelete().
		Model((*models.GroupMember)(nil)).
		Where("group_id = ?", group.ID).
		Where("eperson_id = ?", epersonID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove member from %s: %w", groupName, err)
	}
	return nil
}

// GroupNamesForEPerson lists the names of groups the EPerson directly belongs to
func (r *BunGroupRepository) GroupNamesForEPerson(ctx context.Context, epersonID string) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*models.Group)(nil)).
		Column("g.name").
		Join("JOIN group_members AS gm ON gm.group_id = g.id").
		Where("gm.eperson_id = ?", epersonID).
		Order("g.name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list groups for eperson: %w", err)
	}
	return names, nil
}
