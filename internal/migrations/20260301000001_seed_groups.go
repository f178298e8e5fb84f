package migrations

import (
	"context"
	"fmt"

	"github.com/dspace/dspace-rest/internal/db/bunx"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000001, down_20260301000001)
}

// up_20260301000001 seeds the permanent Anonymous and Administrator groups
func up_20260301000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding permanent groups...")

	for _, name := range []string{models.GroupAnonymous, models.GroupAdministrator} {
		group := models.Group{
			ID:        bunx.NewUUIDv7(),
			Name:      name,
			Permanent: true,
		}
		_, err := db.NewInsert().
			Model(&group).
			On("CONFLICT (name) DO NOTHING"). // Idempotent
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed group %s: %w", name, err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20260301000001 removes the seeded groups
func down_20260301000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing permanent groups...")
	_, err := db.NewDelete().
		Model((*models.Group)(nil)).
		Where("name IN (?)", bun.In([]string{models.GroupAnonymous, models.GroupAdministrator})).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove seeded groups: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
