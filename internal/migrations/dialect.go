package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// dialectIndexes lists indexes only the connected dialect can build.
func dialectIndexes(db *bun.DB) []string {
	switch db.Dialect().Name() {
	case dialect.PG:
		return []string{
			`CREATE INDEX IF NOT EXISTS idx_items_metadata_gin ON items USING gin (metadata jsonb_path_ops)`,
			`CREATE INDEX IF NOT EXISTS idx_epersons_email_lower ON epersons (lower(email))`,
		}
	default:
		return nil
	}
}
