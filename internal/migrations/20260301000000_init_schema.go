package migrations

import (
	"context"
	"fmt"

	casbinbunadapter "github.com/dspace/dspace-rest/internal/auth/bunadapter"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000000, down_20260301000000)
}

// schemaTables lists tables in creation order; down drops them in reverse.
var schemaTables = []struct {
	name  string
	model any
}{
	{"epersons", (*models.EPerson)(nil)},
	{"epersongroups", (*models.Group)(nil)},
	{"group_members", (*models.GroupMember)(nil)},
	{"registrationdata", (*models.RegistrationData)(nil)},
	{"communities", (*models.Community)(nil)},
	{"collections", (*models.Collection)(nil)},
	{"items", (*models.Item)(nil)},
	{"bitstreams", (*models.Bitstream)(nil)},
	{"workspaceitems", (*models.WorkspaceItem)(nil)},
	{"workflowitems", (*models.WorkflowItem)(nil)},
	{"pooltasks", (*models.PoolTask)(nil)},
	{"claimedtasks", (*models.ClaimedTask)(nil)},
	{"versionhistories", (*models.VersionHistory)(nil)},
	{"versions", (*models.Version)(nil)},
	{"subscriptions", (*models.Subscription)(nil)},
	{"orcid_queue", (*models.OrcidQueueEntry)(nil)},
	{"orcid_history", (*models.OrcidHistoryEntry)(nil)},
	{"casbin_rules", (*casbinbunadapter.CasbinRule)(nil)},
}

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_group_members_eperson ON group_members(eperson_id)`,
	`CREATE INDEX IF NOT EXISTS idx_collections_community ON collections(community_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bitstreams_item ON bitstreams(item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pooltasks_workflowitem ON pooltasks(workflowitem_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_claimedtasks_workflowitem ON claimedtasks(workflowitem_id, step_id)`,
	`CREATE INDEX IF NOT EXISTS idx_versions_history ON versions(history_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_eperson ON subscriptions(eperson_id)`,
	`CREATE INDEX IF NOT EXISTS idx_casbin_rules_object ON casbin_rules(v1)`,
}

// up_20260301000000 creates the identity, content, workflow and policy tables
func up_20260301000000(ctx context.Context, db *bun.DB) error {
	for _, t := range schemaTables {
		fmt.Printf(" [up] creating %s table...", t.name)
		if _, err := db.NewCreateTable().Model(t.model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		fmt.Println(" OK")
	}

	for _, stmt := range schemaIndexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	for _, stmt := range dialectIndexes(db) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// down_20260301000000 drops all tables
func down_20260301000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping all tables...")
	for i := len(schemaTables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(schemaTables[i].model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", schemaTables[i].name, err)
		}
	}
	fmt.Println(" OK")
	return nil
}
