package cmdutil

import (
	"fmt"

	"github.com/uptrace/bun"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/config"
	"github.com/dspace/dspace-rest/internal/db/bunx"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/authz"
)

// StoreBundle bundles the repositories and policy service the admin commands
// work against, together with the DB connection they share.
type StoreBundle struct {
	DB       *bun.DB
	EPersons repository.EPersonRepository
	Groups   repository.GroupRepository
	Policies *authz.Service
}

// Close releases the underlying database connection.
func (b *StoreBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	bunx.Close(b.DB)
}

// NewStoreBundle loads the configuration, connects to the database and
// initializes the resource policy enforcer with auto-save enabled so every
// change is written through immediately.
func NewStoreBundle() (*StoreBundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	enforcer, err := auth.InitEnforcer(db)
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("failed to initialize casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(true)

	return &StoreBundle{
		DB:       db,
		EPersons: repository.NewBunEPersonRepository(db),
		Groups:   repository.NewBunGroupRepository(db),
		Policies: authz.NewService(enforcer),
	}, nil
}
