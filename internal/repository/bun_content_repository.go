package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// maxCommunityDepth bounds parent traversal so a corrupt parent cycle cannot loop forever.
const maxCommunityDepth = 64

// BunContentRepository implements ContentRepository using Bun ORM
type BunContentRepository struct {
	db *bun.DB
}

// NewBunContentRepository creates a new Bun-based content repository
func NewBunContentRepository(db *bun.DB) *BunContentRepository {
	return &BunContentRepository{db: db}
}

// CreateCommunity inserts a community
func (r *BunContentRepository) CreateCommunity(ctx context.Context, community *models.Community) error {
	if _, err := r.db.NewInsert().Model(community).Exec(ctx); err != nil {
		return fmt.Errorf("create community: %w", err)
	}
	return nil
}

// CreateCollection inserts a collection
func (r *BunContentRepository) CreateCollection(ctx context.Context, collection *models.Collection) error {
	if _, err := r.db.NewInsert().Model(collection).Exec(ctx); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// CreateItem inserts an item
func (r *BunContentRepository) CreateItem(ctx context.Context, item *models.Item) error {
	if item.Metadata == nil {
		item.Metadata = models.Metadata{}
	}
	if _, err := r.db.NewInsert().Model(item).Exec(ctx); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// CreateBitstream inserts a bitstream
func (r *BunContentRepository) CreateBitstream(ctx context.Context, bitstream *models.Bitstream) error {
	if _, err := r.db.NewInsert().Model(bitstream).Exec(ctx); err != nil {
		return fmt.Errorf("create bitstream: %w", err)
	}
	return nil
}

// GetItem retrieves an item by UUID
func (r *BunContentRepository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	item := new(models.Item)
	if err := r.db.NewSelect().Model(item).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "item", id)
	}
	return item, nil
}

// GetBitstream retrieves a bitstream by UUID
func (r *BunContentRepository) GetBitstream(ctx context.Context, id string) (*models.Bitstream, error) {
	bitstream := new(models.Bitstream)
	if err := r.db.NewSelect().Model(bitstream).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "bitstream", id)
	}
	return bitstream, nil
}

// UpdateItem updates an existing item
func (r *BunContentRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	result, err := r.db.NewUpdate().Model(item).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return requireAffected(result, "item", item.ID)
}

// Resolve loads the object and computes its scope chain.
func (r *BunContentRepository) Resolve(ctx context.Context, kind, id string) (*ResolvedObject, error) {
	switch kind {
	case "site":
		return &ResolvedObject{
			Ref:        ObjectRef{Kind: kind, ID: id},
			Archived:   true,
			Attributes: map[string]any{},
			Scopes:     []ObjectRef{{Kind: kind, ID: id}},
		}, nil
	case "community":
		scopes, err := r.communityChain(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ResolvedObject{Ref: scopes[0], Archived: true, Attributes: map[string]any{}, Scopes: scopes}, nil
	case "collection":
		scopes, err := r.CollectionScopes(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ResolvedObject{Ref: scopes[0], Archived: true, Attributes: map[string]any{}, Scopes: scopes}, nil
	case "item":
		return r.resolveItem(ctx, id)
	case "bundle":
		itemID, bundle, ok := strings.Cut(id, ":")
		if !ok || bundle == "" {
			return nil, fmt.Errorf("malformed bundle id %q", id)
		}
		obj, err := r.resolveItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		ref := ObjectRef{Kind: kind, ID: id}
		obj.Attributes["bundle"] = strings.ToUpper(bundle)
		obj.Scopes = append([]ObjectRef{ref}, obj.Scopes...)
		obj.Ref = ref
		return obj, nil
	case "bitstream":
		bitstream, err := r.GetBitstream(ctx, id)
		if err != nil {
			return nil, err
		}
		obj, err := r.resolveItem(ctx, bitstream.ItemID)
		if err != nil {
			return nil, err
		}
		ref := ObjectRef{Kind: kind, ID: id}
		obj.Attributes["bundle"] = bitstream.BundleName
		obj.Attributes["name"] = bitstream.Name
		obj.Scopes = append([]ObjectRef{ref}, obj.Scopes...)
		obj.Ref = ref
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported content kind %q", kind)
	}
}

func (r *BunContentRepository) resolveItem(ctx context.Context, id string) (*ResolvedObject, error) {
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	collectionID := ""
	if item.CollectionID != nil {
		collectionID = *item.CollectionID
	} else {
		// In-progress items hang off their submission's collection.
		collectionID, err = r.submissionCollection(ctx, item.ID)
		if err != nil {
			return nil, err
		}
	}

	scopes := []ObjectRef{{Kind: "item", ID: item.ID}}
	if collectionID != "" {
		chain, err := r.CollectionScopes(ctx, collectionID)
		if err != nil && !IsNotFound(err) {
			return nil, err
		}
		scopes = append(scopes, chain...)
	}

	return &ResolvedObject{
		Ref:      scopes[0],
		Archived: item.InArchive,
		Attributes: map[string]any{
			"in_archive":   item.InArchive,
			"withdrawn":    item.Withdrawn,
			"discoverable": item.Discoverable,
		},
		Scopes: scopes,
	}, nil
}

func (r *BunContentRepository) submissionCollection(ctx context.Context, itemID string) (string, error) {
	for _, model := range []any{(*models.WorkspaceItem)(nil), (*models.WorkflowItem)(nil)} {
		var collectionID string
		err := r.db.NewSelect().
			Model(model).
			Column("collection_id").
			Where("item_id = ?", itemID).
			Limit(1).
			Scan(ctx, &collectionID)
		if err == nil {
			return collectionID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("find submission collection: %w", err)
		}
	}
	return "", nil
}

// CollectionScopes returns the collection followed by its community chain, nearest first.
func (r *BunContentRepository) CollectionScopes(ctx context.Context, collectionID string) ([]ObjectRef, error) {
	collection := new(models.Collection)
	if err := r.db.NewSelect().Model(collection).Where("id = ?", collectionID).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "collection", collectionID)
	}
	chain, err := r.communityChain(ctx, collection.CommunityID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	return append([]ObjectRef{{Kind: "collection", ID: collection.ID}}, chain...), nil
}

func (r *BunContentRepository) communityChain(ctx context.Context, communityID string) ([]ObjectRef, error) {
	var chain []ObjectRef
	seen := make(map[string]bool)
	next := communityID
	for next != "" && !seen[next] && len(chain) < maxCommunityDepth {
		community := new(models.Community)
		if err := r.db.NewSelect().Model(community).Where("id = ?", next).Scan(ctx); err != nil {
			if len(chain) > 0 && errors.Is(err, sql.ErrNoRows) {
				break
			}
			return nil, notFoundOr(err, "community", next)
		}
		seen[next] = true
		chain = append(chain, ObjectRef{Kind: "community", ID: community.ID})
		next = ""
		if community.ParentID != nil {
			next = *community.ParentID
		}
	}
	return chain, nil
}

func notFoundOr(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
