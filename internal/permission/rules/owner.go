package rules

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/permission"
)

// ownerFunc returns the EPerson IDs owning a target. found=false means the
// target does not exist; errNotApplicable means the id could not be parsed.
type ownerFunc func(ctx context.Context, kind permission.Kind, targetID string) (owners []string, found bool, err error)

// OwnerRule allows the owner of a record to act on it. Ownership is read from
// a related object, usually the dspace.object.owner authority of an item.
type OwnerRule struct {
	name    string
	kinds   []permission.Kind
	actions []permission.Action
	owners  ownerFunc
}

func (r *OwnerRule) Name() string { return r.name }

func (r *OwnerRule) Supports(kind permission.Kind, action permission.Action) bool {
	if kind == permission.KindOrcidHistory && action != permission.ActionRead {
		return false
	}
	return slices.Contains(r.kinds, kind) && action.In(r.actions...)
}

func (r *OwnerRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() {
		return false, nil
	}
	owners, ok, err := r.owners(ctx, req.Kind, req.TargetID)
	if errors.Is(err, errNotApplicable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	for _, owner := range owners {
		if strings.EqualFold(owner, req.Caller.ID()) {
			return true, nil
		}
	}
	return false, nil
}

// NewSuggestionOwnerRule covers suggestions ("<source>:<itemUUID>:<id>") and
// suggestion targets ("<source>:<itemUUID>"): the researcher owning the target item may act.
func NewSuggestionOwnerRule(items ItemLookup) *OwnerRule {
	return &OwnerRule{
		name:    "suggestion-owner",
		kinds:   []permission.Kind{permission.KindSuggestion, permission.KindSuggestionTarget},
		actions: []permission.Action{permission.ActionRead, permission.ActionWrite, permission.ActionDelete},
		owners: func(ctx context.Context, _ permission.Kind, targetID string) ([]string, bool, error) {
			parts := strings.SplitN(targetID, ":", 3)
			if len(parts) < 2 || parts[0] == "" {
				return nil, false, errNotApplicable
			}
			itemID, ok := parseUUID(parts[1])
			if !ok {
				return nil, false, errNotApplicable
			}
			return itemOwners(ctx, items, itemID)
		},
	}
}

// NewOrcidOwnerRule covers the ORCID queue and history: the owner of the
// researcher profile item may read both and may discard queued entries.
func NewOrcidOwnerRule(entries OrcidLookup, items ItemLookup) *OwnerRule {
	return &OwnerRule{
		name:    "orcid-owner",
		kinds:   []permission.Kind{permission.KindOrcidQueue, permission.KindOrcidHistory},
		actions: []permission.Action{permission.ActionRead, permission.ActionDelete},
		owners: func(ctx context.Context, kind permission.Kind, targetID string) ([]string, bool, error) {
			id, ok := parseInt64(targetID)
			if !ok {
				return nil, false, errNotApplicable
			}
			var profileID string
			if kind == permission.KindOrcidQueue {
				entry, err := entries.GetQueueEntry(ctx, id)
				if ok, err := found(err); !ok {
					return nil, false, err
				}
				profileID = entry.ProfileItemID
			} else {
				entry, err := entries.GetHistoryEntry(ctx, id)
				if ok, err := found(err); !ok {
					return nil, false, err
				}
				profileID = entry.ProfileItemID
			}
			return itemOwners(ctx, items, profileID)
		},
	}
}

// NewSubscriptionOwnerRule lets an EPerson manage their own subscriptions.
func NewSubscriptionOwnerRule(subscriptions SubscriptionLookup) *OwnerRule {
	return &OwnerRule{
		name:    "subscription-owner",
		kinds:   []permission.Kind{permission.KindSubscription},
		actions: []permission.Action{permission.ActionRead, permission.ActionWrite, permission.ActionDelete},
		owners: func(ctx context.Context, _ permission.Kind, targetID string) ([]string, bool, error) {
			id, ok := parseInt64(targetID)
			if !ok {
				return nil, false, errNotApplicable
			}
			sub, err := subscriptions.GetByID(ctx, id)
			if ok, err := found(err); !ok {
				return nil, false, err
			}
			return []string{sub.EPersonID}, true, nil
		},
	}
}

func itemOwners(ctx context.Context, items ItemLookup, itemID string) ([]string, bool, error) {
	item, err := items.GetItem(ctx, itemID)
	if ok, err := found(err); !ok {
		return nil, false, err
	}
	return item.Metadata.Authorities(models.MetadataOwnerField), true, nil
}
