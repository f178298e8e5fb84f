package models

import (
	"time"

	"github.com/uptrace/bun"
)

// VersionHistory groups successive versions of an item.
type VersionHistory struct {
	bun.BaseModel `bun:"table:versionhistories,alias:vh"`

	ID        int64     `bun:"id,pk,autoincrement"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Version is one item snapshot in a version history.
type Version struct {
	bun.BaseModel `bun:"table:versions,alias:v"`

	ID        int64     `bun:"id,pk,autoincrement"`
	HistoryID int64     `bun:"history_id,notnull"`
	ItemID    string    `bun:"item_id,notnull,type:uuid"`
	Number    int       `bun:"version_number,notnull"`
	Summary   string    `bun:"summary"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Subscription asks for notifications about changes to a DSpace object.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sb"`

	ID        int64     `bun:"id,pk,autoincrement"`
	EPersonID string    `bun:"eperson_id,notnull,type:uuid"`
	ObjectID  string    `bun:"dso_id,notnull,type:uuid"`
	Type      string    `bun:"subscription_type,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// OrcidQueueEntry is a pending synchronisation of an entity to a researcher's ORCID record.
type OrcidQueueEntry struct {
	bun.BaseModel `bun:"table:orcid_queue,alias:oq"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ProfileItemID string    `bun:"owner_id,notnull,type:uuid"`
	EntityID      *string   `bun:"entity_id,type:uuid"`
	Operation     string    `bun:"operation,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// OrcidHistoryEntry records the outcome of a past ORCID synchronisation.
type OrcidHistoryEntry struct {
	bun.BaseModel `bun:"table:orcid_history,alias:oh"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ProfileItemID string    `bun:"owner_id,notnull,type:uuid"`
	EntityID      *string   `bun:"entity_id,type:uuid"`
	Status        int       `bun:"status,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// MetadataOwnerField names the metadata field whose authority points at the owning EPerson.
const MetadataOwnerField = "dspace.object.owner"
