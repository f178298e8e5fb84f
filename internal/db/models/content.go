package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// MetadataValue is a single value of a metadata field, optionally bound to an authority key.
type MetadataValue struct {
	Value     string `json:"value"`
	Authority string `json:"authority,omitempty"`
}

// Metadata maps qualified field names (e.g. "dc.title") to their values.
type Metadata map[string][]MetadataValue

// Scan implements sql.Scanner for reading from database
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan Metadata: expected []byte, got %T", value)
	}
	if len(data) == 0 {
		*m = make(Metadata)
		return nil
	}
	return json.Unmarshal(data, m)
}

// Value implements driver.Valuer for writing to database
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Authorities returns the authority keys recorded for field.
func (m Metadata) Authorities(field string) []string {
	var out []string
	for _, v := range m[field] {
		if v.Authority != "" {
			out = append(out, v.Authority)
		}
	}
	return out
}

// FirstValue returns the first value of field, or "".
func (m Metadata) FirstValue(field string) string {
	if vals := m[field]; len(vals) > 0 {
		return vals[0].Value
	}
	return ""
}

// Community is a top-level or nested container of collections.
type Community struct {
	bun.BaseModel `bun:"table:communities,alias:cm"`

	ID        string    `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	ParentID  *string   `bun:"parent_id,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Collection groups items inside a community.
type Collection struct {
	bun.BaseModel `bun:"table:collections,alias:cl"`

	ID          string    `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull"`
	CommunityID string    `bun:"community_id,notnull,type:uuid"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Item is an archived or in-progress repository record.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:it"`

	ID           string    `bun:"id,pk,type:uuid"`
	CollectionID *string   `bun:"collection_id,type:uuid"`
	SubmitterID  *string   `bun:"submitter_id,type:uuid"`
	InArchive    bool      `bun:"in_archive,notnull,default:false"`
	Withdrawn    bool      `bun:"withdrawn,notnull,default:false"`
	Discoverable bool      `bun:"discoverable,notnull"`
	Metadata     Metadata  `bun:"metadata,type:jsonb,notnull,default:'{}'"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Bitstream is a file attached to an item.
type Bitstream struct {
	bun.BaseModel `bun:"table:bitstreams,alias:bs"`

	ID         string    `bun:"id,pk,type:uuid"`
	ItemID     string    `bun:"item_id,notnull,type:uuid"`
	BundleName string    `bun:"bundle_name,notnull,default:'ORIGINAL'"`
	Name       string    `bun:"name,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
