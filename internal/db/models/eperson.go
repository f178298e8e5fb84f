package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EPerson is a registered user of the repository.
// PasswordHash is set for password logins; NetID links federated identities.
type EPerson struct {
	bun.BaseModel `bun:"table:epersons,alias:ep"`

	ID                  string     `bun:"id,pk,type:uuid"`
	Email               string     `bun:"email,notnull,unique"`
	NetID               *string    `bun:"netid,unique"`
	FirstName           string     `bun:"first_name"`
	LastName            string     `bun:"last_name"`
	PasswordHash        *string    `bun:"password_hash"`
	CanLogIn            bool       `bun:"can_log_in,notnull"`
	SessionSalt         string     `bun:"session_salt,notnull,default:''"` // rotated on logout to void issued tokens
	LastActive          *time.Time `bun:"last_active"`
	AgreementAcceptedAt *time.Time `bun:"agreement_accepted_at"`
	CreatedAt           time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// FullName returns "First Last", falling back to the email address.
func (e *EPerson) FullName() string {
	if e == nil {
		return ""
	}
	name := e.FirstName
	if e.LastName != "" {
		if name != "" {
			name += " "
		}
		name += e.LastName
	}
	if name == "" {
		return e.Email
	}
	return name
}

// HasAcceptedAgreement reports whether the end-user agreement was accepted.
func (e *EPerson) HasAcceptedAgreement() bool {
	return e != nil && e.AgreementAcceptedAt != nil
}

// Group is a named set of EPersons. Anonymous and Administrator are seeded.
type Group struct {
	bun.BaseModel `bun:"table:epersongroups,alias:g"`

	ID        string    `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull,unique"`
	Permanent bool      `bun:"permanent,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// GroupMember links an EPerson to a Group.
type GroupMember struct {
	bun.BaseModel `bun:"table:group_members,alias:gm"`

	GroupID   string `bun:"group_id,pk,type:uuid"`
	EPersonID string `bun:"eperson_id,pk,type:uuid"`
}

// RegistrationData is a single-use token emailed for registration or password reset.
type RegistrationData struct {
	bun.BaseModel `bun:"table:registrationdata,alias:rd"`

	Token     string    `bun:"token,pk"`
	Email     string    `bun:"email,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

// Well-known group names seeded by migrations.
const (
	GroupAnonymous     = "Anonymous"
	GroupAdministrator = "Administrator"
)
