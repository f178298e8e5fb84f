package authz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/casbin/casbin/v2"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/permission"
)

// ErrPolicyNotFound is returned when no resource policy has the requested id.
var ErrPolicyNotFound = errors.New("resource policy not found")

// Policy grants Action on Object to Subject. Condition is an optional go-bexpr
// expression over the object's attributes. An ADMIN policy implies every action.
type Policy struct {
	Subject   string `json:"subject"`
	Object    string `json:"object"`
	Action    string `json:"action"`
	Condition string `json:"condition,omitempty"`
}

// ID is a stable short identifier derived from the policy line.
func (p Policy) ID() string {
	sum := sha256.Sum256([]byte(strings.Join(p.line(), "\x00")))
	return hex.EncodeToString(sum[:8])
}

func (p Policy) line() []string {
	return []string{p.Subject, p.Object, p.Action, p.Condition}
}

func policyFromLine(line []string) Policy {
	p := Policy{}
	fields := []*string{&p.Subject, &p.Object, &p.Action, &p.Condition}
	for i := range fields {
		if i < len(line) {
			*fields[i] = line[i]
		}
	}
	return p
}

// Service answers resource-policy questions against the Casbin enforcer.
// Authorize and IsAdmin never mutate Casbin state.
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService wraps an enforcer built by auth.InitEnforcer.
func NewService(enforcer *casbin.SyncedEnforcer) *Service {
	return &Service{enforcer: enforcer}
}

// Authorize reports whether any subject holds action (or ADMIN) on object.
func (s *Service) Authorize(ctx context.Context, subjects []string, object, action string, attrs map[string]any) (bool, error) {
	if s == nil || s.enforcer == nil {
		return false, fmt.Errorf("casbin enforcer not initialized")
	}
	if len(subjects) == 0 {
		log.Printf("authorization denied: no subjects (obj=%s, act=%s)", object, action)
		return false, nil
	}
	if attrs == nil {
		attrs = make(map[string]any)
	}

	for _, subject := range subjects {
		allowed, err := s.enforcer.Enforce(subject, object, action, attrs)
		if err != nil {
			return false, fmt.Errorf("enforce policy for %s: %w", subject, err)
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin reports whether any subject holds ADMIN on any of scopes.
func (s *Service) IsAdmin(ctx context.Context, subjects []string, scopes []string) (bool, error) {
	for _, scope := range scopes {
		ok, err := s.Authorize(ctx, subjects, scope, string(permission.ActionAdmin), nil)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// AddPolicy validates and stores a policy. It returns false if the policy already existed.
func (s *Service) AddPolicy(ctx context.Context, p Policy) (bool, error) {
	if err := validatePolicy(&p); err != nil {
		return false, err
	}
	added, err := s.enforcer.AddPolicy(p.line())
	if err != nil {
		return false, fmt.Errorf("add resource policy: %w", err)
	}
	return added, nil
}

// RemovePolicy deletes a policy. It returns false if nothing matched.
func (s *Service) RemovePolicy(ctx context.Context, p Policy) (bool, error) {
	removed, err := s.enforcer.RemovePolicy(p.line())
	if err != nil {
		return false, fmt.Errorf("remove resource policy: %w", err)
	}
	return removed, nil
}

// RemoveObjectPolicies deletes every policy on object.
func (s *Service) RemoveObjectPolicies(ctx context.Context, object string) error {
	if _, err := s.enforcer.RemoveFilteredPolicy(1, object); err != nil {
		return fmt.Errorf("remove policies for %s: %w", object, err)
	}
	return nil
}

// ListPolicies lists policies on object, or all policies when object is empty.
func (s *Service) ListPolicies(ctx context.Context, object string) ([]Policy, error) {
	var (
		lines [][]string
		err   error
	)
	if object == "" {
		lines, err = s.enforcer.GetPolicy()
	} else {
		lines, err = s.enforcer.GetFilteredPolicy(1, object)
	}
	if err != nil {
		return nil, fmt.Errorf("list resource policies: %w", err)
	}

	policies := make([]Policy, 0, len(lines))
	for _, line := range lines {
		policies = append(policies, policyFromLine(line))
	}
	return policies, nil
}

// FindPolicy looks a policy up by ID.
func (s *Service) FindPolicy(ctx context.Context, id string) (*Policy, error) {
	policies, err := s.ListPolicies(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		if p.ID() == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
}

func validatePolicy(p *Policy) error {
	if _, _, err := auth.ParseSubject(p.Subject); err != nil {
		return err
	}
	kind, id, ok := strings.Cut(p.Object, ":")
	if !ok || id == "" || !permission.ParseKind(kind).Valid() {
		return fmt.Errorf("invalid policy object %q (expected <kind>:<id>)", p.Object)
	}
	action, err := permission.ParseAction(p.Action)
	if err != nil {
		return err
	}
	p.Action = string(action)
	return auth.ValidateCondition(p.Condition)
}
