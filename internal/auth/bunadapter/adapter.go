package bunadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"
)

// Derived from github.com/msales/casbin-bun-adapter. Rows are stored without a
// schema qualifier so the same table works on SQLite and Postgres, and every
// column of a policy is significant: an empty condition is a real value, not
// a wildcard.

// Adapter persists Casbin resource policies through bun.
type Adapter struct {
	db *bun.DB
}

// NewAdapter creates new Adapter by using bun's database connection.
// Expects the casbin_rules table to exist (see migrations).
func NewAdapter(db *bun.DB) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("bun adapter requires a database")
	}
	return &Adapter{db: db}, nil
}

// LoadPolicy loads all policy lines, padding each to the arity declared by the model.
func (a *Adapter) LoadPolicy(m model.Model) error {
	var rules []*CasbinRule
	if err := a.db.NewSelect().Model(&rules).Scan(context.Background()); err != nil {
		return fmt.Errorf("load policy from adapter db: %w", err)
	}

	for _, r := range rules {
		sec := section(r.Ptype)
		ast, ok := m[sec][r.Ptype]
		if !ok {
			continue
		}
		values := r.values()[:len(ast.Tokens)]
		if err := m.AddPolicy(sec, r.Ptype, values); err != nil {
			return fmt.Errorf("load policy line %s: %w", r, err)
		}
	}
	return nil
}

// SavePolicy replaces every stored line with the model's current policy.
func (a *Adapter) SavePolicy(m model.Model) error {
	var lines []*CasbinRule
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				lines = append(lines, newCasbinRule(ptype, rule))
			}
		}
	}

	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*CasbinRule)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear casbin rules: %w", err)
		}
		return insertRules(ctx, tx, lines)
	})
}

// AddPolicy adds a policy line.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	return a.AddPolicies("", ptype, [][]string{rule})
}

// AddPolicies adds policy lines in one transaction.
func (a *Adapter) AddPolicies(_ string, ptype string, rules [][]string) error {
	lines := make([]*CasbinRule, 0, len(rules))
	for _, rule := range rules {
		lines = append(lines, newCasbinRule(ptype, rule))
	}
	err := a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		return insertRules(ctx, tx, lines)
	})
	if err != nil {
		return fmt.Errorf("add policy rules: %w", err)
	}
	return nil
}

// RemovePolicy removes the exact policy line.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	return a.RemovePolicies("", ptype, [][]string{rule})
}

// RemovePolicies removes exact policy lines in one transaction.
func (a *Adapter) RemovePolicies(_ string, ptype string, rules [][]string) error {
	err := a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		for _, rule := range rules {
			line := newCasbinRule(ptype, rule)
			if _, err := tx.NewDelete().Model(line).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove policy rules: %w", err)
	}
	return nil
}

// RemoveFilteredPolicy removes lines whose fields starting at fieldIndex match fieldValues.
// Empty filter values match anything.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	if fieldIndex < 0 || fieldIndex+len(fieldValues) > len(columns) {
		return fmt.Errorf("filter out of range: index %d with %d values", fieldIndex, len(fieldValues))
	}

	query := a.db.NewDelete().Model((*CasbinRule)(nil)).Where("ptype = ?", ptype)
	for i, v := range fieldValues {
		if v == "" {
			continue
		}
		query = query.Where("? = ?", bun.Ident(columns[fieldIndex+i]), v)
	}

	if _, err := query.Exec(context.Background()); err != nil {
		return fmt.Errorf("remove filtered policy: %w", err)
	}
	return nil
}

func insertRules(ctx context.Context, tx bun.Tx, lines []*CasbinRule) error {
	for _, line := range lines {
		if _, err := tx.NewInsert().Model(line).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("insert casbin rule %s: %w", line, err)
		}
	}
	return nil
}

func section(ptype string) string {
	if ptype == "" {
		return ""
	}
	return ptype[:1]
}

var columns = []string{"v0", "v1", "v2", "v3", "v4", "v5"}

// CasbinRule is one stored policy line. For resource policies the columns
// hold subject, object, action and condition; V4 and V5 are unused.
type CasbinRule struct {
	bun.BaseModel `bun:"table:casbin_rules,alias:cr"`

	Ptype string `bun:",pk,type:varchar(100),notnull"`
	V0    string `bun:",pk,type:varchar(255),notnull,default:''"` // subject, e.g. eperson:<uuid> or group:<name>
	V1    string `bun:",pk,type:varchar(255),notnull,default:''"` // object, e.g. item:<uuid>
	V2    string `bun:",pk,type:varchar(255),notnull,default:''"` // action
	V3    string `bun:",pk,type:varchar(255),notnull,default:''"` // go-bexpr condition over object attributes
	V4    string `bun:",pk,type:varchar(255),notnull,default:''"`
	V5    string `bun:",pk,type:varchar(255),notnull,default:''"`
}

func newCasbinRule(ptype string, rule []string) *CasbinRule {
	line := &CasbinRule{Ptype: ptype}
	fields := []*string{&line.V0, &line.V1, &line.V2, &line.V3, &line.V4, &line.V5}
	for i, v := range rule {
		if i >= len(fields) {
			break
		}
		*fields[i] = v
	}
	return line
}

func (r *CasbinRule) values() []string {
	return []string{r.V0, r.V1, r.V2, r.V3, r.V4, r.V5}
}

func (r *CasbinRule) String() string {
	values := r.values()
	last := len(values) - 1
	for last >= 0 && values[last] == "" {
		last--
	}
	return strings.Join(append([]string{r.Ptype}, values[:last+1]...), ", ")
}
