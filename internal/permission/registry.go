package permission

import "slices"

// Registry is the ordered set of rules consulted by the Evaluator. It is
// assembled once at startup and never modified, so concurrent reads need no lock.
type Registry struct {
	rules []Rule
}

// NewRegistry copies rules into a new registry. Nil rules are skipped.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make([]Rule, 0, len(rules))}
	for _, rule := range rules {
		if rule != nil {
			r.rules = append(r.rules, rule)
		}
	}
	return r
}

// Rules returns a copy of the registered rules in evaluation order.
func (r *Registry) Rules() []Rule {
	if r == nil {
		return nil
	}
	return slices.Clone(r.rules)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// With returns a new registry holding r's rules followed by extra.
func (r *Registry) With(extra ...Rule) *Registry {
	return NewRegistry(append(r.Rules(), extra...)...)
}
