package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// bexprCache stores compiled go-bexpr evaluators keyed by condition string.
var bexprCache = &sync.Map{}

// BexprMatchFunction returns the bexprMatch function for Casbin. It evaluates
// a policy condition against the attributes of the requested object.
func BexprMatchFunction() func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("bexprMatch requires 2 arguments: condition, attributes")
		}

		condition, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("bexprMatch: first argument must be string (condition)")
		}

		attributes, ok := args[1].(map[string]any)
		if !ok {
			return false, fmt.Errorf("bexprMatch: second argument must be map[string]any (attributes)")
		}

		return EvaluateBexpr(condition, attributes), nil
	}
}

// EvaluateBexpr evaluates a go-bexpr condition against object attributes.
// An empty condition matches everything; an invalid one matches nothing.
func EvaluateBexpr(condition string, attributes map[string]any) bool {
	if strings.TrimSpace(condition) == "" {
		return true
	}

	var evaluator *bexpr.Evaluator
	if cached, ok := bexprCache.Load(condition); ok {
		evaluator = cached.(*bexpr.Evaluator)
	} else {
		compiled, err := bexpr.CreateEvaluator(condition)
		if err != nil {
			return false
		}
		bexprCache.Store(condition, compiled)
		evaluator = compiled
	}

	matches, err := evaluator.Evaluate(attributes)
	if err != nil {
		// e.g. the condition names an attribute this object does not have
		return false
	}
	return matches
}

// ValidateCondition reports whether condition compiles.
func ValidateCondition(condition string) error {
	if strings.TrimSpace(condition) == "" {
		return nil
	}
	if _, err := bexpr.CreateEvaluator(condition); err != nil {
		return fmt.Errorf("invalid policy condition %q: %w", condition, err)
	}
	return nil
}
