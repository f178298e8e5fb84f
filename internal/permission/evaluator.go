package permission

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/telemetry"
)

const tracerName = "dspace-rest/permission"

// Evaluator answers permission questions by OR-ing the registry's rules.
// The first rule that allows wins; a rule that errors or panics is logged and
// counted as a "no", so the remaining rules still get their turn.
type Evaluator struct {
	registry *Registry
	metrics  *telemetry.PermissionMetrics
}

// NewEvaluator creates an evaluator over registry. metrics may be nil.
func NewEvaluator(registry *Registry, metrics *telemetry.PermissionMetrics) *Evaluator {
	return &Evaluator{registry: registry, metrics: metrics}
}

// HasPermission checks action on the (targetID, kind) pair.
func (e *Evaluator) HasPermission(ctx context.Context, caller auth.Caller, targetID string, kind Kind, action Action) bool {
	req := Request{Caller: caller, TargetID: targetID, Kind: kind, Action: action}
	return e.decide(ctx, req, "HasPermission", func(ctx context.Context, rule Rule) (bool, error) {
		if !rule.Supports(kind, action) {
			return false, nil
		}
		return rule.Evaluate(ctx, req)
	})
}

// HasObjectPermission checks action on an already resolved object.
func (e *Evaluator) HasObjectPermission(ctx context.Context, caller auth.Caller, obj Identifiable, action Action) bool {
	if obj == nil {
		return false
	}
	return e.HasPermission(ctx, caller, obj.PermissionID(), obj.PermissionKind(), action)
}

// HasPatchPermission checks a patch. Rules implementing PatchRule decide
// themselves; all others are asked for WRITE.
func (e *Evaluator) HasPatchPermission(ctx context.Context, caller auth.Caller, targetID string, kind Kind, patch Patch) bool {
	req := Request{Caller: caller, TargetID: targetID, Kind: kind, Action: ActionWrite}
	return e.decide(ctx, req, "HasPatchPermission", func(ctx context.Context, rule Rule) (bool, error) {
		if !rule.Supports(kind, ActionWrite) {
			return false, nil
		}
		if pr, ok := rule.(PatchRule); ok {
			return pr.EvaluatePatch(ctx, req, patch)
		}
		return rule.Evaluate(ctx, req)
	})
}

func (e *Evaluator) decide(ctx context.Context, req Request, op string, eval func(context.Context, Rule) (bool, error)) bool {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "permission."+op,
		attribute.String(telemetry.AttrTargetKind, req.Kind.String()),
		attribute.String(telemetry.AttrTargetID, req.TargetID),
		attribute.String(telemetry.AttrAction, req.Action.String()),
		attribute.String(telemetry.AttrPrincipalID, req.Caller.ID()),
	)
	defer span.End()

	allowed, matched := false, ""
	if req.Kind.Valid() {
		for _, rule := range e.registry.Rules() {
			ok, err := safeEvaluate(ctx, rule, eval)
			if err != nil {
				log.Printf("permission rule %s failed (kind=%s, id=%s, action=%s): %v",
					rule.Name(), req.Kind, req.TargetID, req.Action, err)
				telemetry.AddEvent(span, "rule.failed",
					attribute.String(telemetry.AttrMatchedRule, rule.Name()),
					attribute.String("error", err.Error()))
				e.metrics.RecordRuleError(ctx, rule.Name())
				continue
			}
			if ok {
				allowed, matched = true, rule.Name()
				break
			}
		}
	}

	span.SetAttributes(
		attribute.Bool(telemetry.AttrAllowed, allowed),
		attribute.String(telemetry.AttrMatchedRule, matched),
	)
	e.metrics.RecordDecision(ctx, req.Kind.String(), req.Action.String(), allowed)
	return allowed
}

func safeEvaluate(ctx context.Context, rule Rule, eval func(context.Context, Rule) (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return eval(ctx, rule)
}
