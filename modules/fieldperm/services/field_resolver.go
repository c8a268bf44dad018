package services

import (
	"context"
	"strings"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/ports"
	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

// Resolver decides, per (target, subject, field), whether the subject may
// modify the field. Precedence is fixed: an explicit rule short-circuits
// everything; otherwise the hook opinion and the static grant check are
// combined with OR; if nothing addresses the field the rule set's default
// verdict applies. Verdicts are computed fresh on every call.
type Resolver struct {
	grants   ports.GrantStore
	registry *types.Registry

	// fallbackVerdict answers for targets whose model has no registered
	// rule set at all.
	fallbackVerdict bool
}

func NewResolver(grants ports.GrantStore, registry *types.Registry, fallbackVerdict bool) *Resolver {
	return &Resolver{grants: grants, registry: registry, fallbackVerdict: fallbackVerdict}
}

func (r *Resolver) Resolve(ctx context.Context, target types.Target, subject types.Subject, field string) (bool, error) {
	if target == nil {
		return false, types.NewConfigError("fieldperm: resolve with nil target")
	}
	if subject == nil {
		return false, types.NewConfigError("fieldperm: resolve with nil subject")
	}
	field = strings.TrimSpace(field)

	rs := r.ruleSetFor(target)
	if rs == nil {
		return r.fallbackVerdict, nil
	}

	// An unknown field simply matches no rule source below and falls
	// through to the default verdict; it never raises.

	if rule, ok := rs.Rule(field); ok {
		return r.evalRule(ctx, rs, rule, target, subject, field)
	}

	hookOpinion := types.OpinionNone
	if hook, ok := rs.Hook(field); ok {
		opinion, err := hook(ctx, target, subject)
		if err != nil {
			return false, err
		}
		hookOpinion = opinion
	}

	staticDefinite := false
	staticAllowed := false
	if label, ok := rs.NominatedLabel(field); ok {
		holds, err := r.grants.Holds(ctx, subject.SubjectID(), label)
		if err != nil {
			return false, err
		}
		staticDefinite = true
		staticAllowed = holds
	}

	hookAllowed, hookDefinite := hookOpinion.Definite()
	if !hookDefinite && !staticDefinite {
		return rs.DefaultVerdict(), nil
	}

	// Additive combination: either source granting is enough. A hook deny
	// cannot revoke a held static grant.
	return (hookDefinite && hookAllowed) || (staticDefinite && staticAllowed), nil
}

func (r *Resolver) evalRule(ctx context.Context, rs *types.RuleSet, rule types.FieldRule, target types.Target, subject types.Subject, field string) (bool, error) {
	switch rule.Kind {
	case types.RuleKindGrantLabel:
		return r.grants.Holds(ctx, subject.SubjectID(), rule.GrantLabel)
	case types.RuleKindResolver:
		if rule.Resolver == nil {
			return false, types.NewConfigError("fieldperm: nil resolver rule for field " + field)
		}
		return rule.Resolver(ctx, target, subject, field)
	case types.RuleKindExpr:
		return evalFieldExpr(rule.Expr, exprContext(rs, target, subject, field))
	default:
		return false, types.NewConfigError("fieldperm: malformed rule for field " + field)
	}
}

func (r *Resolver) ruleSetFor(target types.Target) *types.RuleSet {
	if provider, ok := target.(types.RuleSetProvider); ok {
		if rs := provider.FieldRuleSet(); rs != nil {
			return rs
		}
	}
	if r.registry == nil {
		return nil
	}
	rs, ok := r.registry.Lookup(strings.ToLower(strings.TrimSpace(target.ModelKey())))
	if !ok {
		return nil
	}
	return rs
}

func exprContext(rs *types.RuleSet, target types.Target, subject types.Subject, field string) map[string]string {
	out := map[string]string{}
	if contexter, ok := target.(types.ExprContexter); ok {
		for key, value := range contexter.ExprContext() {
			out[key] = value
		}
	}
	out["model"] = rs.Model()
	out["field"] = field
	out["subject_id"] = subject.SubjectID()
	if roled, ok := subject.(interface{ RoleSlug() string }); ok {
		out["subject_role"] = roled.RoleSlug()
	}
	return out
}
