package types

import "context"

// RuleKind tags the variant carried by a FieldRule.
type RuleKind int

const (
	RuleKindNone RuleKind = iota
	RuleKindGrantLabel
	RuleKindResolver
	RuleKindExpr
)

// ResolverFunc is an explicit per-field rule with full custom logic. Errors
// returned here propagate to the caller unmodified.
type ResolverFunc func(ctx context.Context, target Target, subject Subject, field string) (bool, error)

// HookFunc is an object-level opinion for one field, registered at rule-set
// build time. OpinionNone means the hook has nothing to say for this call.
type HookFunc func(ctx context.Context, target Target, subject Subject) (Opinion, error)

// FieldRule is the explicit rule variant attached to a single field. Exactly
// one of GrantLabel, Resolver, or Expr is set, selected by Kind. A zero
// FieldRule is malformed and fails resolution with a ConfigError.
type FieldRule struct {
	Kind       RuleKind
	GrantLabel string
	Resolver   ResolverFunc
	Expr       string
}

func GrantLabelRule(label string) FieldRule {
	return FieldRule{Kind: RuleKindGrantLabel, GrantLabel: label}
}

func ResolverRule(fn ResolverFunc) FieldRule {
	return FieldRule{Kind: RuleKindResolver, Resolver: fn}
}

// ExprRule is a CEL expression over a map variable `ctx` (string keys and
// values: subject_id, subject_role, model, field, plus anything the target
// contributes via ExprContexter). The expression must produce a bool.
func ExprRule(expr string) FieldRule {
	return FieldRule{Kind: RuleKindExpr, Expr: expr}
}
