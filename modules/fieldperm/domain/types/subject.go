package types

import (
	"context"
	"strings"
)

// Subject is the acting principal whose field access is being checked.
// Grant lookups go through ports.GrantStore keyed by SubjectID; the core
// never talks to the grant backend directly.
type Subject interface {
	SubjectID() string
}

// Target is the object on which field-level access is evaluated. ModelKey
// identifies the model the target belongs to and feeds grant-label
// derivation.
type Target interface {
	ModelKey() string
}

// RuleSetProvider lets a target carry its own rule set instead of the one
// registered for its model. Per-instance customization substitutes a
// differently configured target; shared rule sets are never mutated.
type RuleSetProvider interface {
	FieldRuleSet() *RuleSet
}

// InstancePermitter is the object-level override consulted by the
// permission delegate. A target implementing it answers permission checks
// for itself; its boolean is final for that call.
type InstancePermitter interface {
	HasPerm(ctx context.Context, subject Subject, label string) (bool, error)
}

// ExprContexter contributes target attributes to the evaluation context of
// expression rules.
type ExprContexter interface {
	ExprContext() map[string]string
}

// Principal is a minimal Subject backed by an identity string and an
// optional role slug.
type Principal struct {
	ID   string
	Role string
}

func (p Principal) SubjectID() string { return strings.TrimSpace(p.ID) }

func (p Principal) RoleSlug() string {
	return strings.ToLower(strings.TrimSpace(p.Role))
}
