package types

import (
	"sort"
	"strings"
)

const (
	DefaultLabelTemplate = "can_change_{model}_{field}"
	DefaultHookTemplate  = "can_change_{field}"
)

// RuleSet is the per-model field-permission configuration: explicit rules,
// registered hooks, statically nominated fields, and the default verdict
// for fields nothing addresses. It is sealed at Build time and safe for
// concurrent readers; per-instance customization builds a new RuleSet.
type RuleSet struct {
	model          string
	rules          map[string]FieldRule
	hooks          map[string]HookFunc
	nominated      map[string]string
	defaultVerdict bool
	labelTemplate  string
	hookTemplate   string
}

func (rs *RuleSet) Model() string { return rs.model }

func (rs *RuleSet) Rule(field string) (FieldRule, bool) {
	rule, ok := rs.rules[field]
	return rule, ok
}

func (rs *RuleSet) Hook(field string) (HookFunc, bool) {
	hook, ok := rs.hooks[field]
	return hook, ok
}

// NominatedLabel returns the grant label declared for the field, if the
// field was nominated for static grant checks.
func (rs *RuleSet) NominatedLabel(field string) (string, bool) {
	label, ok := rs.nominated[field]
	return label, ok
}

func (rs *RuleSet) DefaultVerdict() bool { return rs.defaultVerdict }

// GrantLabel derives the conventional grant label for a field of this model.
func (rs *RuleSet) GrantLabel(field string) string {
	return expandTemplate(rs.labelTemplate, rs.model, field)
}

// HookName derives the conventional hook name for a field. It is reporting
// metadata only; hook dispatch is by table lookup, never by name.
func (rs *RuleSet) HookName(field string) string {
	return expandTemplate(rs.hookTemplate, rs.model, field)
}

// Fields returns every field this rule set addresses, sorted.
func (rs *RuleSet) Fields() []string {
	seen := make(map[string]struct{}, len(rs.rules)+len(rs.hooks)+len(rs.nominated))
	for field := range rs.rules {
		seen[field] = struct{}{}
	}
	for field := range rs.hooks {
		seen[field] = struct{}{}
	}
	for field := range rs.nominated {
		seen[field] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for field := range seen {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// RuleSetBuilder accumulates configuration for one model and seals it into
// an immutable RuleSet.
type RuleSetBuilder struct {
	model          string
	rules          map[string]FieldRule
	hooks          map[string]HookFunc
	nominated      []string
	defaultVerdict bool
	labelTemplate  string
	hookTemplate   string
	errs           []string
}

func NewRuleSetBuilder(model string) *RuleSetBuilder {
	return &RuleSetBuilder{
		model:         strings.ToLower(strings.TrimSpace(model)),
		rules:         make(map[string]FieldRule),
		hooks:         make(map[string]HookFunc),
		labelTemplate: DefaultLabelTemplate,
		hookTemplate:  DefaultHookTemplate,
	}
}

func (b *RuleSetBuilder) WithRule(field string, rule FieldRule) *RuleSetBuilder {
	field = strings.TrimSpace(field)
	if field == "" {
		b.errs = append(b.errs, "rule with empty field")
		return b
	}
	if _, dup := b.rules[field]; dup {
		b.errs = append(b.errs, "duplicate rule for field "+field)
		return b
	}
	b.rules[field] = rule
	return b
}

func (b *RuleSetBuilder) WithHook(field string, hook HookFunc) *RuleSetBuilder {
	field = strings.TrimSpace(field)
	if field == "" || hook == nil {
		b.errs = append(b.errs, "invalid hook registration")
		return b
	}
	if _, dup := b.hooks[field]; dup {
		b.errs = append(b.errs, "duplicate hook for field "+field)
		return b
	}
	b.hooks[field] = hook
	return b
}

// Nominate declares fields for static grant checks under the label
// template of this rule set.
func (b *RuleSetBuilder) Nominate(fields ...string) *RuleSetBuilder {
	b.nominated = append(b.nominated, fields...)
	return b
}

func (b *RuleSetBuilder) DefaultVerdict(allow bool) *RuleSetBuilder {
	b.defaultVerdict = allow
	return b
}

func (b *RuleSetBuilder) LabelTemplate(template string) *RuleSetBuilder {
	if strings.TrimSpace(template) != "" {
		b.labelTemplate = template
	}
	return b
}

func (b *RuleSetBuilder) HookTemplate(template string) *RuleSetBuilder {
	if strings.TrimSpace(template) != "" {
		b.hookTemplate = template
	}
	return b
}

func (b *RuleSetBuilder) Build() (*RuleSet, error) {
	if b.model == "" {
		b.errs = append(b.errs, "model required")
	}
	for field, rule := range b.rules {
		if err := validateRule(rule); err != "" {
			b.errs = append(b.errs, "field "+field+": "+err)
		}
	}
	if len(b.errs) > 0 {
		sort.Strings(b.errs)
		return nil, NewConfigError("fieldperm: invalid rule set: " + strings.Join(b.errs, "; "))
	}

	rs := &RuleSet{
		model:          b.model,
		rules:          make(map[string]FieldRule, len(b.rules)),
		hooks:          make(map[string]HookFunc, len(b.hooks)),
		nominated:      make(map[string]string, len(b.nominated)),
		defaultVerdict: b.defaultVerdict,
		labelTemplate:  b.labelTemplate,
		hookTemplate:   b.hookTemplate,
	}
	for field, rule := range b.rules {
		rs.rules[field] = rule
	}
	for field, hook := range b.hooks {
		rs.hooks[field] = hook
	}
	for _, raw := range b.nominated {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}
		rs.nominated[field] = rs.GrantLabel(field)
	}
	return rs, nil
}

func validateRule(rule FieldRule) string {
	switch rule.Kind {
	case RuleKindGrantLabel:
		if strings.TrimSpace(rule.GrantLabel) == "" {
			return "grant label rule with empty label"
		}
	case RuleKindResolver:
		if rule.Resolver == nil {
			return "resolver rule with nil func"
		}
	case RuleKindExpr:
		if strings.TrimSpace(rule.Expr) == "" {
			return "expr rule with empty expression"
		}
	default:
		return "malformed rule variant"
	}
	return ""
}

func expandTemplate(template string, model string, field string) string {
	return strings.NewReplacer("{model}", model, "{field}", field).Replace(template)
}
