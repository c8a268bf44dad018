package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

type fakeGrants struct {
	held map[string]bool
	err  error
}

func (f fakeGrants) Holds(_ context.Context, subjectID string, label string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.held[subjectID+"|"+label], nil
}

type post struct {
	id string
}

func (post) ModelKey() string { return "post" }

type customTarget struct {
	rs *types.RuleSet
}

func (customTarget) ModelKey() string { return "post" }

func (t customTarget) FieldRuleSet() *types.RuleSet { return t.rs }

func mustRuleSet(t *testing.T, b *types.RuleSetBuilder) *types.RuleSet {
	t.Helper()
	rs, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return rs
}

func mustRegistry(t *testing.T, rulesets ...*types.RuleSet) *types.Registry {
	t.Helper()
	reg, err := types.NewRegistry(rulesets...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestResolve_ExplicitResolverShortCircuits(t *testing.T) {
	// Static grant held and hook allowing, yet the explicit rule decides
	// alone, for both verdicts.
	for _, want := range []bool{true, false} {
		rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
			WithRule("secret", types.ResolverRule(func(context.Context, types.Target, types.Subject, string) (bool, error) {
				return want, nil
			})).
			WithHook("secret", func(context.Context, types.Target, types.Subject) (types.Opinion, error) {
				return types.OpinionAllow, nil
			}).
			Nominate("secret"))

		grants := fakeGrants{held: map[string]bool{"u1|can_change_post_secret": true}}
		resolver := NewResolver(grants, mustRegistry(t, rs), false)

		got, err := resolver.Resolve(context.Background(), post{id: "p1"}, types.Principal{ID: "u1"}, "secret")
		if err != nil {
			t.Fatalf("want=%v err=%v", want, err)
		}
		if got != want {
			t.Fatalf("got=%v want=%v", got, want)
		}
	}
}

func TestResolve_ExplicitGrantLabelRule(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		WithRule("status", types.GrantLabelRule("can_publish_post")))
	grants := fakeGrants{held: map[string]bool{"u1|can_publish_post": true}}
	resolver := NewResolver(grants, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "status")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("expected allow for held explicit label")
	}

	got, err = resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u2"}, "status")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got {
		t.Fatal("expected deny for missing explicit label")
	}
}

func TestResolve_ResolverErrorPropagates(t *testing.T) {
	boom := errors.New("rule exploded")
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		WithRule("name", types.ResolverRule(func(context.Context, types.Target, types.Subject, string) (bool, error) {
			return false, boom
		})))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), true)

	if _, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name"); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolve_StaticGrantScenario(t *testing.T) {
	// Model "post", field "name", nominated as can_change_post_name.
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").Nominate("name"))
	grants := fakeGrants{held: map[string]bool{"u1|can_change_post_name": true}}
	resolver := NewResolver(grants, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("expected allow for held static grant")
	}

	got, err = resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u2"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got {
		t.Fatal("expected deny without static grant")
	}
}

func TestResolve_HookGrantsWithoutStaticGrant(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		Nominate("name").
		WithHook("name", func(_ context.Context, _ types.Target, subject types.Subject) (types.Opinion, error) {
			if subject.SubjectID() == "owner" {
				return types.OpinionAllow, nil
			}
			return types.OpinionNone, nil
		}))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "owner"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("expected hook to grant")
	}
}

func TestResolve_HookDenyCannotRevokeStaticGrant(t *testing.T) {
	// Deliberate additive-OR policy: a held static grant wins even when
	// the hook answers a definite deny.
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		Nominate("name").
		WithHook("name", func(context.Context, types.Target, types.Subject) (types.Opinion, error) {
			return types.OpinionDeny, nil
		}))
	grants := fakeGrants{held: map[string]bool{"u1|can_change_post_name": true}}
	resolver := NewResolver(grants, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("expected static grant to win over hook deny")
	}
}

func TestResolve_DefiniteDenyBeatsDefaultAllow(t *testing.T) {
	// A definite hook deny on a non-nominated field is a deny even when
	// the default verdict would allow.
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		DefaultVerdict(true).
		WithHook("name", func(context.Context, types.Target, types.Subject) (types.Opinion, error) {
			return types.OpinionDeny, nil
		}))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got {
		t.Fatal("expected definite hook deny")
	}
}

func TestResolve_HookNoOpinionNominatedNotHeld(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		DefaultVerdict(true).
		Nominate("name").
		WithHook("name", func(context.Context, types.Target, types.Subject) (types.Opinion, error) {
			return types.OpinionNone, nil
		}))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got {
		t.Fatal("nominated but unheld grant must deny, not default")
	}
}

func TestResolve_DefaultVerdict(t *testing.T) {
	for _, def := range []bool{true, false} {
		rs := mustRuleSet(t, types.NewRuleSetBuilder("post").DefaultVerdict(def))
		resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

		got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "notes")
		if err != nil {
			t.Fatalf("default=%v err=%v", def, err)
		}
		if got != def {
			t.Fatalf("default=%v got=%v", def, got)
		}
	}
}

func TestResolve_UnknownFieldFallsThroughToDefault(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		DefaultVerdict(true).
		Nominate("name"))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "no_such_field")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("unknown field must resolve to default verdict")
	}
}

func TestResolve_UnregisteredModelUsesFallbackVerdict(t *testing.T) {
	registry := mustRegistry(t)
	for _, fallback := range []bool{true, false} {
		resolver := NewResolver(fakeGrants{}, registry, fallback)
		got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name")
		if err != nil {
			t.Fatalf("fallback=%v err=%v", fallback, err)
		}
		if got != fallback {
			t.Fatalf("fallback=%v got=%v", fallback, got)
		}
	}
}

func TestResolve_TargetProvidedRuleSetWins(t *testing.T) {
	registered := mustRuleSet(t, types.NewRuleSetBuilder("post").DefaultVerdict(false))
	carried := mustRuleSet(t, types.NewRuleSetBuilder("post").DefaultVerdict(true))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, registered), false)

	got, err := resolver.Resolve(context.Background(), customTarget{rs: carried}, types.Principal{ID: "u1"}, "name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("expected the target-carried rule set to decide")
	}
}

func TestResolve_ExprRule(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		WithRule("budget", types.ExprRule(`ctx["subject_role"] == "admin"`)))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	got, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1", Role: "Admin"}, "budget")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("expected expr rule to allow admin")
	}

	got, err = resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u2", Role: "editor"}, "budget")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got {
		t.Fatal("expected expr rule to deny editor")
	}
}

func TestResolve_ExprRuleCompileErrorIsConfigError(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		WithRule("budget", types.ExprRule(`ctx["subject_role"`)))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	_, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "budget")
	if err == nil {
		t.Fatal("expected error")
	}
	if !types.IsConfigError(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolve_GrantStoreErrorPropagates(t *testing.T) {
	boom := errors.New("store down")
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").Nominate("name"))
	resolver := NewResolver(fakeGrants{err: boom}, mustRegistry(t, rs), false)

	if _, err := resolver.Resolve(context.Background(), post{}, types.Principal{ID: "u1"}, "name"); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolve_NilTargetOrSubjectIsConfigError(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post"))
	resolver := NewResolver(fakeGrants{}, mustRegistry(t, rs), false)

	if _, err := resolver.Resolve(context.Background(), nil, types.Principal{ID: "u1"}, "name"); !types.IsConfigError(err) {
		t.Fatalf("err=%v", err)
	}
	if _, err := resolver.Resolve(context.Background(), post{}, nil, "name"); !types.IsConfigError(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestRuleSetBuilder_MalformedRuleFailsLoudly(t *testing.T) {
	cases := []struct {
		name string
		rule types.FieldRule
	}{
		{name: "zero variant", rule: types.FieldRule{}},
		{name: "empty label", rule: types.GrantLabelRule("  ")},
		{name: "nil resolver", rule: types.ResolverRule(nil)},
		{name: "empty expr", rule: types.ExprRule(" ")},
	}
	for _, tc := range cases {
		_, err := types.NewRuleSetBuilder("post").WithRule("name", tc.rule).Build()
		if err == nil {
			t.Fatalf("case=%q expected error", tc.name)
		}
		if !types.IsConfigError(err) {
			t.Fatalf("case=%q err=%v", tc.name, err)
		}
	}
}

func TestRuleSet_LabelAndHookNameDerivation(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("Post").Nominate("name"))
	if got := rs.GrantLabel("name"); got != "can_change_post_name" {
		t.Fatalf("label=%q", got)
	}
	if got := rs.HookName("name"); got != "can_change_name" {
		t.Fatalf("hook name=%q", got)
	}
	label, ok := rs.NominatedLabel("name")
	if !ok || label != "can_change_post_name" {
		t.Fatalf("nominated=%q ok=%v", label, ok)
	}

	custom := mustRuleSet(t, types.NewRuleSetBuilder("post").
		LabelTemplate("may_edit_{model}.{field}").
		Nominate("name"))
	label, ok = custom.NominatedLabel("name")
	if !ok || label != "may_edit_post.name" {
		t.Fatalf("nominated=%q ok=%v", label, ok)
	}
}

func TestRuleSet_FieldsUnion(t *testing.T) {
	rs := mustRuleSet(t, types.NewRuleSetBuilder("post").
		WithRule("secret", types.ExprRule(`false`)).
		WithHook("body", func(context.Context, types.Target, types.Subject) (types.Opinion, error) {
			return types.OpinionNone, nil
		}).
		Nominate("name", "body"))
	if got := strings.Join(rs.Fields(), ","); got != "body,name,secret" {
		t.Fatalf("fields=%q", got)
	}
}
