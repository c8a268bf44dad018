package types

import "sort"

// Registry maps model keys to their sealed rule sets. Built once at startup
// and read-only afterwards.
type Registry struct {
	rulesets map[string]*RuleSet
}

func NewRegistry(rulesets ...*RuleSet) (*Registry, error) {
	out := make(map[string]*RuleSet, len(rulesets))
	for _, rs := range rulesets {
		if rs == nil {
			return nil, NewConfigError("fieldperm: nil rule set in registry")
		}
		if _, dup := out[rs.Model()]; dup {
			return nil, NewConfigError("fieldperm: duplicate rule set for model " + rs.Model())
		}
		out[rs.Model()] = rs
	}
	return &Registry{rulesets: out}, nil
}

func (r *Registry) Lookup(model string) (*RuleSet, bool) {
	rs, ok := r.rulesets[model]
	return rs, ok
}

func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.rulesets))
	for model := range r.rulesets {
		out = append(out, model)
	}
	sort.Strings(out)
	return out
}
