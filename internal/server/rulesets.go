package server

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

type ruleSetFile struct {
	Version int             `yaml:"version"`
	Models  []ruleSetConfig `yaml:"models"`
}

type ruleSetConfig struct {
	Model          string       `yaml:"model"`
	DefaultVerdict bool         `yaml:"default_verdict"`
	LabelTemplate  string       `yaml:"label_template"`
	Nominated      []string     `yaml:"nominated"`
	Rules          []ruleConfig `yaml:"rules"`
}

type ruleConfig struct {
	Field      string `yaml:"field"`
	GrantLabel string `yaml:"grant_label"`
	Expr       string `yaml:"expr"`
}

// loadRegistry builds the model registry from the YAML rule-set file. Only
// declarative rule variants (grant labels, expressions) can come from
// config; hook and resolver funcs are registered in code by embedders.
func loadRegistry() (*types.Registry, error) {
	path := os.Getenv("RULESETS_PATH")
	if path == "" {
		p, err := defaultRuleSetsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rf ruleSetFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, err
	}
	if rf.Version != 1 {
		return nil, errors.New("rulesets: unsupported version")
	}
	if len(rf.Models) == 0 {
		return nil, errors.New("rulesets: empty")
	}

	rulesets := make([]*types.RuleSet, 0, len(rf.Models))
	for _, cfg := range rf.Models {
		builder := types.NewRuleSetBuilder(cfg.Model).
			DefaultVerdict(cfg.DefaultVerdict).
			LabelTemplate(cfg.LabelTemplate).
			Nominate(cfg.Nominated...)
		for _, rule := range cfg.Rules {
			switch {
			case rule.GrantLabel != "" && rule.Expr != "":
				return nil, errors.New("rulesets: rule for field " + rule.Field + " sets both grant_label and expr")
			case rule.GrantLabel != "":
				builder.WithRule(rule.Field, types.GrantLabelRule(rule.GrantLabel))
			case rule.Expr != "":
				builder.WithRule(rule.Field, types.ExprRule(rule.Expr))
			default:
				return nil, errors.New("rulesets: rule for field " + rule.Field + " sets neither grant_label nor expr")
			}
		}
		rs, err := builder.Build()
		if err != nil {
			return nil, err
		}
		rulesets = append(rulesets, rs)
	}
	return types.NewRegistry(rulesets...)
}

func defaultRuleSetsPath() (string, error) {
	path := "config/rulesets.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: rulesets config not found")
}
