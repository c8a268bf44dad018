package authz

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

func ModeFromEnv() (Mode, error) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv("GRANTS_MODE")))
	if raw == "" {
		return ModeEnforce, nil
	}
	switch Mode(raw) {
	case ModeEnforce, ModeShadow:
		return Mode(raw), nil
	case ModeDisabled:
		if os.Getenv("GRANTS_UNSAFE_ALLOW_DISABLED") != "1" {
			return "", errors.New("authz: GRANTS_MODE=disabled requires GRANTS_UNSAFE_ALLOW_DISABLED=1")
		}
		return ModeDisabled, nil
	default:
		return "", errors.New("authz: invalid GRANTS_MODE (expected enforce|shadow|disabled)")
	}
}

// Store is the default model-level grant backend: a casbin enforcer over a
// (subject, label) policy. It satisfies the resolver's grant-store port.
type Store struct {
	enforcer *casbin.Enforcer
	mode     Mode
}

func NewStore(modelPath string, policyPath string, mode Mode) (*Store, error) {
	adapter := fileadapter.NewAdapter(policyPath)
	enforcer, err := casbin.NewEnforcer(modelPath)
	if err != nil {
		return nil, err
	}
	enforcer.SetAdapter(adapter)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return &Store{enforcer: enforcer, mode: mode}, nil
}

// Check returns the policy decision for (subject, label) and whether the
// store is enforcing it. Shadow mode evaluates without enforcing so callers
// can log would-be denials.
func (s *Store) Check(subject string, label string) (allowed bool, enforced bool, err error) {
	switch s.mode {
	case ModeDisabled:
		return true, false, nil
	case ModeShadow:
		ok, err := s.enforcer.Enforce(subject, label)
		if err != nil {
			return false, false, err
		}
		return ok, false, nil
	case ModeEnforce:
		ok, err := s.enforcer.Enforce(subject, label)
		if err != nil {
			return false, true, err
		}
		return ok, true, nil
	default:
		return false, false, errors.New("authz: unknown mode")
	}
}

// Holds implements the grant-store port. When the decision is not enforced
// (shadow or disabled mode) the grant is reported as held.
func (s *Store) Holds(_ context.Context, subjectID string, label string) (bool, error) {
	allowed, enforced, err := s.Check(SubjectFromID(subjectID), strings.TrimSpace(label))
	if err != nil {
		return false, err
	}
	if !enforced {
		return true, nil
	}
	return allowed, nil
}
