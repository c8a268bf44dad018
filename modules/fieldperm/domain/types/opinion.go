package types

// Opinion is a tri-state permission answer. OpinionNone means the source
// has no say and the caller must consult the next one.
type Opinion int

const (
	OpinionNone Opinion = iota
	OpinionAllow
	OpinionDeny
)

func OpinionFromBool(allowed bool) Opinion {
	if allowed {
		return OpinionAllow
	}
	return OpinionDeny
}

// Definite reports whether the opinion is an actual answer, and the answer.
func (o Opinion) Definite() (allowed bool, ok bool) {
	switch o {
	case OpinionAllow:
		return true, true
	case OpinionDeny:
		return false, true
	default:
		return false, false
	}
}

func (o Opinion) String() string {
	switch o {
	case OpinionAllow:
		return "allow"
	case OpinionDeny:
		return "deny"
	default:
		return "none"
	}
}
