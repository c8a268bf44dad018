package types

import "errors"

// ConfigError marks a programmer mistake in rule configuration (malformed
// rule variant, duplicate model registration). It is distinct from a deny
// verdict: resolution fails loudly instead of defaulting.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func NewConfigError(msg string) error { return &ConfigError{msg: msg} }

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
