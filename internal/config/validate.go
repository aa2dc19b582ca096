package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

var validate = validator.New()

// Validator returns the shared validator instance.
func Validator() *validator.Validate { return validate }

// ValidateTarget checks a target's fields and that its dialect has a
// registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Dialect == "" {
		return fmt.Errorf("target dialect is required")
	}
	if err := validate.Struct(t); err != nil {
		return err
	}
	if !adapter.IsRegistered(t.Dialect) {
		return &core.UnsupportedDialectError{
			Dialect:   t.Dialect,
			Op:        "configure",
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
