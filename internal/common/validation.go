package common

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ValidationError is one rejected setting, keyed by its environment variable.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s=%v %s", e.Field, e.Value, e.Message)
}

// ValidationRule inspects a single setting and returns nil when it is acceptable.
type ValidationRule func(field string, value any) *ValidationError

// Validator collects every failing setting so a misconfigured stage reports all
// of them in one run instead of one per restart.
type Validator struct {
	failures []ValidationError
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) Field(field string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if f := rule(field, value); f != nil {
			v.failures = append(v.failures, *f)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

func (v *Validator) Errors() []ValidationError { return v.failures }

func (v *Validator) ErrorMessage() string {
	parts := make([]string, len(v.failures))
	for i, f := range v.failures {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}

// Err returns nil or a CONFIG_ERROR listing every failure.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("CONFIG_ERROR", "invalid configuration: "+v.ErrorMessage(), ErrConfig)
}

func Required(field string, value any) *ValidationError {
	missing := value == nil
	switch s := value.(type) {
	case string:
		missing = strings.TrimSpace(s) == ""
	case *string:
		missing = s == nil || strings.TrimSpace(*s) == ""
	}
	if missing {
		return &ValidationError{Field: field, Value: `""`, Message: "is required"}
	}
	return nil
}

func OneOf(allowed ...string) ValidationRule {
	return func(field string, value any) *ValidationError {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return &ValidationError{Field: field, Value: value, Message: "must be one of " + strings.Join(allowed, "|")}
	}
}

func NonNegative(field string, value any) *ValidationError {
	negative := false
	switch n := value.(type) {
	case float64:
		negative = n < 0
	case int:
		negative = n < 0
	case int32:
		negative = n < 0
	case time.Duration:
		negative = n < 0
	}
	if negative {
		return &ValidationError{Field: field, Value: value, Message: "must not be negative"}
	}
	return nil
}

// Secret hides the value of a credential in the resulting message.
func Secret(rule ValidationRule) ValidationRule {
	return func(field string, value any) *ValidationError {
		f := rule(field, value)
		if f != nil {
			f.Value = "***"
		}
		return f
	}
}

// OnPath requires the value to name an executable found on PATH.
func OnPath(field string, value any) *ValidationError {
	name, _ := value.(string)
	if _, err := exec.LookPath(name); err != nil {
		return &ValidationError{Field: field, Value: value, Message: "is not an executable on PATH"}
	}
	return nil
}
