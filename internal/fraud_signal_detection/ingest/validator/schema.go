package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects snapshots that cannot be analyzed consistently. Field
// rules live in the `validate` tags of the domain types. Missing facility
// ids and financial records without a join key are data-quality skips
// handled downstream, not errors here.
func Validate(s *domain.Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return fieldError(fieldErrs)
		}
		return err
	}

	seen := map[string]bool{}
	for i, f := range s.Facilities {
		if !f.HasID() {
			continue
		}
		id := strings.TrimSpace(f.ID)
		if seen[id] {
			return fmt.Errorf("duplicate facility id %q (record %d)", id, i)
		}
		seen[id] = true
	}

	return nil
}

// fieldError reports every violated rule, in struct order.
func fieldError(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, describe(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Snapshot.")
	switch e.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s, got %v", field, e.Param(), e.Value())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s, got %v", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, e.Tag())
	}
}
