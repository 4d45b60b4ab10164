package operation

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidationError reports a parameter that is absent or malformed. It is
// raised before any remote call for the item is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid parameters: " + e.Reason
	}
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// asValidationError converts ozzo-validation results into *ValidationError.
// When several fields fail, the first in name order is reported.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	var errs validation.Errors
	if errors.As(err, &errs) && len(errs) > 0 {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		first := errs[keys[0]]
		var nested *ValidationError
		if errors.As(first, &nested) {
			return nested
		}
		return &ValidationError{Field: keys[0], Reason: first.Error()}
	}
	return &ValidationError{Reason: err.Error()}
}
