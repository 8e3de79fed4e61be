package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedInput marks bank or configuration entries that are missing
// required fields or carry out-of-range values.
var ErrMalformedInput = errors.New("malformed input")

var itemValidate = validator.New()

// Validate checks required fields and that Correct addresses a response.
func (it Item) Validate() error {
	if err := itemValidate.Struct(it); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedInput, describe(err))
	}
	if strings.TrimSpace(it.Text) == "" {
		return fmt.Errorf("%w: text is blank", ErrMalformedInput)
	}
	if it.Correct > len(it.Responses) {
		return fmt.Errorf("%w: correct is %d but only %d responses are listed", ErrMalformedInput, it.Correct, len(it.Responses))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "min":
			parts = append(parts, fmt.Sprintf("%s needs at least %s entries", field, fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be >= %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
