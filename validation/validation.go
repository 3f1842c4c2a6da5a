package validation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Violations groups validation failures by field name.
type Violations struct {
	Errors map[string][]error
}

func (violations *Violations) Add(field string, err error) {
	if err == nil {
		return
	}
	if violations.Errors == nil {
		violations.Errors = make(map[string][]error)
	}
	violations.Errors[field] = append(violations.Errors[field], err)
}

// Merge adds every violation of other under prefix.
func (violations *Violations) Merge(prefix string, other Violations) {
	for field, errs := range other.Errors {
		for _, err := range errs {
			violations.Add(prefix+field, err)
		}
	}
}

func (violations Violations) IsEmpty() bool {
	return len(violations.Errors) == 0
}

func (violations Violations) Fields() []string {
	fields := make([]string, 0, len(violations.Errors))
	for field := range violations.Errors {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

func (violations Violations) Error() string {
	var sb strings.Builder
	for i, field := range violations.Fields() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(field)
		sb.WriteString(": ")
		for j, err := range violations.Errors[field] {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(err.Error())
		}
	}
	return sb.String()
}

func (violations Violations) MarshalJSON() ([]byte, error) {
	errors := make(map[string][]string)
	for fieldName, fieldErrors := range violations.Errors {
		errors[fieldName] = make([]string, len(fieldErrors))
		for index, fieldError := range fieldErrors {
			errors[fieldName][index] = fieldError.Error()
		}
	}

	return json.Marshal(map[string]map[string][]string{
		"errors": errors,
	})
}

func Required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

// Between reports values outside [low, high].
func Between(name string, value, low, high int) error {
	if value < low || value > high {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, low, high, value)
	}
	return nil
}

// Token reports values that are not an RFC 9110 token (method or header name).
func Token(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	for i := 0; i < len(value); i++ {
		if !isTokenChar(value[i]) {
			return fmt.Errorf("%s contains invalid character %q", name, value[i])
		}
	}
	return nil
}

func isTokenChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}

// FieldValue reports header values that would break response framing.
func FieldValue(name, value string) error {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\r' || c == '\n' || c == 0 {
			return fmt.Errorf("%s contains control character %q", name, c)
		}
	}
	return nil
}

// Printable reports values containing whitespace or control bytes, which would
// split a request line into extra tokens.
func Printable(name, value string) error {
	for i := 0; i < len(value); i++ {
		if value[i] <= ' ' || value[i] == 0x7f {
			return fmt.Errorf("%s contains whitespace or control character %q", name, value[i])
		}
	}
	return nil
}

func OneOf[T comparable](name string, value T, allowed ...T) error {
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("%s has unsupported value %v", name, value)
	}
	return nil
}
