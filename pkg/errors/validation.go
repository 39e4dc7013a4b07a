package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateNonNegative validates that a numeric parameter is >= 0.
// The message carries the parameter name and the offending value.
func ValidateNonNegative(param string, value float64) error {
	if value < 0 {
		return New(ErrCodeInvalidRange, "%s must be >= 0, got %g", param, value)
	}
	return nil
}

// ValidatePositive validates that a numeric parameter is > 0.
func ValidatePositive(param string, value float64) error {
	if value <= 0 {
		return New(ErrCodeInvalidRange, "%s must be > 0, got %g", param, value)
	}
	return nil
}

// ValidateRange validates that a numeric parameter lies in [lo, hi].
func ValidateRange(param string, value, lo, hi float64) error {
	if value < lo || value > hi {
		return New(ErrCodeInvalidRange, "%s must be in [%g, %g], got %g", param, lo, hi, value)
	}
	return nil
}

// ValidateChoice validates that a string parameter is one of the valid
// options. The message lists the full valid set so the caller can correct
// the input without consulting documentation.
func ValidateChoice(param, value string, valid []string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return New(ErrCodeInvalidPolicy, "%s must be one of [%s], got %q",
		param, strings.Join(valid, ", "), value)
}

// ValidateAttribute validates that a named attribute exists in the given
// attribute set. An empty name is valid and means "attribute not used".
func ValidateAttribute(param, name string, available map[string]float64) error {
	if name == "" {
		return nil
	}
	if _, ok := available[name]; ok {
		return nil
	}
	keys := make([]string, 0, len(available))
	for k := range available {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return New(ErrCodeUnknownAttribute, "%s %q not found, available attributes: [%s]",
		param, name, strings.Join(keys, ", "))
}

// ValidateLayerName validates a layer name for emptiness and length.
func ValidateLayerName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "layer name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "layer name too long (max 256 characters)")
	}
	return nil
}

// FormatID renders a node or edge ID for error messages.
func FormatID(id int) string {
	return fmt.Sprintf("#%d", id)
}
