package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports user text that was expected to be a whole number.
type ParseError struct {
	Field string
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q is not a whole number", e.Field, e.Input)
}

// ParseWholeNumber accepts surrounding whitespace and an optional leading
// "+", nothing else. Negative values are rejected.
func ParseWholeNumber(field, input string) (int, error) {
	cleaned := strings.TrimSpace(input)
	if cleaned == "" || strings.HasPrefix(cleaned, "-") {
		return 0, &ParseError{Field: field, Input: input}
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, &ParseError{Field: field, Input: input}
	}
	return n, nil
}
