package eddn

import (
	"errors"
	"fmt"
)

// ErrCorruptFrame is returned when a frame cannot be decompressed into UTF-8 text.
var ErrCorruptFrame = errors.New("corrupt frame")

// Category classifies a per-message failure for logging and metrics.
type Category string

const (
	CategoryDecompress   Category = "decompress"
	CategoryInvalidJSON  Category = "invalid_json"
	CategoryMissingField Category = "missing_field"
	CategoryBadFormat    Category = "bad_format"
	CategoryOther        Category = "other"
)

// ParseError is a recoverable failure to read one message.
type ParseError struct {
	Category Category
	Field    string
	Err      error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Category, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	default:
		return string(e.Category)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

func missingField(field string) error {
	return &ParseError{Category: CategoryMissingField, Field: field}
}

func badFormat(field string, err error) error {
	return &ParseError{Category: CategoryBadFormat, Field: field, Err: err}
}

// CategoryOf returns the category of err, or CategoryOther when it is not a feed error.
func CategoryOf(err error) Category {
	if errors.Is(err, ErrCorruptFrame) {
		return CategoryDecompress
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryOther
}
