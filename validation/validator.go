package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/video-transcriber-mcp/errors"
)

// Checker accumulates field problems that struct tags cannot express, such
// as a resource URI that must stay inside the output directory.
type Checker struct {
	fields []FieldError
}

// FieldError is one rejected argument.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New returns an empty Checker.
func New() *Checker { return &Checker{} }

// Fail records message against field unconditionally.
func (c *Checker) Fail(field, message string) *Checker {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
	return c
}

// Check records message against field when ok is false.
func (c *Checker) Check(ok bool, field, message string) *Checker {
	if !ok {
		c.Fail(field, message)
	}
	return c
}

// NotBlank rejects an empty or whitespace-only value.
func (c *Checker) NotBlank(field, value string) *Checker {
	return c.Check(strings.TrimSpace(value) != "", field, "is required")
}

// Fields returns the recorded problems in order.
func (c *Checker) Fields() []FieldError { return c.fields }

// Err folds the recorded problems into one INVALID_INPUT error, or nil.
func (c *Checker) Err() *errors.AppError {
	if len(c.fields) == 0 {
		return nil
	}
	parts := make([]string, len(c.fields))
	for i, f := range c.fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return errors.Validation("Invalid params: " + strings.Join(parts, "; ")).
		WithDetails(map[string]any{"fields": c.fields})
}

// IsUUID reports whether value is a well-formed, non-nil UUID. Session ids
// are checked with it before any lookup.
func IsUUID(value string) bool {
	id, err := uuid.Parse(strings.TrimSpace(value))
	return err == nil && id != uuid.Nil
}
