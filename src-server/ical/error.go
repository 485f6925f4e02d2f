package ical

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Any calendar rejected at an ingestion boundary, parse or validation.
	ErrInvalidCalendar   = errors.New("invalid calendar")
	ErrMalformedCalendar = fmt.Errorf("malformed calendar: %w", ErrInvalidCalendar)
)

// Error with a kind and a bag of context values, e.g. the offending
// property value and the event it came from.
type CustomError struct {
	kind error
	msg  string
	args map[string]any
}

// Create a new custom error
func NewCustomError(kind error, msg string, args map[string]any) *CustomError {
	if args == nil {
		args = make(map[string]any)
	}
	return &CustomError{
		kind: kind,
		msg:  msg,
		args: args,
	}
}

// Get the error message
func (e CustomError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.msg)
	if len(e.args) == 0 {
		return sb.String()
	}
	keys := make([]string, 0, len(e.args))
	for key := range e.args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	sb.WriteString(" |")
	for _, key := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", key, e.args[key]))
	}
	return sb.String()
}

func (e CustomError) Unwrap() error {
	return e.kind
}
