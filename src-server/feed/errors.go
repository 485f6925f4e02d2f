package feed

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrNotConfigured       = errors.New("integration is not configured")
	ErrMoodleNotConfigured = fmt.Errorf("moodle credentials are missing: %w", ErrNotConfigured)
	ErrAccessDenied        = errors.New("access key doesn't match")
	ErrNoStaticSource      = errors.New("group has no static calendar")
)
