package ical

import (
	"strings"

	"github.com/google/uuid"
)

// Namespace for name-based (v5) event UIDs.
var uidNamespace = uuid.MustParse("6f1c3c5e-5d0b-4c43-9a8e-2f5d7d0e4b1a")

// UID derived from the source's own identifiers, so regenerating a feed
// yields the same UID for the same logical event.
//
//	StableUID("sport-", "training", "1234") // sport-<uuid v5>
func StableUID(prefix string, parts ...string) string {
	return prefix + uuid.NewSHA1(uidNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}
