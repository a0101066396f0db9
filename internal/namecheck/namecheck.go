// Package namecheck validates event and user names against the shared
// naming rule used throughout crld: letters and digits only, 4-32 chars,
// case-folded to lowercase before use anywhere else in the system.
package namecheck

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinLen = 4
	MaxLen = 32
)

var allowed = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Validate checks name against the allowed charset and length bounds and
// returns the lowercase-folded form. It never returns both a non-empty
// string and a non-nil error.
func Validate(name string) (string, error) {
	if len(name) < MinLen || len(name) > MaxLen {
		return "", fmt.Errorf("namecheck: %q must be %d-%d characters", name, MinLen, MaxLen)
	}
	if !allowed.MatchString(name) {
		return "", fmt.Errorf("namecheck: %q contains characters outside [A-Za-z0-9]", name)
	}
	return strings.ToLower(name), nil
}
