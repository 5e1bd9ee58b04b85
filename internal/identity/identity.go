// Package identity derives the acting user from ambient version-control
// configuration. Resolution never fails: when git is unavailable or
// unconfigured the actor degrades to the "unknown-user" token.
package identity

import (
	"os/exec"
	"strings"
	"unicode"
)

// UnknownUser is the fallback actor token when no identity can be resolved
// or when sanitization leaves nothing usable.
const UnknownUser = "unknown-user"

// Actor is a person or automated producer. It is derived on demand and
// embedded into every session record it creates, never persisted on its own.
type Actor struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Team  string `json:"team,omitempty"`
}

// gitConfig is a package-level var to allow test injection.
var gitConfig = func(key string) string {
	out, err := exec.Command("git", "config", "--get", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Resolve derives the current actor from git configuration. The name is
// sanitized into a filesystem-safe token. Resolve is deterministic for an
// identical environment snapshot and never returns an error.
func Resolve() Actor {
	return Actor{
		Name:  Sanitize(gitConfig("user.name")),
		Email: gitConfig("user.email"),
		Team:  gitConfig("outpost.team"),
	}
}

// WorkContext reports the active source-control branch, or "" when the
// working directory is not a git checkout.
func WorkContext() string {
	out, err := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Sanitize converts a raw name into a filesystem-safe token.
//
// Rules:
//   - Lowercase
//   - Whitespace and underscores become hyphens
//   - Characters outside [a-z0-9-] are removed
//   - Consecutive hyphens are collapsed
//   - Leading/trailing hyphens are trimmed
//   - Empty result returns "unknown-user"
//
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case unicode.IsSpace(r) || r == '_' || r == '-':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	token := strings.Trim(b.String(), "-")
	if token == "" {
		return UnknownUser
	}
	return token
}
