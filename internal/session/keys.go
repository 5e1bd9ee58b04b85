package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/outpost-cli/outpost/internal/identity"
)

const (
	// maxSlugLen bounds the context slug inside a session key.
	maxSlugLen = 30
	// disambiguatorBytes yields a fixed-width 6-hex-digit random token.
	// ~16.7M values keeps same-day same-slug collisions negligible at
	// a few sessions per actor per day; the registry retries on the
	// rare hit.
	disambiguatorBytes = 3
)

// KeyPattern matches the three-part session key layout:
// {YYYY-MM-DD}_{slug}_{6 hex digits}.
var KeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_[a-z0-9-]{1,30}_[0-9a-f]{6}$`)

// randRead is a package-level var to allow test injection.
var randRead = rand.Read

// Slug sanitizes a context string with the same rules as actor names and
// truncates it to the key slug limit, at a word boundary when possible.
func Slug(context string) string {
	s := identity.Sanitize(context)
	if s == identity.UnknownUser {
		s = "untitled"
	}
	if len(s) <= maxSlugLen {
		return s
	}
	truncated := s[:maxSlugLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxSlugLen/2 {
		truncated = truncated[:lastHyphen]
	}
	return strings.TrimRight(truncated, "-")
}

// GenerateKey produces a session key of the form
// {date}_{slug}_{disambiguator}. Uniqueness is probabilistic; the caller
// must verify against the store and regenerate on collision.
func GenerateKey(context string) (string, error) {
	buf := make([]byte, disambiguatorBytes)
	if _, err := randRead(buf); err != nil {
		return "", fmt.Errorf("generating key disambiguator: %w", err)
	}
	date := timeNow().UTC().Format("2006-01-02")
	return fmt.Sprintf("%s_%s_%s", date, Slug(context), hex.EncodeToString(buf)), nil
}
