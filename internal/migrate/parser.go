package migrate

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/session"
)

// ParsedName is the typed, partial result of parsing metadata embedded in
// a legacy filename. Missing components stay zero-valued and flip
// Unparsed; nothing is silently dropped.
type ParsedName struct {
	Timestamp time.Time
	HasTime   bool
	Topic     string
	Agent     string
	Unparsed  bool
}

// timestampLayouts are the date forms seen in legacy filenames, most
// specific first.
var timestampLayouts = []string{
	"20060102-150405",
	"2006-01-02-1504",
	"2006-01-02",
	"20060102",
}

// ParseName parses a legacy filename of the general form
// {timestamp}_{topic}_{agent}.{ext}. Partial matches are kept: a file
// with no leading timestamp still yields a topic, flagged Unparsed.
func ParseName(name string) ParsedName {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	tokens := strings.Split(base, "_")

	var p ParsedName

	if len(tokens) > 0 {
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, tokens[0]); err == nil {
				p.Timestamp = ts.UTC()
				p.HasTime = true
				tokens = tokens[1:]
				break
			}
		}
	}

	// With two or more remaining tokens the last one is the producing
	// agent; a single token is just the topic.
	if len(tokens) >= 2 {
		p.Agent = identity.Sanitize(tokens[len(tokens)-1])
		tokens = tokens[:len(tokens)-1]
	}
	p.Topic = strings.Join(tokens, "_")

	p.Unparsed = !p.HasTime || p.Agent == "" || p.Topic == ""
	return p
}

// categoryKeywords maps topic substrings to output categories, first
// match wins.
var categoryKeywords = []struct {
	substr   string
	category session.Category
}{
	{"architecture", session.CategoryArchitecture},
	{"design", session.CategoryArchitecture},
	{"adr", session.CategoryArchitecture},
	{"analysis", session.CategoryAnalysis},
	{"investigation", session.CategoryAnalysis},
	{"review", session.CategoryReview},
	{"report", session.CategoryReport},
	{"summary", session.CategoryReport},
}

// InferCategory guesses an output category from the parsed topic. Topics
// with no recognizable keyword land in the generic artifact category.
func InferCategory(p ParsedName) session.Category {
	topic := strings.ToLower(p.Topic)
	for _, kw := range categoryKeywords {
		if strings.Contains(topic, kw.substr) {
			return kw.category
		}
	}
	return session.CategoryArtifact
}
