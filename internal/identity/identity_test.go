package identity

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple name", "Jane Doe", "jane-doe"},
		{"already clean", "jane-doe", "jane-doe"},
		{"underscores", "jane_doe_ci", "jane-doe-ci"},
		{"collapsed whitespace", "Jane   Q.  Doe", "jane-q-doe"},
		{"newlines and carriage returns", "jane\ndoe\r\nci", "jane-doe-ci"},
		{"unicode stripped", "José Ñoño", "jos-oo"},
		{"symbols stripped", "bot[prod]!", "botprod"},
		{"repeated hyphens collapse", "a--_--b", "a-b"},
		{"leading trailing trimmed", "  -jane-  ", "jane"},
		{"empty", "", UnknownUser},
		{"only symbols", "!!!", UnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{"Jane Doe", "a--b", "  CI Bot_7 ", "", "!!!", "x"}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestResolveFallsBackToUnknown(t *testing.T) {
	orig := gitConfig
	defer func() { gitConfig = orig }()

	gitConfig = func(key string) string { return "" }

	actor := Resolve()
	if actor.Name != UnknownUser {
		t.Errorf("Resolve() with empty config = %q, want %q", actor.Name, UnknownUser)
	}
}

func TestResolveUsesGitConfig(t *testing.T) {
	orig := gitConfig
	defer func() { gitConfig = orig }()

	gitConfig = func(key string) string {
		switch key {
		case "user.name":
			return "Jane Doe"
		case "user.email":
			return "jane@example.com"
		case "outpost.team":
			return "platform"
		}
		return ""
	}

	actor := Resolve()
	if actor.Name != "jane-doe" {
		t.Errorf("Name = %q, want %q", actor.Name, "jane-doe")
	}
	if actor.Email != "jane@example.com" {
		t.Errorf("Email = %q", actor.Email)
	}
	if actor.Team != "platform" {
		t.Errorf("Team = %q", actor.Team)
	}
}

func TestResolveDeterministic(t *testing.T) {
	orig := gitConfig
	defer func() { gitConfig = orig }()

	gitConfig = func(key string) string { return "CI Bot 7" }

	a, b := Resolve(), Resolve()
	if a != b {
		t.Errorf("Resolve() not deterministic: %+v != %+v", a, b)
	}
}
