package core

import (
	"strings"
	"testing"
)

func TestMemberSearchQueryPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		filter   MemberFilter
		wantCond string
		wantArg  string
	}{
		{
			name:     "id wins over username and date",
			filter:   MemberFilter{ID: "a", Username: "b", CreateDate: "2026-01-01"},
			wantCond: "WHERE id LIKE $1",
			wantArg:  `%a%`,
		},
		{
			name:     "username wins over date",
			filter:   MemberFilter{Username: "bob", CreateDate: "2026-01-01"},
			wantCond: "WHERE username LIKE $1",
			wantArg:  `%bob%`,
		},
		{
			name:     "date alone",
			filter:   MemberFilter{CreateDate: "2026-01-01"},
			wantCond: "WHERE created_at::date = $1",
			wantArg:  "2026-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := memberSearchQuery(tt.filter)
			if !strings.Contains(q, tt.wantCond) {
				t.Fatalf("query %q does not contain %q", q, tt.wantCond)
			}
			if len(args) != 1 {
				t.Fatalf("want 1 bound arg, got %d", len(args))
			}
			if args[0] != tt.wantArg {
				t.Fatalf("want arg %q, got %v", tt.wantArg, args[0])
			}
		})
	}
}

func TestMemberSearchQueryEmptyFilter(t *testing.T) {
	q, args := memberSearchQuery(MemberFilter{})
	if strings.Contains(q, "WHERE") {
		t.Fatalf("empty filter must return the full table, got %q", q)
	}
	if len(args) != 0 {
		t.Fatalf("want no args, got %v", args)
	}
}

func TestMemberSearchQueryBindsLiteralText(t *testing.T) {
	// Injection-shaped input stays a bound parameter, never query text.
	malicious := `'; DROP TABLE members; --`
	q, args := memberSearchQuery(MemberFilter{ID: malicious})
	if strings.Contains(q, "DROP") {
		t.Fatalf("filter text leaked into query: %q", q)
	}
	if len(args) != 1 || !strings.Contains(args[0].(string), "DROP TABLE") {
		t.Fatalf("filter text must be bound as-is, got %v", args)
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	tests := map[string]string{
		"bob":     `%bob%`,
		"100%":    `%100\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
		" pad ":   `%pad%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Fatalf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExternalMemberSearchQueryPrecedence(t *testing.T) {
	q, args := externalMemberSearchQuery(ExternalMemberFilter{Email: "user@", CreateDate: "2026-01-01"})
	if !strings.Contains(q, "WHERE email LIKE $1") {
		t.Fatalf("email must win over date, got %q", q)
	}
	if len(args) != 1 || args[0] != `%user@%` {
		t.Fatalf("unexpected args %v", args)
	}

	q, args = externalMemberSearchQuery(ExternalMemberFilter{CreateDate: "2026-01-01"})
	if !strings.Contains(q, "created_at::date = $1") {
		t.Fatalf("date filter missing, got %q", q)
	}
	if len(args) != 1 || args[0] != "2026-01-01" {
		t.Fatalf("unexpected args %v", args)
	}

	q, args = externalMemberSearchQuery(ExternalMemberFilter{})
	if strings.Contains(q, "WHERE") || len(args) != 0 {
		t.Fatalf("empty filter must return the full table, got %q %v", q, args)
	}
}
