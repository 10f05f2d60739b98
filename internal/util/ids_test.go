package util

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	id, err := NewID("ses")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.HasPrefix(id, "ses_") {
		t.Fatalf("expected ses_ prefix, got %q", id)
	}
	if len(id) != len("ses_")+12 {
		t.Fatalf("unexpected id length: %q", id)
	}
	for _, r := range strings.TrimPrefix(id, "ses_") {
		if !strings.ContainsRune(idAlphabet, r) {
			t.Fatalf("id %q contains rune %q outside the alphabet", id, r)
		}
	}
}

func TestNewID_NoPrefix(t *testing.T) {
	id, err := NewID("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if strings.Contains(id, "_") {
		t.Fatalf("expected bare id, got %q", id)
	}
	if len(id) != 12 {
		t.Fatalf("unexpected id length: %q", id)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := MustNewID("con")
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "battery life", "battery life"},
		{"Trimmed", "  battery life  ", "battery life"},
		{"CollapsedSpaces", "battery   life", "battery life"},
		{"Newlines", "battery\nlife", "battery life"},
		{"CarriageReturns", "battery\r\nlife", "battery life"},
		{"Tabs", "battery\tlife", "battery life"},
		{"CaseKept", "Battery Life", "Battery Life"},
		{"Empty", "", ""},
		{"OnlyWhitespace", "  \n\t ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeLabel(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"Below", -0.5, 0},
		{"Zero", 0, 0},
		{"Inside", 0.42, 0.42},
		{"One", 1, 1},
		{"Above", 1.5, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clamp01(tc.in); got != tc.want {
				t.Fatalf("Clamp01(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
