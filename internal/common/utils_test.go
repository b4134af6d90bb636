package common

import (
	"strings"
	"testing"
)

func TestSanitizeURL(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"clean URL untouched", "https://example.org/a.pdf", "https://example.org/a.pdf"},
		{"surrounding whitespace", "  https://example.org/a.pdf \n", "https://example.org/a.pdf"},
		{"markdown link wrapper", "[report](https://example.org/a.pdf)", "https://example.org/a.pdf"},
		{"trailing punctuation", "https://example.org/a.pdf),", "https://example.org/a.pdf"},
		{"angle brackets", "<https://example.org/a.pdf>", "https://example.org/a.pdf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeURL(tc.input); got != tc.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.org/a.pdf",
		"http://example.org/reports/2024/summary.pdf?dl=1",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"ftp://example.org/a.pdf",
		"example.org/a.pdf",
		"https://example.org/a b.pdf",
		"https://{bad}.org/a.pdf",
		"",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestFileNameForURL(t *testing.T) {
	name := FileNameForURL("https://example.org/reports/annual-2024.pdf")
	if !strings.HasSuffix(name, "_annual-2024.pdf") {
		t.Errorf("unexpected file name %q", name)
	}

	// Same URL always maps to the same name.
	if again := FileNameForURL("https://example.org/reports/annual-2024.pdf"); again != name {
		t.Errorf("file name not deterministic: %q vs %q", name, again)
	}

	// Same basename under different paths must not collide.
	other := FileNameForURL("https://example.org/archive/annual-2024.pdf")
	if other == name {
		t.Errorf("distinct URLs share file name %q", name)
	}

	// Non-PDF basenames get a .pdf extension.
	if got := FileNameForURL("https://example.org/download?id=42"); !strings.HasSuffix(got, ".pdf") {
		t.Errorf("expected .pdf suffix, got %q", got)
	}
}
