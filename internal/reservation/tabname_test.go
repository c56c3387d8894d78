package reservation

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeTabNameStripsForbiddenCharacters(t *testing.T) {
	got := SanitizeTabName("a/b*c", "1234567890")
	if got != "abc-67890" {
		t.Fatalf("unexpected tab name %q", got)
	}
}

func TestSanitizeTabNameStripsEveryForbiddenCharacter(t *testing.T) {
	got := SanitizeTabName(`a\b/c?d*e[f]g`, "1234567890")
	if got != "abcdefg-67890" {
		t.Fatalf("unexpected tab name %q", got)
	}
}

func TestSanitizeTabNameCapsLength(t *testing.T) {
	longName := strings.Repeat("x", 120)
	got := SanitizeTabName(longName, "1234567890")

	if utf8.RuneCountInString(got) > 100 {
		t.Fatalf("expected at most 100 characters, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasPrefix(got, strings.Repeat("x", 90)) {
		t.Fatalf("expected base truncated to 90 characters, got %q", got)
	}
	if !strings.HasSuffix(got, "-67890") {
		t.Fatalf("expected identifier suffix, got %q", got)
	}
}

func TestSanitizeTabNameShortIdentifierUsedWhole(t *testing.T) {
	got := SanitizeTabName("trip", "g1")
	if got != "trip-g1" {
		t.Fatalf("unexpected tab name %q", got)
	}
}

func TestSanitizeTabNameFallsBackWhenNameStripsToNothing(t *testing.T) {
	got := SanitizeTabName("///***", "C123")
	if got != "C123" {
		t.Fatalf("unexpected tab name %q", got)
	}
}

func TestSanitizeTabNameKeepsThaiCharacters(t *testing.T) {
	got := SanitizeTabName("ทริปเชียงใหม่", "C1234567890")
	if got != "ทริปเชียงใหม่-67890" {
		t.Fatalf("unexpected tab name %q", got)
	}
}
