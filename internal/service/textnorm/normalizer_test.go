package textnorm

import (
	"os"
	"path/filepath"
	"testing"

	model "ngramlm/internal/model/ngram"
)

func joinTokens(tokens []model.Token) string {
	return model.NGram(tokens).String()
}

func TestNormalize_PunctuationCaseNumbers(t *testing.T) {
	n := NewNormalizer()

	inputs := map[string]string{
		"The Pizza was GREAT!":        "the pizza was great",
		"We paid 12.50, then 3 more…": "we paid NUM then NUM more",
		"“Best” (ever) [really]?":     "best ever really",
		"  spaced\tout\nwords  ":      "spaced out words",
		"Straße":                      "strasse",
		"-42 and 3.14":                "NUM and NUM",
		"(42)":                        "NUM",
		"“3”":                         "NUM",
		"[2016]":                      "NUM",
		"Open 5pm-10pm":               "open NUMpmNUMpm",
		"5PM":                         "NUMpm",
	}
	for in, want := range inputs {
		if got := n.Normalize(in); got != want {
			t.Errorf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestTokenize_DropsStopwords(t *testing.T) {
	n := NewNormalizer().WithStopwords([]string{"The", "was"})

	got := joinTokens(n.Tokenize("The food was good"))
	if got != "food good" {
		t.Errorf("Expected 'food good', got '%s'", got)
	}
}

func TestTokenize_EmptyInput(t *testing.T) {
	n := NewNormalizer()
	if tokens := n.Tokenize(" ... !!! "); len(tokens) != 0 {
		t.Errorf("Expected no tokens, got %v", tokens)
	}
}

func TestLoadStopwords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.txt")
	if err := os.WriteFile(path, []byte("a\n\nan\nTHE\n"), 0644); err != nil {
		t.Fatalf("Failed to write stopwords: %v", err)
	}

	n := NewNormalizer()
	if err := n.LoadStopwords(path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := joinTokens(n.Tokenize("The cat ate an apple"))
	if got != "cat ate apple" {
		t.Errorf("Expected 'cat ate apple', got '%s'", got)
	}

	if err := n.LoadStopwords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing stopwords file")
	}
}
