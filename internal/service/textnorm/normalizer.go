package textnorm

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	model "ngramlm/internal/model/ngram"
)

// NumberToken replaces every numeric literal
const NumberToken = "NUM"

var (
	punctRegex  = regexp.MustCompile("[`;!’\\[\\](){}⟨⟩:,،‒–—―….?“”‘\"/⁄]+")
	numberRegex = regexp.MustCompile(`[-.0-9]*[0-9][-.0-9]*`)
)

// Normalizer turns raw text into the token stream the n-gram trie consumes.
// Training and query text must go through the same Normalizer.
type Normalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer creates a normalizer without stopword filtering
func NewNormalizer() *Normalizer {
	return &Normalizer{
		stopwords: make(map[string]struct{}),
	}
}

// WithStopwords adds words to drop after normalization
func (n *Normalizer) WithStopwords(words []string) *Normalizer {
	caser := cases.Fold()
	for _, w := range words {
		w = normalizeWord(caser, w)
		if w != "" {
			n.stopwords[w] = struct{}{}
		}
	}
	return n
}

// LoadStopwords reads one stopword per line from path
func (n *Normalizer) LoadStopwords(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open stopwords file: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stopwords file: %w", err)
	}
	n.WithStopwords(words)
	return nil
}

// Normalize strips punctuation, folds case and replaces numbers in text
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.words(text), " ")
}

// Tokenize normalizes text and splits it into tokens, dropping stopwords
func (n *Normalizer) Tokenize(text string) []model.Token {
	words := n.words(text)
	tokens := make([]model.Token, 0, len(words))
	for _, w := range words {
		if _, stop := n.stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, model.Token(w))
	}
	return tokens
}

func (n *Normalizer) words(text string) []string {
	fields := strings.Fields(norm.NFKC.String(text))
	out := make([]string, 0, len(fields))
	caser := cases.Fold() // a Caser is stateful, so one per call
	for _, f := range fields {
		if w := normalizeWord(caser, f); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// normalizeWord strips punctuation, folds case, then replaces every numeric
// run, so "(42)" becomes NUM and "5pm" becomes NUMpm
func normalizeWord(caser cases.Caser, word string) string {
	word = caser.String(punctRegex.ReplaceAllString(word, ""))
	return numberRegex.ReplaceAllString(word, NumberToken)
}
