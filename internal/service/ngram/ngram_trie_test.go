package ngram

import (
	"errors"
	"math"
	"testing"

	model "ngramlm/internal/model/ngram"
)

func trainedTrie(t *testing.T, order int, docs ...string) *NGramTrie {
	t.Helper()
	trie := NewNGramTrie(order)
	for _, doc := range docs {
		if err := trie.AddDocument(tokensOf(doc)); err != nil {
			t.Fatalf("Failed to add document %q: %v", doc, err)
		}
	}
	if err := trie.ComputeMLE(); err != nil {
		t.Fatalf("Failed to compute mle: %v", err)
	}
	return trie
}

func tokensOf(doc string) []model.Token {
	var out []model.Token
	start := -1
	for i := 0; i <= len(doc); i++ {
		if i == len(doc) || doc[i] == ' ' {
			if start >= 0 {
				out = append(out, model.Token(doc[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return out
}

func TestRecordOccurrence_SameSequenceTwice(t *testing.T) {
	trie := NewNGramTrie(2)
	seq := model.Of("a", "b")

	for i := 0; i < 2; i++ {
		if err := trie.RecordOccurrence(seq); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if trie.Root().Len() != 1 {
		t.Fatalf("Expected one root child, got %d", trie.Root().Len())
	}
	a := trie.Root().Child("a")
	if a.Len() != 1 {
		t.Fatalf("Expected one child under 'a', got %d", a.Len())
	}
	if got := a.Child("b").Count(); got != 2 {
		t.Errorf("Expected count 2, got %d", got)
	}
	if trie.Types(2) != 1 || trie.Tokens(2) != 2 {
		t.Errorf("Expected types=1 tokens=2, got types=%d tokens=%d", trie.Types(2), trie.Tokens(2))
	}
	if trie.State() != StateTraining {
		t.Errorf("Expected state training, got %s", trie.State())
	}
}

func TestRecordOccurrence_Rejects(t *testing.T) {
	trie := NewNGramTrie(2)
	if err := trie.RecordOccurrence(nil); !errors.Is(err, ErrEmptyNGram) {
		t.Errorf("Expected ErrEmptyNGram, got %v", err)
	}
	if trie.State() != StateEmpty {
		t.Errorf("Expected state empty, got %s", trie.State())
	}

	if err := trie.ComputeMLE(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := trie.RecordOccurrence(model.Of("a")); !errors.Is(err, ErrTrained) {
		t.Errorf("Expected ErrTrained, got %v", err)
	}
	if err := trie.ComputeMLE(); !errors.Is(err, ErrTrained) {
		t.Errorf("Expected ErrTrained on second MLE pass, got %v", err)
	}
}

func TestRecordOccurrence_LongerThanMaxOrder(t *testing.T) {
	trie := NewNGramTrie(1)
	if err := trie.RecordOccurrence(model.Of("a", "b", "c")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if trie.Tokens(3) != 1 || trie.Types(3) != 1 {
		t.Errorf("Expected order-3 stats to grow, got types=%d tokens=%d", trie.Types(3), trie.Tokens(3))
	}
	// The prefix "a" is only an ancestor, not a recorded n-gram
	if trie.IsNgram(model.Of("a")) {
		t.Error("Expected 'a' not to be a recorded n-gram")
	}
	if !trie.Contains(model.Of("a")) {
		t.Error("Expected path 'a' to exist")
	}
}

func TestAccessorContract(t *testing.T) {
	trie := trainedTrie(t, 2, "a b a b a")
	missing := model.Of("a", "z")

	if _, ok := trie.LookupValue(missing); ok {
		t.Error("Expected LookupValue to report absent")
	}
	if _, ok := trie.LookupMle(missing); ok {
		t.Error("Expected LookupMle to report absent")
	}
	if _, err := trie.LookupNode(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if trie.IsNgram(missing) {
		t.Error("Expected IsNgram to be false for a missing path")
	}

	node, err := trie.LookupNode(model.Of("a", "b"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !node.Terminal() || !trie.IsNgram(model.Of("a", "b")) {
		t.Error("Expected 'a b' to be a terminal n-gram")
	}

	// The empty sequence resolves to the root
	root, err := trie.LookupNode(nil)
	if err != nil || root != trie.Root() {
		t.Errorf("Expected empty lookup to return root, got %v, %v", root, err)
	}
}

func TestScenario_ABABA(t *testing.T) {
	trie := trainedTrie(t, 2, "a b a b a")

	counts := map[string]int64{"a": 3, "b": 2, "a b": 2, "b a": 2}
	for seq, want := range counts {
		got, ok := trie.LookupValue(model.NGram(tokensOf(seq)))
		if !ok || got != want {
			t.Errorf("count(%s): expected %d, got %d (ok=%v)", seq, want, got, ok)
		}
	}

	if trie.Types(1) != 2 || trie.Tokens(1) != 5 {
		t.Errorf("Expected types[1]=2 tokens[1]=5, got %d, %d", trie.Types(1), trie.Tokens(1))
	}
	if trie.Types(2) != 2 || trie.Tokens(2) != 4 {
		t.Errorf("Expected types[2]=2 tokens[2]=4, got %d, %d", trie.Types(2), trie.Tokens(2))
	}

	mles := map[string]float64{
		"a":   0.6,
		"b":   0.4,
		"a b": 1.0, // 'b' is the only continuation observed after 'a'
		"b a": 1.0,
	}
	for seq, want := range mles {
		got, _ := trie.LookupMle(model.NGram(tokensOf(seq)))
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("mle(%s): expected %f, got %f", seq, want, got)
		}
	}

	// Count-of-context normalization
	freqs := map[string]float64{"a b": 2.0 / 3.0, "b a": 1.0, "a": 0.6}
	for seq, want := range freqs {
		got, ok := trie.RelativeFrequency(model.NGram(tokensOf(seq)))
		if !ok || math.Abs(got-want) > 1e-9 {
			t.Errorf("relative frequency(%s): expected %f, got %f", seq, want, got)
		}
	}
}

func TestInvariant_TokensEqualDepthCounts(t *testing.T) {
	trie := trainedTrie(t, 3,
		"the cat sat on the mat",
		"the dog sat on the log",
		"a cat and a dog",
	)

	sums := make(map[int]int64)
	var visit func(node *TrieNode, depth int)
	visit = func(node *TrieNode, depth int) {
		sums[depth] += node.Count()
		for _, tok := range node.Tokens() {
			visit(node.Child(tok), depth+1)
		}
	}
	visit(trie.Root(), 0)

	for order := 1; order <= 3; order++ {
		if sums[order] != trie.Tokens(order) {
			t.Errorf("order %d: expected tokens %d to equal depth sum %d", order, trie.Tokens(order), sums[order])
		}
		if trie.Tokens(order) < trie.Types(order) {
			t.Errorf("order %d: tokens %d < types %d", order, trie.Tokens(order), trie.Types(order))
		}
	}
}

func TestInvariant_SiblingMleSumsToOne(t *testing.T) {
	trie := trainedTrie(t, 3,
		"the cat sat on the mat",
		"the dog sat on the log",
		"a cat and a dog",
	)

	var visit func(node *TrieNode, depth int)
	visit = func(node *TrieNode, depth int) {
		if depth >= trie.MaxOrder() || node.Len() == 0 {
			return
		}
		sum := 0.0
		for _, tok := range node.Tokens() {
			sum += node.Child(tok).Mle()
			visit(node.Child(tok), depth+1)
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("Expected children mle to sum to 1 at depth %d, got %f", depth, sum)
		}
	}
	visit(trie.Root(), 0)
}

func TestMle_ZeroBeforeTraining(t *testing.T) {
	trie := NewNGramTrie(2)
	if err := trie.AddDocument(tokensOf("x y")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	mle, ok := trie.LookupMle(model.Of("x"))
	if !ok || mle != 0 {
		t.Errorf("Expected present zero mle before the MLE pass, got %f (ok=%v)", mle, ok)
	}
}

func TestBloomTrie_MatchesPlainTrie(t *testing.T) {
	plain := NewNGramTrie(2)
	bloomed := NewNGramTrieWithBloom(2, 1000, 0.01)
	doc := tokensOf("to be or not to be")
	for _, trie := range []*NGramTrie{plain, bloomed} {
		if err := trie.AddDocument(doc); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	queries := []model.NGram{
		model.Of("to"), model.Of("to", "be"), model.Of("be", "or"),
		model.Of("not", "be"), model.Of("question"), model.Of("be", "to", "or"),
	}
	for _, seq := range queries {
		want, wantOK := plain.LookupValue(seq)
		got, gotOK := bloomed.LookupValue(seq)
		if want != got || wantOK != gotOK {
			t.Errorf("%s: plain=(%d,%v) bloom=(%d,%v)", seq, want, wantOK, got, gotOK)
		}
	}
}

func TestStats(t *testing.T) {
	trie := trainedTrie(t, 2, "a b a b a")
	stats := trie.Stats()

	if stats.VocabularySize != 2 {
		t.Errorf("Expected vocabulary 2, got %d", stats.VocabularySize)
	}
	// root + a + b + (a,b) + (b,a)
	if stats.TotalNodes != 5 {
		t.Errorf("Expected 5 nodes, got %d", stats.TotalNodes)
	}
	if stats.State != "trained" {
		t.Errorf("Expected state 'trained', got '%s'", stats.State)
	}
	if len(stats.Orders) != 2 || stats.Orders[1].Tokens != 4 {
		t.Errorf("Unexpected order stats: %+v", stats.Orders)
	}
	if stats.TotalMemoryBytes() <= 0 {
		t.Error("Expected positive memory estimate")
	}
}
