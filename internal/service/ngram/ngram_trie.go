package ngram

import (
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	model "ngramlm/internal/model/ngram"
)

var (
	// ErrNotFound is returned by the strict lookup when a path is missing
	ErrNotFound = errors.New("n-gram not found")
	// ErrTrained is returned when mutating a trie after the MLE pass
	ErrTrained = errors.New("trie already trained")
	// ErrEmptyNGram is returned when recording a zero-length sequence
	ErrEmptyNGram = errors.New("empty n-gram")
)

// State is the lifecycle stage of a trie
type State int

const (
	StateEmpty    State = iota // Nothing recorded yet
	StateTraining              // Recording occurrences
	StateTrained               // MLE pass has run; read-only from here on
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// NGramTrie stores n-gram occurrence counts of every order in one prefix tree
type NGramTrie struct {
	root        *TrieNode          // Root of the trie (empty prefix)
	maxOrder    int                // Highest order recorded by AddDocument and annotated by the MLE pass
	types       []int64            // Distinct sequences per order (index = order)
	tokens      []int64            // Total occurrences per order (index = order)
	state       State              // Lifecycle stage
	bloomFilter *bloom.BloomFilter // Keys of every path in the trie, for fast negative lookups
	mu          sync.RWMutex       // Protects all data structures
}

// NewNGramTrie creates a new n-gram trie without bloom filter
func NewNGramTrie(maxOrder int) *NGramTrie {
	if maxOrder < 1 {
		maxOrder = 3 // Default to trigrams
	}
	return &NGramTrie{
		root:     NewTrieNode(),
		maxOrder: maxOrder,
		types:    make([]int64, maxOrder+1),
		tokens:   make([]int64, maxOrder+1),
	}
}

// NewNGramTrieWithBloom creates a new n-gram trie whose tolerant lookups consult
// a bloom filter before walking the tree
func NewNGramTrieWithBloom(maxOrder int, expectedItems uint, falsePositiveRate float64) *NGramTrie {
	trie := NewNGramTrie(maxOrder)
	trie.bloomFilter = bloom.NewWithEstimates(expectedItems, falsePositiveRate)
	return trie
}

// MaxOrder returns the configured maximum n-gram order
func (t *NGramTrie) MaxOrder() int {
	return t.maxOrder
}

// State returns the current lifecycle stage
func (t *NGramTrie) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Root returns the root node
func (t *NGramTrie) Root() *TrieNode {
	return t.root
}

// RecordOccurrence records one occurrence of seq, creating missing nodes on the way
func (t *NGramTrie) RecordOccurrence(seq model.NGram) error {
	if len(seq) == 0 {
		return ErrEmptyNGram
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateTrained {
		return fmt.Errorf("failed to record %q: %w", seq.String(), ErrTrained)
	}
	t.state = StateTraining

	var h hash.Hash64
	if t.bloomFilter != nil {
		h = fnv.New64a()
	}

	current := t.root
	for _, token := range seq {
		child, created := current.insert(token)
		if h != nil {
			h.Write([]byte(token))
			h.Write([]byte{0}) // Separator
			if created {
				t.bloomFilter.Add(h.Sum(nil))
			}
		}
		current = child
	}

	order := len(seq)
	t.grow(order)
	current.count++
	t.tokens[order]++
	if !current.terminal {
		current.terminal = true
		t.types[order]++
	}
	return nil
}

// AddDocument records every window of every order 1..maxOrder over tokens
func (t *NGramTrie) AddDocument(tokens []model.Token) error {
	for n := 1; n <= t.maxOrder; n++ {
		for _, window := range model.Windows(tokens, n) {
			if err := t.RecordOccurrence(window); err != nil {
				return err
			}
		}
	}
	return nil
}

// grow extends the per-order statistics to cover order
func (t *NGramTrie) grow(order int) {
	for len(t.types) <= order {
		t.types = append(t.types, 0)
		t.tokens = append(t.tokens, 0)
	}
}

// walk follows seq from the root. It returns the deepest node reached and the
// index of the first missing token, or len(seq) when the path exists.
func (t *NGramTrie) walk(seq model.NGram) (*TrieNode, int) {
	current := t.root
	for i, token := range seq {
		child, exists := current.children[token]
		if !exists {
			return current, i
		}
		current = child
	}
	return current, len(seq)
}

// mayContain consults the bloom filter. It never reports false for a present path.
func (t *NGramTrie) mayContain(seq model.NGram) bool {
	if t.bloomFilter == nil || len(seq) == 0 {
		return true
	}
	h := fnv.New64a()
	for _, token := range seq {
		h.Write([]byte(token))
		h.Write([]byte{0})
	}
	return t.bloomFilter.Test(h.Sum(nil))
}

// LookupValue returns the recorded count of seq; ok is false when the path is absent
func (t *NGramTrie) LookupValue(seq model.NGram) (count int64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.mayContain(seq) {
		return 0, false
	}
	node, depth := t.walk(seq)
	if depth < len(seq) {
		return 0, false
	}
	return node.count, true
}

// LookupMle returns the annotated MLE of seq; ok is false when the path is absent
func (t *NGramTrie) LookupMle(seq model.NGram) (mle float64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.mayContain(seq) {
		return 0, false
	}
	node, depth := t.walk(seq)
	if depth < len(seq) {
		return 0, false
	}
	return node.mle, true
}

// LookupNode returns the node for seq, failing with ErrNotFound on a missing token
func (t *NGramTrie) LookupNode(seq model.NGram) (*TrieNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, depth := t.walk(seq)
	if depth < len(seq) {
		return nil, fmt.Errorf("token %q at position %d of %q: %w", seq[depth], depth, seq.String(), ErrNotFound)
	}
	return node, nil
}

// Contains reports whether the path for seq exists, terminal or not
func (t *NGramTrie) Contains(seq model.NGram) bool {
	_, err := t.LookupNode(seq)
	return err == nil
}

// IsNgram reports whether seq exists and was itself recorded
func (t *NGramTrie) IsNgram(seq model.NGram) bool {
	node, err := t.LookupNode(seq)
	if err != nil {
		return false
	}
	return node.terminal
}

// RelativeFrequency returns count(seq) / count(context of seq). For unigrams
// the denominator is the unigram token total. ok is false when either count is zero.
func (t *NGramTrie) RelativeFrequency(seq model.NGram) (freq float64, ok bool) {
	count, found := t.LookupValue(seq)
	if !found || count == 0 {
		return 0, false
	}
	var denom int64
	if len(seq) == 1 {
		denom = t.Tokens(1)
	} else {
		denom, _ = t.LookupValue(seq.Context())
	}
	if denom == 0 {
		return 0, false
	}
	return float64(count) / float64(denom), true
}

// Types returns the number of distinct sequences of the given order
func (t *NGramTrie) Types(order int) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if order < 0 || order >= len(t.types) {
		return 0
	}
	return t.types[order]
}

// Tokens returns the total recorded occurrences of the given order
func (t *NGramTrie) Tokens(order int) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if order < 0 || order >= len(t.tokens) {
		return 0
	}
	return t.tokens[order]
}

// Stats returns per-order statistics and memory estimates
func (t *NGramTrie) Stats() TrieStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var nodeCount int64
	t.countNodes(t.root, &nodeCount)

	// Rough memory estimation
	vocabMemory := int64(0)
	for token := range t.root.children {
		vocabMemory += int64(len(token)) + 16 // String header + content
	}

	orders := make([]OrderStats, 0, len(t.types))
	for order := 1; order < len(t.types); order++ {
		orders = append(orders, OrderStats{
			Order:  order,
			Types:  t.types[order],
			Tokens: t.tokens[order],
		})
	}

	return TrieStats{
		MaxOrder:         t.maxOrder,
		State:            t.state.String(),
		VocabularySize:   len(t.root.children),
		TotalNodes:       nodeCount,
		Orders:           orders,
		VocabMemoryBytes: vocabMemory,
		NodeMemoryBytes:  nodeCount * 64, // Approx: count(8) + mle(8) + terminal(8) + map(24) + pointers(16)
	}
}

// countNodes recursively counts all nodes in the trie
func (t *NGramTrie) countNodes(node *TrieNode, count *int64) {
	*count++
	for _, child := range node.children {
		t.countNodes(child, count)
	}
}

// OrderStats holds the type/token totals of one order
type OrderStats struct {
	Order  int   `json:"order"`
	Types  int64 `json:"types"`
	Tokens int64 `json:"tokens"`
}

// TrieStats contains trie statistics
type TrieStats struct {
	MaxOrder         int          `json:"max_order"`
	State            string       `json:"state"`
	VocabularySize   int          `json:"vocabulary_size"`
	TotalNodes       int64        `json:"total_nodes"`
	Orders           []OrderStats `json:"orders"`
	VocabMemoryBytes int64        `json:"vocab_memory_bytes"`
	NodeMemoryBytes  int64        `json:"node_memory_bytes"`
}

// TotalMemoryBytes returns the estimated total memory usage
func (s TrieStats) TotalMemoryBytes() int64 {
	return s.VocabMemoryBytes + s.NodeMemoryBytes
}
