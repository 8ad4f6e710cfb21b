package lm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	model "ngramlm/internal/model/ngram"
	"ngramlm/internal/service/ngram"
)

const (
	DefaultLambda = 0.9
	DefaultDelta  = 0.1

	// unigramAddK is the add-k constant of the unigram base case
	unigramAddK = 0.1
)

var (
	// ErrNotTrained is returned when a model is built over a trie without an MLE pass
	ErrNotTrained = errors.New("trie is not trained")
	// ErrEmptyModel is returned when the trained trie holds no unigrams
	ErrEmptyModel = errors.New("trie holds no unigrams")
	// ErrOrder is returned for an n-gram order outside [1, Order]
	ErrOrder = errors.New("invalid n-gram order")
	// ErrEmptySequence is returned when scoring zero tokens
	ErrEmptySequence = errors.New("empty token sequence")
	// ErrNoCandidates is returned when a sampling context has no continuations
	ErrNoCandidates = errors.New("no candidate tokens")
	// ErrUnknownSmoother is returned for an unsupported smoother name
	ErrUnknownSmoother = errors.New("unknown smoother")
	// ErrLength is returned when asked to generate a negative number of tokens
	ErrLength = errors.New("invalid generation length")
)

// Config holds the smoothing parameters of a language model
type Config struct {
	Order  int     `json:"order" yaml:"order"`   // Maximum n-gram order N
	Lambda float64 `json:"lambda" yaml:"lambda"` // Interpolation weight, in (0,1)
	Delta  float64 `json:"delta" yaml:"delta"`   // Absolute discount, in (0,1)
}

// DefaultConfig returns a trigram configuration with the standard weights
func DefaultConfig() Config {
	return Config{
		Order:  3,
		Lambda: DefaultLambda,
		Delta:  DefaultDelta,
	}
}

// LanguageModel computes smoothed probabilities over a trained trie. It holds
// a read-only reference; several models may share one trie.
type LanguageModel struct {
	trie   *ngram.NGramTrie
	order  int
	lambda float64
	delta  float64
	rng    *rand.Rand
	rngMu  sync.Mutex // rand.Rand is not safe for concurrent use
}

// Option customizes a LanguageModel
type Option func(*LanguageModel)

// WithRand sets the random source used by Sample
func WithRand(rng *rand.Rand) Option {
	return func(m *LanguageModel) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// NewLanguageModel creates a language model over a trained trie
func NewLanguageModel(trie *ngram.NGramTrie, cfg Config, opts ...Option) (*LanguageModel, error) {
	if trie == nil || trie.State() != ngram.StateTrained {
		return nil, ErrNotTrained
	}
	if trie.Tokens(1) == 0 {
		return nil, ErrEmptyModel
	}
	if cfg.Order < 1 || cfg.Order > trie.MaxOrder() {
		return nil, fmt.Errorf("order %d with trie max order %d: %w", cfg.Order, trie.MaxOrder(), ErrOrder)
	}
	if cfg.Lambda <= 0 || cfg.Lambda >= 1 {
		return nil, fmt.Errorf("lambda %v must be in (0,1)", cfg.Lambda)
	}
	if cfg.Delta <= 0 || cfg.Delta >= 1 {
		return nil, fmt.Errorf("delta %v must be in (0,1)", cfg.Delta)
	}

	m := &LanguageModel{
		trie:   trie,
		order:  cfg.Order,
		lambda: cfg.Lambda,
		delta:  cfg.Delta,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Order returns the maximum n-gram order of the model
func (m *LanguageModel) Order() int {
	return m.order
}

// Config returns the model's parameters
func (m *LanguageModel) Config() Config {
	return Config{Order: m.order, Lambda: m.lambda, Delta: m.delta}
}

// Trie returns the underlying trie
func (m *LanguageModel) Trie() *ngram.NGramTrie {
	return m.trie
}

// Count returns the recorded count of seq, or 0 if it was never observed
func (m *LanguageModel) Count(seq model.NGram) int64 {
	count, _ := m.trie.LookupValue(seq)
	return count
}

// CalcMle returns the annotated MLE of seq, or 1/(types+tokens) at seq's order
// for events never observed
func (m *LanguageModel) CalcMle(seq model.NGram) float64 {
	m.checkOrder(seq)
	if mle, ok := m.trie.LookupMle(seq); ok && mle != 0 {
		return mle
	}
	order := len(seq)
	denom := m.trie.Types(order) + m.trie.Tokens(order)
	if denom == 0 {
		return 0 // nothing of this order was ever recorded
	}
	return 1 / float64(denom)
}

// LinearInterpolation blends the MLE of each order with the smoothed estimate
// of the next lower order, bottoming out at add-0.1 unigram smoothing
func (m *LanguageModel) LinearInterpolation(seq model.NGram) float64 {
	m.checkOrder(seq)
	if len(seq) <= 1 {
		return m.unigram(seq)
	}
	return m.lambda*m.CalcMle(seq) + (1-m.lambda)*m.LinearInterpolation(seq.Tail())
}

// AbsoluteDiscount subtracts delta from the observed count and hands the freed
// mass to the lower-order estimate
func (m *LanguageModel) AbsoluteDiscount(seq model.NGram) float64 {
	m.checkOrder(seq)
	if len(seq) <= 1 {
		return m.unigram(seq)
	}

	context := seq.Context()
	contextCount := m.Count(context)
	backoff := m.AbsoluteDiscount(seq.Tail())
	if contextCount == 0 {
		return backoff
	}

	// A context with no observed continuation would score 0 below, so it takes the full backoff
	node, err := m.trie.LookupNode(context)
	if err != nil || node.Len() == 0 {
		return backoff
	}
	leftover := m.delta * float64(node.Len()) / float64(contextCount)
	discounted := math.Max(float64(m.Count(seq))-m.delta, 0) / float64(contextCount)
	return discounted + leftover*backoff
}

// unigram is the shared base case: add-0.1 smoothing over the unigram vocabulary.
// The empty sequence is scored with a zero count.
func (m *LanguageModel) unigram(seq model.NGram) float64 {
	var count int64
	if len(seq) == 1 {
		count = m.Count(seq)
	}
	numerator := float64(count) + unigramAddK
	denominator := float64(m.trie.Tokens(1)) + unigramAddK*float64(m.trie.Types(1))
	return numerator / denominator
}

// checkOrder panics on a query longer than the model order; that is a caller bug
func (m *LanguageModel) checkOrder(seq model.NGram) {
	if len(seq) > m.order {
		panic(fmt.Sprintf("n-gram %q has order %d, model order is %d", seq.String(), len(seq), m.order))
	}
}

func (m *LanguageModel) uniform() float64 {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64()
}
