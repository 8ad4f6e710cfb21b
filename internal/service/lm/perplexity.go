package lm

import (
	"fmt"
	"math"

	model "ngramlm/internal/model/ngram"
)

// LogLikelihood returns the natural-log likelihood of tokens under fn.
//
// For order 1 every token is scored as a unigram. For higher orders the first
// token is scored as a unigram, then for i in [order-1, len) the window
// tokens[i-order+1:i] is scored. That window has order-1 tokens and ends just
// before position i.
func (m *LanguageModel) LogLikelihood(tokens []model.Token, fn SmoothingFunc, order int) (float64, error) {
	if len(tokens) == 0 {
		return 0, ErrEmptySequence
	}
	if order < 1 || order > m.order {
		return 0, fmt.Errorf("order %d with model order %d: %w", order, m.order, ErrOrder)
	}

	if order == 1 {
		sum := 0.0
		for _, tok := range tokens {
			sum += math.Log(fn(model.NGram{tok}))
		}
		return sum, nil
	}

	ll := math.Log(fn(model.NGram(tokens[:1])))
	for i := order - 1; i < len(tokens); i++ {
		ll += math.Log(fn(model.NGram(tokens[i-order+1 : i])))
	}
	return ll, nil
}

// Perplexity returns exp(-LogLikelihood / len(tokens))
func (m *LanguageModel) Perplexity(tokens []model.Token, fn SmoothingFunc, order int) (float64, error) {
	ll, err := m.LogLikelihood(tokens, fn, order)
	if err != nil {
		return 0, err
	}
	return math.Exp(-ll / float64(len(tokens))), nil
}

// CrossEntropy returns the mean negative log-likelihood in bits per token
func (m *LanguageModel) CrossEntropy(tokens []model.Token, fn SmoothingFunc, order int) (float64, error) {
	ll, err := m.LogLikelihood(tokens, fn, order)
	if err != nil {
		return 0, err
	}
	return -ll / (float64(len(tokens)) * math.Ln2), nil
}
