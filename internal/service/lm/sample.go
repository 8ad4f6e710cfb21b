package lm

import (
	"fmt"

	model "ngramlm/internal/model/ngram"
)

// Sample draws one token by inverse-CDF sampling from the distribution fn induces
// over the tokens observed after prior (the whole vocabulary when prior is empty).
//
// Candidates are visited in sorted order. Smoothed estimates need not sum to 1
// over the candidates; when they under-sum and the draw is never exhausted the
// last candidate is returned.
func (m *LanguageModel) Sample(fn SmoothingFunc, prior ...model.Token) (model.Token, error) {
	if len(prior)+1 > m.order {
		return "", fmt.Errorf("context of %d tokens with model order %d: %w", len(prior), m.order, ErrOrder)
	}
	node, err := m.trie.LookupNode(model.NGram(prior))
	if err != nil {
		return "", fmt.Errorf("failed to find sampling context: %w", err)
	}
	candidates := node.Tokens()
	if len(candidates) == 0 {
		return "", fmt.Errorf("context %q: %w", model.NGram(prior).String(), ErrNoCandidates)
	}

	u := m.uniform()
	seq := make(model.NGram, len(prior)+1)
	copy(seq, prior)
	for _, candidate := range candidates {
		seq[len(prior)] = candidate
		u -= fn(seq)
		if u <= 0 {
			return candidate, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// Generate samples up to n tokens continuing seed. The prior for each draw is
// the last Order-1 tokens; when that context has no observed continuation the
// oldest token is dropped until one does. Generation stops early if even the
// empty context yields nothing.
func (m *LanguageModel) Generate(fn SmoothingFunc, seed []model.Token, n int) ([]model.Token, error) {
	if n < 0 {
		return nil, fmt.Errorf("generate %d tokens: %w", n, ErrLength)
	}
	out := make([]model.Token, len(seed))
	copy(out, seed)

	for i := 0; i < n; i++ {
		start := len(out) - (m.order - 1)
		if start < 0 {
			start = 0
		}
		var next model.Token
		var err error
		for ctx := out[start:]; ; ctx = ctx[1:] {
			next, err = m.Sample(fn, ctx...)
			if err == nil || len(ctx) == 0 {
				break
			}
		}
		if err != nil {
			return out, err
		}
		out = append(out, next)
	}
	return out, nil
}
