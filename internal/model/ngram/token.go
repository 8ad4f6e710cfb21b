package ngram

import "strings"

// Token is a single normalized text unit
type Token string

// NGram represents an n-gram (ordered view over a token buffer)
type NGram []Token

// Of builds an n-gram from plain strings
func Of(tokens ...string) NGram {
	ng := make(NGram, len(tokens))
	for i, t := range tokens {
		ng[i] = Token(t)
	}
	return ng
}

// Order returns the number of tokens in the n-gram
func (ng NGram) Order() int {
	return len(ng)
}

// String returns the n-gram as a space-separated string
func (ng NGram) String() string {
	parts := make([]string, len(ng))
	for i, token := range ng {
		parts[i] = string(token)
	}
	return strings.Join(parts, " ")
}

// Context returns the context (all tokens except the last one)
func (ng NGram) Context() NGram {
	if len(ng) <= 1 {
		return NGram{}
	}
	return ng[:len(ng)-1]
}

// Tail drops the oldest token, giving the next lower-order n-gram
func (ng NGram) Tail() NGram {
	if len(ng) <= 1 {
		return NGram{}
	}
	return ng[1:]
}

// LastToken returns the last token in the n-gram
func (ng NGram) LastToken() Token {
	if len(ng) == 0 {
		return ""
	}
	return ng[len(ng)-1]
}

// Extend returns a new n-gram with token appended; the receiver is not modified
func (ng NGram) Extend(token Token) NGram {
	out := make(NGram, len(ng), len(ng)+1)
	copy(out, ng)
	return append(out, token)
}

// Windows returns every contiguous sub-sequence of length n, as views into tokens
func Windows(tokens []Token, n int) []NGram {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	result := make([]NGram, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		result = append(result, NGram(tokens[i:i+n:i+n]))
	}
	return result
}
