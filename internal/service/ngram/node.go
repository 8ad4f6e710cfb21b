package ngram

import (
	"sort"

	model "ngramlm/internal/model/ngram"
)

// TrieNode marks the end of one token sequence reached from the root.
// A node exclusively owns its children.
type TrieNode struct {
	count    int64                     // Times this exact sequence was recorded
	mle      float64                   // Conditional MLE, set by the MLE pass
	terminal bool                      // Endpoint of at least one recorded occurrence
	children map[model.Token]*TrieNode // One edge per single-token extension
}

// NewTrieNode creates an empty trie node
func NewTrieNode() *TrieNode {
	return &TrieNode{
		children: make(map[model.Token]*TrieNode),
	}
}

// Count returns how many times the sequence ending here was recorded
func (n *TrieNode) Count() int64 {
	return n.count
}

// Mle returns the annotated conditional probability. Zero before the MLE pass.
func (n *TrieNode) Mle() float64 {
	return n.mle
}

// Terminal reports whether this node ended a recorded occurrence, as opposed to
// only being an ancestor of one
func (n *TrieNode) Terminal() bool {
	return n.terminal
}

// Child returns the child reached by token, or nil
func (n *TrieNode) Child(token model.Token) *TrieNode {
	return n.children[token]
}

// Len returns the number of distinct tokens observed after this node
func (n *TrieNode) Len() int {
	return len(n.children)
}

// Tokens returns the child edge labels in sorted order
func (n *TrieNode) Tokens() []model.Token {
	tokens := make([]model.Token, 0, len(n.children))
	for tok := range n.children {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}

// childTotal sums the counts of all children
func (n *TrieNode) childTotal() int64 {
	var total int64
	for _, child := range n.children {
		total += child.count
	}
	return total
}

// insert returns the child for token, creating it if needed. created is true
// when a new node was made.
func (n *TrieNode) insert(token model.Token) (child *TrieNode, created bool) {
	if existing, ok := n.children[token]; ok {
		return existing, false
	}
	child = NewTrieNode()
	n.children[token] = child
	return child, true
}
