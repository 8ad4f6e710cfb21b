package ngram

import "fmt"

// ComputeMLE annotates every node up to maxOrder with its conditional maximum
// likelihood estimate and moves the trie to StateTrained. It runs once.
//
// A node at depth d gets count / (sum of its siblings' counts), i.e.
// P(token | (d-1)-token context). The root gets count / 1, which is a
// placeholder since no zero-length sequence is ever recorded.
func (t *NGramTrie) ComputeMLE() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateTrained {
		return fmt.Errorf("failed to compute mle: %w", ErrTrained)
	}

	t.annotate(t.root, 0, 1)
	t.state = StateTrained
	return nil
}

func (t *NGramTrie) annotate(node *TrieNode, depth int, contextTotal int64) {
	if contextTotal > 0 {
		node.mle = float64(node.count) / float64(contextTotal)
	}

	if depth+1 > t.maxOrder {
		return
	}
	total := node.childTotal()
	for _, child := range node.children {
		t.annotate(child, depth+1, total)
	}
}
