// Package ragtest provides a deterministic rag.Embedder for tests in
// packages that need real similarity ordering without a model server.
package ragtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// KeywordEmbedder maps text onto a bag-of-words vector over a fixed
// vocabulary. A constant bias component keeps every vector non-zero, so
// texts sharing no vocabulary still score a small positive similarity.
type KeywordEmbedder struct {
	// Vocabulary lists the words that get their own dimension.
	Vocabulary []string

	// FailOn, when set, makes Embed fail for any batch containing a text it
	// returns true for.
	FailOn func(text string) bool

	mu    sync.Mutex
	calls int
}

// NewKeywordEmbedder returns a KeywordEmbedder over vocab.
func NewKeywordEmbedder(vocab ...string) *KeywordEmbedder {
	return &KeywordEmbedder{Vocabulary: vocab}
}

// Dimensions is len(Vocabulary) plus the bias component.
func (k *KeywordEmbedder) Dimensions() int { return len(k.Vocabulary) + 1 }

// Calls returns how many times Embed has been invoked.
func (k *KeywordEmbedder) Calls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

// Embed implements rag.Embedder.
func (k *KeywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if k.FailOn != nil && k.FailOn(text) {
			return nil, fmt.Errorf("ragtest: embedding refused for %q", text)
		}
		out[i] = k.vector(text)
	}
	return out, nil
}

// vector counts vocabulary hits in text.
func (k *KeywordEmbedder) vector(text string) []float32 {
	v := make([]float32, k.Dimensions())
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for i, term := range k.Vocabulary {
			if w == term {
				v[i]++
			}
		}
	}
	v[len(v)-1] = 0.1
	return v
}
