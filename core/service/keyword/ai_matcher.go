// Package keyword provides case-insensitive multi-keyword substring scanning.
package keyword

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Matcher scans text for a fixed, ordered keyword list in a single pass.
// Results come back in list order; a keyword listed twice is reported twice.
type Matcher struct {
	words []string

	// ahocorasick.Matcher keeps per-call state on its nodes
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
}

// NewMatcher builds a matcher over words. Words are lower-cased.
func NewMatcher(words []string) *Matcher {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}

	m := &Matcher{words: lowered}
	if len(lowered) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(lowered)
	}
	return m
}

// Words returns the keyword list.
func (m *Matcher) Words() []string {
	return m.words
}

// Matches returns every keyword found in text, in list order.
func (m *Matcher) Matches(text string) []string {
	if m.matcher == nil || text == "" {
		return nil
	}

	m.mu.Lock()
	hits := m.matcher.Match([]byte(strings.ToLower(text)))
	m.mu.Unlock()

	if len(hits) == 0 {
		return nil
	}

	found := make(map[string]bool, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(m.words) {
			found[m.words[idx]] = true
		}
	}

	matched := make([]string, 0, len(found))
	for _, w := range m.words {
		if found[w] {
			matched = append(matched, w)
		}
	}
	return matched
}

// Count returns len(Matches(text)).
func (m *Matcher) Count(text string) int {
	return len(m.Matches(text))
}
