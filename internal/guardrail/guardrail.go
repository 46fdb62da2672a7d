// Package guardrail screens user input for banned words before any
// model or retrieval work happens.
package guardrail

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

var tokenSplit = regexp.MustCompile(`\W+`)

// Result is the outcome of a guardrail check.
type Result struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// Guardrail rejects input containing banned tokens. Matching is
// case-insensitive and whole-word only: a banned word embedded inside a
// longer token does not trigger.
type Guardrail struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

// DefaultBannedWords is the built-in banned word list.
var DefaultBannedWords = []string{"kill", "evil"}

// New creates a Guardrail seeded with the given banned words.
// A nil slice seeds DefaultBannedWords.
func New(words []string) *Guardrail {
	if words == nil {
		words = DefaultBannedWords
	}
	g := &Guardrail{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		g.words[strings.ToLower(w)] = struct{}{}
	}
	return g
}

// Validate checks the input text. It lower-cases the text, splits on
// non-word-character runs and looks each token up in the banned set.
func (g *Guardrail) Validate(input string) Result {
	tokens := tokenSplit.Split(strings.ToLower(input), -1)

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, banned := g.words[tok]; banned {
			slog.Warn("guardrail: sensitive word detected", "word", tok)
			return Result{Safe: false, Reason: "Sensitive word detected: " + tok}
		}
	}
	return Result{Safe: true}
}

// AddWord adds a banned word, normalized to lower case.
func (g *Guardrail) AddWord(word string) {
	g.mu.Lock()
	g.words[strings.ToLower(word)] = struct{}{}
	g.mu.Unlock()
	slog.Debug("guardrail: added word", "word", word)
}

// RemoveWord removes a banned word.
func (g *Guardrail) RemoveWord(word string) {
	g.mu.Lock()
	delete(g.words, strings.ToLower(word))
	g.mu.Unlock()
	slog.Debug("guardrail: removed word", "word", word)
}

// Words returns the current banned words.
func (g *Guardrail) Words() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.words))
	for w := range g.words {
		out = append(out, w)
	}
	return out
}
