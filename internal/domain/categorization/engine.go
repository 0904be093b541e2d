package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
)

// MatchResult represents a single pattern match with its associated metadata
type MatchResult struct {
	Pattern     string
	CleanName   string
	Category    string
	CategoryID  *uuid.UUID
	IsRecurring bool
	RuleID      *uuid.UUID
	Priority    int
	IsRule      bool
}

// Engine matches every rule and merchant pattern against a description in
// a single Aho-Corasick pass.
type Engine struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	metadata [][]MatchResult
	mu       sync.RWMutex
}

func NewEngine(rules []CategoryRule, merchants []Merchant) *Engine {
	e := &Engine{}
	e.Build(rules, merchants)
	return e
}

// Build rebuilds the matcher. Rules outrank merchants; a rule and a merchant
// sharing a pattern are grouped under one index.
func (e *Engine) Build(rules []CategoryRule, merchants []Merchant) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := make(map[string]int)
	patterns := make([]string, 0, len(rules)+len(merchants))
	metadata := make([][]MatchResult, 0, len(rules)+len(merchants))

	add := func(pattern string, result MatchResult) {
		if i, ok := index[pattern]; ok {
			metadata[i] = append(metadata[i], result)
			return
		}
		index[pattern] = len(patterns)
		patterns = append(patterns, pattern)
		metadata = append(metadata, []MatchResult{result})
	}

	for _, rule := range rules {
		pattern := normalizePattern(rule.MatchPattern)
		if pattern == "" {
			continue
		}
		cleanName := ""
		if rule.CleanName != nil {
			cleanName = *rule.CleanName
		}
		ruleID := rule.ID
		add(pattern, MatchResult{
			Pattern:     pattern,
			CleanName:   cleanName,
			CategoryID:  rule.AssignedCategoryID,
			IsRecurring: rule.IsRecurring,
			RuleID:      &ruleID,
			Priority:    rule.Priority + 1000,
			IsRule:      true,
		})
	}

	for _, m := range merchants {
		pattern := normalizePattern(m.RawPattern)
		if pattern == "" {
			continue
		}
		add(pattern, MatchResult{
			Pattern:    pattern,
			CleanName:  m.CleanName,
			Category:   m.Category,
			CategoryID: m.DefaultCategoryID,
			Priority:   len(pattern),
		})
	}

	e.patterns = patterns
	e.metadata = metadata
	e.matcher = nil
	if len(patterns) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(patterns)
	}
}

// Match returns the highest priority match whose pattern sits on word
// boundaries in the description, or nil.
func (e *Engine) Match(description string) *MatchResult {
	all := e.MatchAll(description)
	if len(all) == 0 {
		return nil
	}
	best := all[0]
	return &best
}

// MatchAll returns every boundary-respecting match, highest priority first.
func (e *Engine) MatchAll(description string) []MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	text := strings.ToUpper(description)
	hits := e.matcher.Match([]byte(text))
	if len(hits) == 0 {
		return nil
	}

	var results []MatchResult
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.metadata) || !containsWord(text, e.patterns[idx]) {
			continue
		}
		results = append(results, e.metadata[idx]...)
	}

	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Priority > results[j-1].Priority; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	return results
}

func (e *Engine) PatternCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

func (e *Engine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher == nil
}

// normalizePattern strips SQL LIKE wildcards and upper-cases.
func normalizePattern(p string) string {
	return strings.ToUpper(strings.TrimSpace(strings.Trim(strings.TrimSpace(p), "%")))
}

// containsWord reports whether pattern occurs in text without being glued to
// a letter on either side, so "RENT" does not match "CURRENT".
func containsWord(text, pattern string) bool {
	for start := 0; start <= len(text)-len(pattern); {
		i := strings.Index(text[start:], pattern)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(pattern)
		if (i == 0 || !isLetter(text[i-1])) && (end == len(text) || !isLetter(text[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
