package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FuzzyMatchResult represents a fuzzy match with its similarity score
type FuzzyMatchResult struct {
	Pattern    string
	CleanName  string
	Category   string
	CategoryID *uuid.UUID
	Score      int // 0-100
	Distance   int
	IsRule     bool
	RuleID     *uuid.UUID
}

// FuzzyMatcher catches misspelled or truncated merchant names such as
// "STARBUKS" that the exact engine misses.
type FuzzyMatcher struct {
	patterns []fuzzyPattern
	mu       sync.RWMutex
}

type fuzzyPattern struct {
	normalized string
	words      int
	cleanName  string
	category   string
	categoryID *uuid.UUID
	ruleID     *uuid.UUID
	isRule     bool
	priority   int
}

func NewFuzzyMatcher(rules []CategoryRule, merchants []Merchant) *FuzzyMatcher {
	fm := &FuzzyMatcher{}
	fm.Build(rules, merchants)
	return fm
}

func (fm *FuzzyMatcher) Build(rules []CategoryRule, merchants []Merchant) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	fm.patterns = make([]fuzzyPattern, 0, len(rules)+len(merchants))
	for _, rule := range rules {
		p := normalizePattern(rule.MatchPattern)
		if p == "" {
			continue
		}
		cleanName := ""
		if rule.CleanName != nil {
			cleanName = *rule.CleanName
		}
		ruleID := rule.ID
		fm.patterns = append(fm.patterns, fuzzyPattern{
			normalized: p,
			words:      len(strings.Fields(p)),
			cleanName:  cleanName,
			categoryID: rule.AssignedCategoryID,
			ruleID:     &ruleID,
			isRule:     true,
			priority:   rule.Priority + 1000,
		})
	}
	for _, m := range merchants {
		p := normalizePattern(m.RawPattern)
		// short patterns are one typo away from too many words
		if len(p) < 5 {
			continue
		}
		fm.patterns = append(fm.patterns, fuzzyPattern{
			normalized: p,
			words:      len(strings.Fields(p)),
			cleanName:  m.CleanName,
			category:   m.Category,
			categoryID: m.DefaultCategoryID,
		})
	}
}

// Match returns the best match scoring at least threshold, or nil. Each
// pattern is compared against every run of description words of the same
// length, so surrounding noise does not dilute the score.
func (fm *FuzzyMatcher) Match(description string, threshold int) *FuzzyMatchResult {
	all := fm.MatchAll(description, threshold)
	if len(all) == 0 {
		return nil
	}
	return &all[0]
}

// MatchAll finds all fuzzy matches above the threshold, best first.
func (fm *FuzzyMatcher) MatchAll(description string, threshold int) []FuzzyMatchResult {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	words := strings.Fields(strings.ToUpper(description))
	if len(fm.patterns) == 0 || len(words) == 0 {
		return nil
	}

	type scored struct {
		FuzzyMatchResult
		priority int
	}
	var found []scored
	for _, p := range fm.patterns {
		best, distance := 0, 0
		for _, window := range windows(words, p.words) {
			if s := fuzzyScore(window, p.normalized); s > best {
				best = s
				distance = fuzzy.LevenshteinDistance(window, p.normalized)
			}
		}
		if best < threshold {
			continue
		}
		found = append(found, scored{
			FuzzyMatchResult: FuzzyMatchResult{
				Pattern:    p.normalized,
				CleanName:  p.cleanName,
				Category:   p.category,
				CategoryID: p.categoryID,
				Score:      best,
				Distance:   distance,
				IsRule:     p.isRule,
				RuleID:     p.ruleID,
			},
			priority: p.priority,
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Score != found[j].Score {
			return found[i].Score > found[j].Score
		}
		return found[i].priority > found[j].priority
	})

	results := make([]FuzzyMatchResult, len(found))
	for i, f := range found {
		results[i] = f.FuzzyMatchResult
	}
	return results
}

func (fm *FuzzyMatcher) PatternCount() int {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return len(fm.patterns)
}

func windows(words []string, size int) []string {
	if size <= 0 {
		size = 1
	}
	if size >= len(words) {
		return []string{strings.Join(words, " ")}
	}
	out := make([]string, 0, len(words)-size+1)
	for i := 0; i+size <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+size], " "))
	}
	return out
}

// fuzzyScore calculates a similarity score between two strings (0-100)
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	maxLen := max(len(s1), len(s2))
	if maxLen == 0 {
		return 0
	}

	distance := fuzzy.LevenshteinDistance(s1, s2)
	score := 100 * (maxLen - distance) / maxLen

	// a subsequence hit ("STRBCKS" in "STARBUCKS") scores on how few letters were skipped
	if rank := fuzzy.RankMatch(s1, s2); rank >= 0 {
		if sub := 100 - rank*100/len(s2); sub > score {
			score = sub
		}
	}
	return score
}
