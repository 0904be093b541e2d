package categorization

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	fuzzyThreshold   = 85
	reviewConfidence = 0.7
)

// Result is the categorization outcome for one transaction.
type Result struct {
	CategoryID  *uuid.UUID
	Category    string
	CleanName   string
	Confidence  float64
	NeedsReview bool
	Reason      string
}

// Store is what the service reads rules and categories from.
type Store interface {
	GetUserRules(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error)
	ListCategories(ctx context.Context) (map[string]uuid.UUID, error)
}

type matchers struct {
	engine *Engine
	fuzzy  *FuzzyMatcher
}

// Service handles transaction categorization logic
type Service struct {
	repo   Store
	logger *slog.Logger

	mu         sync.Mutex
	merchants  []Merchant
	categories map[string]uuid.UUID

	cacheMu sync.RWMutex
	cache   map[uuid.UUID]*matchers
}

func NewService(repo Store, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		cache:  make(map[uuid.UUID]*matchers),
	}
}

// Categorize assigns a category to a sanitized merchant description. amount
// is positive for money coming in and negative for money going out. A non-nil error means
// rules could not be loaded; the returned Result then asks for review.
func (s *Service) Categorize(ctx context.Context, description string, amount decimal.Decimal, userID uuid.UUID) (Result, error) {
	result := Result{CleanName: toTitleCase(description)}

	m, err := s.matchersFor(ctx, userID)
	if err != nil {
		result.NeedsReview = true
		result.Reason = "categorization rules unavailable"
		return result, err
	}

	if hit := m.engine.Match(description); hit != nil {
		result.CategoryID = hit.CategoryID
		result.Category = hit.Category
		if hit.CleanName != "" {
			result.CleanName = hit.CleanName
		}
		result.Confidence = 0.85
		result.Reason = "matched " + hit.Pattern
		if hit.IsRule {
			result.Confidence = 0.95
			result.Reason = "matched user rule " + hit.Pattern
		}
	} else if hit := m.fuzzy.Match(description, fuzzyThreshold); hit != nil {
		result.CategoryID = hit.CategoryID
		result.Category = hit.Category
		if hit.CleanName != "" {
			result.CleanName = hit.CleanName
		}
		result.Confidence = float64(hit.Score) / 100 * 0.8
		result.Reason = fmt.Sprintf("close to %s (score %d)", hit.Pattern, hit.Score)
		result.NeedsReview = result.Confidence < reviewConfidence
	} else {
		result.NeedsReview = true
		result.Reason = "no matching rule"
		return result, nil
	}

	switch {
	case result.CategoryID == nil:
		result.NeedsReview = true
		result.Reason += ", category not assigned"
	case result.Category == CategoryIncome && amount.IsNegative():
		result.NeedsReview = true
		result.Reason += ", income pattern on an outgoing amount"
	}
	return result, nil
}

// InvalidateUser drops the cached matchers after a user's rules change.
func (s *Service) InvalidateUser(userID uuid.UUID) {
	s.cacheMu.Lock()
	delete(s.cache, userID)
	s.cacheMu.Unlock()
}

func (s *Service) matchersFor(ctx context.Context, userID uuid.UUID) (*matchers, error) {
	s.cacheMu.RLock()
	m, ok := s.cache[userID]
	s.cacheMu.RUnlock()
	if ok {
		return m, nil
	}

	merchants, err := s.defaultMerchants(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.GetUserRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user rules: %w", err)
	}

	m = &matchers{
		engine: NewEngine(rules, merchants),
		fuzzy:  NewFuzzyMatcher(rules, merchants),
	}
	s.cacheMu.Lock()
	s.cache[userID] = m
	s.cacheMu.Unlock()

	s.logger.Debug("built categorization matchers",
		slog.String("user_id", userID.String()),
		slog.Int("rules", len(rules)),
		slog.Int("patterns", m.engine.PatternCount()))
	return m, nil
}

// defaultMerchants resolves built-in patterns to seeded category ids once.
func (s *Service) defaultMerchants(ctx context.Context) ([]Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categories != nil {
		return s.merchants, nil
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	merchants := DefaultMerchants()
	for i := range merchants {
		if id, ok := categories[merchants[i].Category]; ok {
			merchants[i].DefaultCategoryID = &id
		}
	}
	s.categories = categories
	s.merchants = merchants
	return merchants, nil
}

func toTitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}
