package categorization

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CategoryRule is a user-defined pattern that pins a category.
type CategoryRule struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	MatchPattern       string
	CleanName          *string
	AssignedCategoryID *uuid.UUID
	IsRecurring        bool
	Priority           int
}

// Merchant is a built-in pattern. Category names the seeded category it maps
// to; DefaultCategoryID is filled once categories are loaded.
type Merchant struct {
	RawPattern        string
	CleanName         string
	Category          string
	DefaultCategoryID *uuid.UUID
}

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads categories and user rules.
type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// GetUserRules fetches all categorization rules for a user, ordered by priority
func (r *Repository) GetUserRules(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error) {
	query := `
		SELECT id, user_id, match_pattern, clean_name, assigned_category_id, is_recurring, priority
		FROM category_rules
		WHERE user_id = $1
		ORDER BY priority DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category rules: %w", err)
	}
	defer rows.Close()

	var rules []CategoryRule
	for rows.Next() {
		var rule CategoryRule
		if err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.MatchPattern,
			&rule.CleanName,
			&rule.AssignedCategoryID,
			&rule.IsRecurring,
			&rule.Priority,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ListCategories returns category ids keyed by name.
func (r *Repository) ListCategories(ctx context.Context) (map[string]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make(map[string]uuid.UUID)
	for rows.Next() {
		var (
			id   uuid.UUID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories[name] = id
	}
	return categories, rows.Err()
}
