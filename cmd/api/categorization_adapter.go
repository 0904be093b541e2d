package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	importservice "github.com/FACorreiaa/statement-ledger/internal/domain/import/service"
)

// categorizationAdapter adapts categorization.Service to import's CategorizationService interface
type categorizationAdapter struct {
	svc *categorization.Service
}

func newCategorizationAdapter(svc *categorization.Service) importservice.CategorizationService {
	return &categorizationAdapter{svc: svc}
}

// Categorize implements importservice.CategorizationService
func (a *categorizationAdapter) Categorize(ctx context.Context, description string, amount decimal.Decimal, userID uuid.UUID) (importservice.CategorizationResult, error) {
	r, err := a.svc.Categorize(ctx, description, amount, userID)
	out := importservice.CategorizationResult{
		CategoryID:  r.CategoryID,
		Confidence:  r.Confidence,
		NeedsReview: r.NeedsReview,
		Reason:      r.Reason,
	}
	return out, err
}
