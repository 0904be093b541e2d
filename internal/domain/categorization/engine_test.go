package categorization

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEngine_Match(t *testing.T) {
	categoryID := uuid.New()
	rules := []CategoryRule{
		{
			ID:                 uuid.New(),
			UserID:             uuid.New(),
			MatchPattern:       "%PLANET FITNESS%",
			CleanName:          strPtr("Planet Fitness"),
			AssignedCategoryID: &categoryID,
			IsRecurring:        true,
			Priority:           10,
		},
	}
	merchants := []Merchant{
		{RawPattern: "STARBUCKS", CleanName: "Starbucks", Category: CategoryDining, DefaultCategoryID: &categoryID},
	}

	engine := NewEngine(rules, merchants)

	t.Run("matches rule pattern", func(t *testing.T) {
		result := engine.Match("DEBIT CARD PURCHASE PLANET FITNESS CLUB FEES NH")
		require.NotNil(t, result)
		assert.Equal(t, "Planet Fitness", result.CleanName)
		assert.True(t, result.IsRecurring)
		assert.True(t, result.IsRule)
	})

	t.Run("matches merchant pattern", func(t *testing.T) {
		result := engine.Match("POS STARBUCKS COFFEE #1234")
		require.NotNil(t, result)
		assert.Equal(t, "Starbucks", result.CleanName)
		assert.Equal(t, CategoryDining, result.Category)
		assert.False(t, result.IsRule)
	})

	t.Run("returns nil for no match", func(t *testing.T) {
		assert.Nil(t, engine.Match("RANDOM TRANSACTION WITH NO MATCH"))
	})

	t.Run("case insensitive matching", func(t *testing.T) {
		result := engine.Match("payment to planet fitness")
		require.NotNil(t, result)
		assert.Equal(t, "Planet Fitness", result.CleanName)
	})
}

func TestEngine_Priority(t *testing.T) {
	ruleCategory, merchantCategory := uuid.New(), uuid.New()

	t.Run("rule beats merchant on the same pattern", func(t *testing.T) {
		engine := NewEngine(
			[]CategoryRule{{ID: uuid.New(), MatchPattern: "%NETFLIX%", CleanName: strPtr("Netflix (Rule)"), AssignedCategoryID: &ruleCategory}},
			[]Merchant{{RawPattern: "NETFLIX", CleanName: "Netflix", DefaultCategoryID: &merchantCategory}},
		)
		assert.Equal(t, 1, engine.PatternCount())

		result := engine.Match("NETFLIX.COM SUBSCRIPTION")
		require.NotNil(t, result)
		assert.True(t, result.IsRule)
		assert.Equal(t, &ruleCategory, result.CategoryID)
	})

	t.Run("longer merchant pattern wins", func(t *testing.T) {
		engine := NewEngine(nil, []Merchant{
			{RawPattern: "UBER", Category: CategoryTransportation},
			{RawPattern: "UBER EATS", Category: CategoryDining},
		})

		result := engine.Match("UBER EATS ORDER 8812")
		require.NotNil(t, result)
		assert.Equal(t, CategoryDining, result.Category)
		assert.Len(t, engine.MatchAll("UBER EATS ORDER 8812"), 2)
	})
}

func TestEngine_WordBoundaries(t *testing.T) {
	engine := NewEngine(nil, []Merchant{
		{RawPattern: "RENT", Category: CategoryHousing},
		{RawPattern: "FEE", Category: CategoryFees},
		{RawPattern: "COFFEE", Category: CategoryDining},
	})

	tests := []struct {
		description string
		want        string
	}{
		{"CURRENT ACCOUNT INTEREST", ""},
		{"JOES COFFEE HOUSE", CategoryDining},
		{"MONTHLY RENT PAYMENT", CategoryHousing},
		{"ATM FEE", CategoryFees},
		{"RENT-OCTOBER", CategoryHousing},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			result := engine.Match(tt.description)
			if tt.want == "" {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Category)
		})
	}
}

func TestEngine_Empty(t *testing.T) {
	engine := NewEngine(nil, []Merchant{{RawPattern: "%%"}})

	assert.True(t, engine.IsEmpty())
	assert.Equal(t, 0, engine.PatternCount())
	assert.Nil(t, engine.Match("ANYTHING"))
}

func TestEngine_Rebuild(t *testing.T) {
	engine := NewEngine(nil, []Merchant{{RawPattern: "SPOTIFY", Category: CategoryEntertainment}})
	require.NotNil(t, engine.Match("SPOTIFY USA"))

	engine.Build(nil, []Merchant{{RawPattern: "HULU", Category: CategoryEntertainment}})

	assert.Nil(t, engine.Match("SPOTIFY USA"))
	assert.NotNil(t, engine.Match("HULU 877-8244858"))
}

func TestDefaultMerchants_HaveSeededCategories(t *testing.T) {
	seeded := map[string]bool{
		CategoryIncome: true, CategoryGroceries: true, CategoryDining: true, CategoryTransportation: true,
		CategoryUtilities: true, CategoryShopping: true, CategoryEntertainment: true, CategoryTransfers: true,
		CategoryFees: true, CategoryHousing: true, CategoryHealth: true,
	}
	for _, m := range DefaultMerchants() {
		assert.True(t, seeded[m.Category], "pattern %q maps to unknown category %q", m.RawPattern, m.Category)
		assert.NotEmpty(t, m.CleanName)
	}
}
