package shop

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-storefront/internal/model"
)

func ids(products []*model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestQueryProducts_Examples(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		category model.Category
		search   string
		want     []string
	}{
		{"all", CategoryAll, "", []string{"1", "2", "3", "4"}},
		{"empty category is all", "", "", []string{"1", "2", "3", "4"}},
		{"keys", model.CategoryKeys, "", []string{"4"}},
		{"title search ignores case", CategoryAll, "gold", []string{"2"}},
		{"description search", CategoryAll, "prime status", []string{"1"}},
		{"search is trimmed", CategoryAll, "  cyberpunk ", []string{"4"}},
		{"steam matches title and description", CategoryAll, "steam", []string{"1", "4"}},
		{"category and search combine", model.CategoryKeys, "steam", []string{"4"}},
		{"no match", model.CategoryAccounts, "", []string{}},
		{"whitespace search matches all", model.CategoryEmail, "   ", []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QueryProducts(catalog, tt.category, tt.search)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestQueryProducts_DoesNotMutateInput(t *testing.T) {
	catalog := DefaultCatalog()
	before := ids(catalog)

	_ = QueryProducts(catalog, model.CategorySteam, "x")

	assert.Equal(t, before, ids(catalog))
}

func genProduct(t *rapid.T, i int) *model.Product {
	categories := model.Categories()
	return &model.Product{
		ID:          fmt.Sprintf("p%d", i),
		Title:       rapid.StringMatching(`[A-Za-z ]{1,12}`).Draw(t, "title"),
		Description: rapid.StringMatching(`[A-Za-z ]{0,20}`).Draw(t, "description"),
		Category:    categories[rapid.IntRange(0, len(categories)-1).Draw(t, "category")],
		Price:       decimal.NewFromInt(rapid.Int64Range(0, 100).Draw(t, "price")),
	}
}

// TestQueryProductsProperty checks that the result is exactly the ordered
// subsequence of the input satisfying the category and text predicates.
func TestQueryProductsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 15).Draw(t, "n")
		products := make([]*model.Product, n)
		for i := range products {
			products[i] = genProduct(t, i)
		}

		allCategories := append([]model.Category{"", CategoryAll}, model.Categories()...)
		category := allCategories[rapid.IntRange(0, len(allCategories)-1).Draw(t, "queryCategory")]
		search := rapid.StringMatching(`[A-Za-z ]{0,3}`).Draw(t, "search")

		got := QueryProducts(products, category, search)

		needle := strings.ToLower(strings.TrimSpace(search))
		var want []*model.Product
		for _, p := range products {
			catOK := category == "" || category == CategoryAll || p.Category == category
			textOK := needle == "" ||
				strings.Contains(strings.ToLower(p.Title), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle)
			if catOK && textOK {
				want = append(want, p)
			}
		}

		if len(got) != len(want) {
			t.Fatalf("expected %d products, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("position %d: expected %s, got %s", i, want[i].ID, got[i].ID)
			}
		}

		// Idempotent: querying the result again changes nothing.
		again := QueryProducts(got, category, search)
		if len(again) != len(got) {
			t.Fatalf("query is not idempotent: %d then %d", len(got), len(again))
		}
	})
}

func TestDefaultCatalog_Valid(t *testing.T) {
	catalog := DefaultCatalog()
	require.Len(t, catalog, 4)

	seen := map[string]bool{}
	for _, p := range catalog {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Title)
		assert.True(t, p.Category.Valid())
		assert.True(t, p.Price.IsPositive())
		assert.Positive(t, p.Stock)
		assert.NotEmpty(t, p.AutoDeliveryData)
	}
}

func TestFormatProductDetail(t *testing.T) {
	p := DefaultCatalog()[3]

	msg := FormatProductDetail(p, decimal.RequireFromString("10"))
	assert.Contains(t, msg, "$29.99")
	assert.Contains(t, msg, "Insufficient funds")

	msg = FormatProductDetail(p, decimal.RequireFromString("30"))
	assert.Contains(t, msg, "Confirm purchase?")

	p.Stock = 0
	msg = FormatProductDetail(p, decimal.RequireFromString("30"))
	assert.Contains(t, msg, "Out of stock")
}

func TestBuildPanels(t *testing.T) {
	markup := BuildCategoryPanel()
	buttons := 0
	for _, row := range markup.InlineKeyboard {
		buttons += len(row)
	}
	assert.Equal(t, len(model.Categories())+1, buttons)

	markup = BuildProductPanel(DefaultCatalog())
	// One row per product plus the back row.
	assert.Len(t, markup.InlineKeyboard, 5)

	assert.Nil(t, BuildWebAppPanel(""))
	assert.NotNil(t, BuildWebAppPanel("https://example.org"))
}
