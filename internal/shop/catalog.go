// Package shop holds the storefront catalog: the product query used by every
// presentation surface, the demo seed, and the bot's inline keyboards.
package shop

import (
	"strings"

	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
)

// CategoryAll is the storefront tab that disables category filtering.
const CategoryAll model.Category = "ALL"

// QueryProducts returns the products matching category and search, in input order.
//
// An empty category or CategoryAll matches every product. search is trimmed and
// matched case-insensitively against title or description; empty matches
// everything. The input slice is never modified.
func QueryProducts(products []*model.Product, category model.Category, search string) []*model.Product {
	needle := strings.ToLower(strings.TrimSpace(search))
	filterCategory := category != "" && category != CategoryAll

	result := make([]*model.Product, 0, len(products))
	for _, p := range products {
		if filterCategory && p.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// DefaultCatalog returns the demo products loaded into an empty store.
// Ids are fixed so seeding twice is detectable.
func DefaultCatalog() []*model.Product {
	return []*model.Product{
		{
			ID:               "1",
			Title:            "Steam Account (CS2 Prime)",
			Description:      "High tier account with Prime status enabled. 100+ hours played.",
			Price:            decimal.RequireFromString("15.99"),
			Category:         model.CategorySteam,
			Stock:            5,
			ImageURL:         "https://picsum.photos/400/400?random=1",
			Region:           "Global",
			AutoDeliveryData: "login: steamuser1\npass: hunter2",
		},
		{
			ID:               "2",
			Title:            "1000 Gold (WoW)",
			Description:      "Instant delivery of 1000 Gold. Server: Draenor EU.",
			Price:            decimal.RequireFromString("9.50"),
			Category:         model.CategoryCurrency,
			Stock:            100,
			ImageURL:         "https://picsum.photos/400/400?random=2",
			Region:           "EU",
			AutoDeliveryData: "Contact support with Order ID to claim.",
		},
		{
			ID:               "3",
			Title:            "Gmail Aged 2018",
			Description:      "Verified phone. Farmed manually. Good for trust factor.",
			Price:            decimal.RequireFromString("1.20"),
			Category:         model.CategoryEmail,
			Stock:            45,
			ImageURL:         "https://picsum.photos/400/400?random=3",
			AutoDeliveryData: "email: test@gmail.com\npass: 123456",
		},
		{
			ID:               "4",
			Title:            "Cyberpunk 2077 Key",
			Description:      "Steam Global Key activation.",
			Price:            decimal.RequireFromString("29.99"),
			Category:         model.CategoryKeys,
			Stock:            2,
			ImageURL:         "https://picsum.photos/400/400?random=4",
			AutoDeliveryData: "AAAA-BBBB-CCCC-DDDD",
		},
	}
}

// CategoryLabel returns the display label for a category tab.
func CategoryLabel(c model.Category) string {
	switch c {
	case CategoryAll:
		return "🛍 All"
	case model.CategorySteam:
		return "🎮 Steam"
	case model.CategoryEmail:
		return "📧 Email"
	case model.CategoryCurrency:
		return "🪙 Currency"
	case model.CategoryAccounts:
		return "👤 Accounts"
	case model.CategoryKeys:
		return "🔑 Keys"
	default:
		return string(c)
	}
}
