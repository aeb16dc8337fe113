package shop

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/model"
)

// Callback data prefixes
const (
	CallbackShopCategory = "shop_cat:"  // shop_cat:STEAM
	CallbackShopItem     = "shop_item:" // shop_item:<product id>
	CallbackShopBuy      = "shop_buy:"  // shop_buy:<product id>
	CallbackShopHome     = "shop_home"
)

// maxProductButtons caps one category page; Telegram rejects oversized keyboards.
const maxProductButtons = 20

// BuildCategoryPanel creates the shop landing panel with one button per category.
func BuildCategoryPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	categories := append([]model.Category{CategoryAll}, model.Categories()...)
	var rows []tele.Row

	// 2 buttons per row
	var currentRow []tele.Btn
	for i, c := range categories {
		currentRow = append(currentRow, markup.Data(CategoryLabel(c), CallbackShopCategory+string(c)))
		if len(currentRow) == 2 || i == len(categories)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	markup.Inline(rows...)
	return markup
}

// BuildProductPanel lists products of one category, one per row.
func BuildProductPanel(products []*model.Product) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for i, p := range products {
		if i == maxProductButtons {
			break
		}
		label := fmt.Sprintf("%s · %s", p.Title, FormatPrice(p.Price))
		if p.Stock <= 0 {
			label += " (sold out)"
		}
		rows = append(rows, markup.Row(markup.Data(label, CallbackShopItem+p.ID)))
	}

	rows = append(rows, markup.Row(markup.Data("⬅️ Categories", CallbackShopHome)))
	markup.Inline(rows...)
	return markup
}

// BuildConfirmPanel creates the purchase confirmation panel.
func BuildConfirmPanel(p *model.Product) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	back := markup.Data("⬅️ Back", CallbackShopCategory+string(p.Category))
	if p.Stock <= 0 {
		markup.Inline(markup.Row(back))
		return markup
	}

	buyBtn := markup.Data("✅ Buy for "+FormatPrice(p.Price), CallbackShopBuy+p.ID)
	markup.Inline(
		markup.Row(buyBtn),
		markup.Row(back),
	)
	return markup
}

// BuildWebAppPanel creates the /start button that opens the Mini App.
// Returns nil when url is empty.
func BuildWebAppPanel(url string) *tele.ReplyMarkup {
	if url == "" {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.WebApp("🛒 Open store", &tele.WebApp{URL: url})))
	return markup
}

// FormatPrice renders a money amount with two decimals.
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatShopMessage creates the shop welcome message.
func FormatShopMessage(balance decimal.Decimal) string {
	var sb strings.Builder
	sb.WriteString("🏪 Welcome to the store\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💰 Balance: %s\n", FormatPrice(balance)))
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString("Pick a category:")
	return sb.String()
}

// FormatCategoryMessage heads a product list.
func FormatCategoryMessage(c model.Category, count int) string {
	if count == 0 {
		return fmt.Sprintf("%s\n\nNothing here yet.", CategoryLabel(c))
	}
	return fmt.Sprintf("%s\n\n%d product(s). Tap one for details:", CategoryLabel(c), count)
}

// FormatProductDetail creates the product detail message.
func FormatProductDetail(p *model.Product, balance decimal.Decimal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", p.Title))
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	if p.Description != "" {
		sb.WriteString(p.Description + "\n")
	}
	sb.WriteString(fmt.Sprintf("💵 Price: %s\n", FormatPrice(p.Price)))
	if p.Region != "" {
		sb.WriteString(fmt.Sprintf("🌍 Region: %s\n", p.Region))
	}
	sb.WriteString(fmt.Sprintf("📦 In stock: %d\n", p.Stock))
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💰 Your balance: %s\n", FormatPrice(balance)))

	switch {
	case p.Stock <= 0:
		sb.WriteString("❌ Out of stock")
	case balance.LessThan(p.Price):
		sb.WriteString("❌ Insufficient funds")
	default:
		sb.WriteString("Confirm purchase?")
	}

	return sb.String()
}

// FormatDelivery is sent after a successful purchase.
func FormatDelivery(o *model.Order) string {
	msg := fmt.Sprintf("✅ Purchased %s for %s\n", o.ProductTitle, FormatPrice(o.Price))
	msg += fmt.Sprintf("🧾 Order: %s\n", o.ID)
	if o.DeliveryData != "" {
		msg += "━━━━━━━━━━━━━━━\n"
		msg += o.DeliveryData
	}
	return msg
}

// FormatOrders renders a user's recent orders.
func FormatOrders(orders []*model.Order) string {
	if len(orders) == 0 {
		return "🧾 No orders yet. Send /shop to browse the store."
	}

	var sb strings.Builder
	sb.WriteString("🧾 Recent orders\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	for _, o := range orders {
		sb.WriteString(fmt.Sprintf("%s · %s · %s\n",
			o.Date.Format("2006-01-02 15:04"), o.ProductTitle, FormatPrice(o.Price)))
	}
	return sb.String()
}
