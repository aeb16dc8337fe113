// Package model defines the data models for the Telegram storefront.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is a product category shown as a storefront tab.
type Category string

// Product categories.
const (
	CategorySteam    Category = "STEAM"
	CategoryEmail    Category = "EMAIL"
	CategoryCurrency Category = "CURRENCY"
	CategoryAccounts Category = "ACCOUNTS"
	CategoryKeys     Category = "KEYS"
)

// Categories returns every product category in display order.
func Categories() []Category {
	return []Category{CategorySteam, CategoryEmail, CategoryCurrency, CategoryAccounts, CategoryKeys}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a purchasable digital good.
type Product struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Category         Category        `json:"category"`
	Stock            int             `json:"stock"`
	ImageURL         string          `json:"imageUrl"`
	Region           string          `json:"region,omitempty"`
	AutoDeliveryData string          `json:"autoDeliveryData,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ProductPatch holds the fields to merge into a product. Nil fields are left untouched.
type ProductPatch struct {
	Title            *string          `json:"title,omitempty"`
	Description      *string          `json:"description,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Category         *Category        `json:"category,omitempty"`
	Stock            *int             `json:"stock,omitempty"`
	ImageURL         *string          `json:"imageUrl,omitempty"`
	Region           *string          `json:"region,omitempty"`
	AutoDeliveryData *string          `json:"autoDeliveryData,omitempty"`
}

// Apply merges the patch into p.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	if pp.ImageURL != nil {
		p.ImageURL = *pp.ImageURL
	}
	if pp.Region != nil {
		p.Region = *pp.Region
	}
	if pp.AutoDeliveryData != nil {
		p.AutoDeliveryData = *pp.AutoDeliveryData
	}
}

// User is a buyer account bound to a Telegram user id.
type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	IsAdmin   bool            `json:"isAdmin"`
	AvatarURL string          `json:"avatarUrl"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// UserPatch holds the fields to merge into a user. Nil fields are left untouched.
type UserPatch struct {
	Username  *string
	Balance   *decimal.Decimal
	IsAdmin   *bool
	AvatarURL *string
}

// Apply merges the patch into u.
func (up UserPatch) Apply(u *User) {
	if up.Username != nil {
		u.Username = *up.Username
	}
	if up.Balance != nil {
		u.Balance = *up.Balance
	}
	if up.IsAdmin != nil {
		u.IsAdmin = *up.IsAdmin
	}
	if up.AvatarURL != nil {
		u.AvatarURL = *up.AvatarURL
	}
}

// Identity is the profile an identity provider (Telegram) vouches for.
type Identity struct {
	ID        int64
	Username  string
	AvatarURL string
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses.
const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusPending   OrderStatus = "pending"
)

// Order is an immutable record of one purchase. Title, price and delivery data
// are copied from the product at purchase time.
type Order struct {
	ID           string          `json:"id"`
	UserID       int64           `json:"userId"`
	ProductID    string          `json:"productId"`
	ProductTitle string          `json:"productTitle"`
	Price        decimal.Decimal `json:"price"`
	Date         time.Time       `json:"date"`
	Status       OrderStatus     `json:"status"`
	DeliveryData string          `json:"deliveryData,omitempty"`
}

// TxType categorizes a balance change.
type TxType string

// Transaction types.
const (
	TxTypeDeposit  TxType = "deposit"
	TxTypePurchase TxType = "purchase"
)

// Transaction is an append-only ledger entry. Amount is positive for deposits
// and negative for purchases.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}
