package models

import "time"

// Product represents a product in the store catalog.
type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name" validate:"required,min=1,max=100"`
	Description     string    `json:"description" validate:"omitempty,max=2000"`
	Price           float64   `json:"price" validate:"gte=0"`
	OriginalPrice   *float64  `json:"originalPrice,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent *int      `json:"discountPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	StockQuantity   int       `json:"stockQuantity" validate:"gte=0"`
	IsAvailable     bool      `json:"isAvailable"`
	Category        string    `json:"category" validate:"required"`
	Brand           string    `json:"brand"`
	ImageURLs       []string  `json:"imageUrls"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Category groups products on the home and category screens.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,min=1,max=100"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}
