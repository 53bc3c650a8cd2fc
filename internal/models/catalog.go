package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product created by an ingestion batch.
// Price is stored in integer currency units; fractional input prices are
// rounded at the validation boundary.
type Product struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Title        string    `json:"title" gorm:"not null"`
	Slug         string    `json:"slug" gorm:"not null;uniqueIndex:idx_products_slug"`
	Price        int64     `json:"price" gorm:"not null"`
	Manufacturer *string   `json:"manufacturer,omitempty"`
	Description  *string   `json:"description,omitempty"`
	MainImage    *string   `json:"mainImage,omitempty" gorm:"column:main_image"`
	CategoryID   string    `json:"categoryId" gorm:"not null;index"`
	InStock      bool      `json:"inStock" gorm:"not null;default:false"`
	Rating       float64   `json:"rating" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Category represents a product category (read-only for ingest lookup)
type Category struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name string    `json:"name" gorm:"not null"`
	Slug string    `json:"slug" gorm:"not null"`
}

// Order represents a customer order (read-only for the deletion guard)
type Order struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primary_key"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt time.Time   `json:"createdAt"`
}

// OrderItem links an order to a product; its product reference is what
// blocks batch deletion.
type OrderItem struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// TableName returns the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
