package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint64          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    string          `db:"image_url" json:"imageUrl"`
	ImageKey    string          `db:"image_key" json:"-"`
	Stock       int64           `db:"stock" json:"stock"`
	Sold        int64           `db:"sold" json:"sold"`
	CategoryID  *uint64         `db:"category_id" json:"categoryId,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// ProductSummary is the catalog view consulted during order intake.
type ProductSummary struct {
	ID       uint64          `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	ImageURL string          `db:"image_url" json:"imageUrl"`
	Stock    int64           `db:"stock" json:"stock"`
	Sold     int64           `db:"sold" json:"sold"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	CategoryID  *uint64         `json:"categoryId"`

	Image *ImageUpload `json:"-"`
}

// UpdateProductRequest carries replacement values; zero fields keep the
// stored value.
type UpdateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int64          `json:"stock"`
	CategoryID  *uint64         `json:"categoryId"`

	Image *ImageUpload `json:"-"`
}

type ProductListResponse struct {
	Items      []Product `json:"items"`
	TotalCount int64     `json:"totalCount"`
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
}
