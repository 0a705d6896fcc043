package model

import "time"

type Ad struct {
	ID          uint64    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	ImageURL    string    `db:"image_url" json:"imageUrl"`
	ImageKey    string    `db:"image_key" json:"-"`
	ProductID   *uint64   `db:"product_id" json:"productId,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateAdRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	ProductID   *uint64 `json:"productId"`

	Image *ImageUpload `json:"-"`
}
