package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSubmission is the parsed multipart order request. The validate tags
// carry the wire-level field names so a validation failure can name every
// missing field at once.
type OrderSubmission struct {
	UserID          string          `json:"userId" validate:"required"`
	CustomerName    string          `json:"customerName" validate:"required"`
	PhoneNumber     string          `json:"phoneNumber" validate:"required"`
	DeliveryAddress string          `json:"deliveryAddress" validate:"required"`
	RawLineItems    string          `json:"orderItems" validate:"required"`
	DeclaredAmount  decimal.Decimal `json:"amount"`
	RequestedStatus string          `json:"status"`

	PaymentProof  *ImageUpload `json:"-"`
	ProductImages []*ImageUpload `json:"-"`
}

// ProductRef is a product identifier as submitted by the client, which may
// arrive as a JSON string or a JSON number.
type ProductRef string

func (p *ProductRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = ProductRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = ProductRef(n.String())
	return nil
}

// RawLineItem is one entry of the JSON-encoded orderItems form field.
type RawLineItem struct {
	ProductID ProductRef      `json:"productId"`
	Name      string          `json:"productName"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineItem is the persisted form of a resolved order item.
type LineItem struct {
	ProductID uint64          `json:"productId"`
	Name      string          `json:"productName"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// LineItems serializes into the orders.line_items JSON column.
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	}
	return fmt.Errorf("unsupported line_items column type %T", src)
}

type Order struct {
	ID              uint64          `db:"id" json:"-"`
	SequenceID      uint64          `db:"sequence_id" json:"orderId"`
	UserID          string          `db:"user_id" json:"userId"`
	CustomerName    string          `db:"customer_name" json:"customerName"`
	PhoneNumber     string          `db:"phone_number" json:"phoneNumber"`
	DeliveryAddress string          `db:"delivery_address" json:"deliveryAddress"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status          string          `db:"status" json:"status"`
	PaymentProofURL string          `db:"payment_proof_url" json:"paymentProofUrl"`
	LineItems       LineItems       `db:"line_items" json:"orderItems"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// UploadFailure records a product image that could not be stored. Index is
// the position of the image in the submitted sequence.
type UploadFailure struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type SubmitOrderResult struct {
	Order         *Order          `json:"order"`
	FailedUploads []UploadFailure `json:"failedUploads,omitempty"`
}

type OrderListResponse struct {
	Items      []Order `json:"items"`
	TotalCount int64   `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
