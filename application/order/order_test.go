package order_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	apporder "github.com/johnshimelis/outlier-commerce/application/order"
	"github.com/johnshimelis/outlier-commerce/cmd/config"
	"github.com/johnshimelis/outlier-commerce/constant"
	ordermocks "github.com/johnshimelis/outlier-commerce/mocks/repository/order"
	productmocks "github.com/johnshimelis/outlier-commerce/mocks/repository/product"
	txmocks "github.com/johnshimelis/outlier-commerce/mocks/repository/tx"
	s3mocks "github.com/johnshimelis/outlier-commerce/mocks/thirdparty/s3"
	"github.com/johnshimelis/outlier-commerce/model"
	orderrepo "github.com/johnshimelis/outlier-commerce/repository/order"
	productrepo "github.com/johnshimelis/outlier-commerce/repository/product"
	cerr "github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Note: SubmitOrder and UpdateOrderStatus check if publisher is nil before
// publishing, so tests can pass a nil publisher without panicking.

func proofUpload() *model.ImageUpload {
	return &model.ImageUpload{Filename: "proof.jpg", ContentType: "image/jpeg", Data: []byte("proof-bytes")}
}

func imageUploads(n int) []*model.ImageUpload {
	images := make([]*model.ImageUpload, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("product-%d.jpg", i+1)
		images = append(images, &model.ImageUpload{Filename: name, ContentType: "image/jpeg", Data: []byte(name)})
	}
	return images
}

func validSubmission(rawItems string, images ...*model.ImageUpload) *model.OrderSubmission {
	return &model.OrderSubmission{
		UserID:          "user-7",
		CustomerName:    "Hana Tesfaye",
		PhoneNumber:     "+251911000000",
		DeliveryAddress: "Bole, Addis Ababa",
		RawLineItems:    rawItems,
		PaymentProof:    proofUpload(),
		ProductImages:   images,
	}
}

func keyWithPrefix(prefix string) interface{} {
	return mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

func TestOrderApp_SubmitOrder(t *testing.T) {
	type fields struct {
		config      *config.Config
		txRepo      *txmocks.TxRepository
		orderRepo   *ordermocks.OrderRepository
		productRepo *productmocks.ProductRepository
		storage     *s3mocks.Storage
	}
	type args struct {
		ctx context.Context
		sub *model.OrderSubmission
	}
	tests := []struct {
		name      string
		fields    fields
		args      args
		mockCall  func(f fields)
		wantErr   bool
		errCode   constant.ErrorType
		errDetail string
		check     func(t *testing.T, f fields, got *model.SubmitOrderResult)
	}{
		{
			name: "success: submitted price wins, catalog price fills the gap",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":2,"price":500},{"productId":2,"quantity":1}]`, imageUploads(2)...),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-1.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-1.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-2.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-2.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
					ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450), ImageURL: "https://cdn.example.com/products/catalog-1.jpg",
				}, nil).Once()
				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(2)).Return(&model.ProductSummary{
					ID: 2, Name: "Desk Lamp", Price: decimal.NewFromInt(300), ImageURL: "https://cdn.example.com/products/catalog-2.jpg",
				}, nil).Once()

				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(41), nil).Once()
				f.orderRepo.On("Insert", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
					return o.SequenceID == 41 && o.Status == constant.OrderStatusPending && len(o.LineItems) == 2
				})).Return(uint64(7), nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				if got.Order.SequenceID != 41 {
					t.Fatalf("SequenceID = %d, want 41", got.Order.SequenceID)
				}
				if len(got.FailedUploads) != 0 {
					t.Fatalf("FailedUploads = %v, want none", got.FailedUploads)
				}
				if !got.Order.TotalAmount.Equal(decimal.NewFromInt(1300)) {
					t.Fatalf("TotalAmount = %s, want 1300", got.Order.TotalAmount)
				}
				items := got.Order.LineItems
				if !items[0].UnitPrice.Equal(decimal.NewFromInt(500)) {
					t.Fatalf("item 0 UnitPrice = %s, want the submitted 500", items[0].UnitPrice)
				}
				if !items[1].UnitPrice.Equal(decimal.NewFromInt(300)) {
					t.Fatalf("item 1 UnitPrice = %s, want the catalog 300", items[1].UnitPrice)
				}
				if items[0].ImageURL != "https://cdn.example.com/products/product-1.jpg" {
					t.Fatalf("item 0 ImageURL = %q", items[0].ImageURL)
				}
				if items[1].ImageURL != "https://cdn.example.com/products/product-2.jpg" {
					t.Fatalf("item 1 ImageURL = %q", items[1].ImageURL)
				}
				if got.Order.PaymentProofURL != "https://cdn.example.com/payments/proof.jpg" {
					t.Fatalf("PaymentProofURL = %q", got.Order.PaymentProofURL)
				}
			},
		},
		{
			name: "success: failed product image upload is reported and the order continues",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1},{"productId":"2","quantity":1}]`, imageUploads(2)...),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-1.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-1.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-2.jpg"), "image/jpeg").
					Return("", errors.New("write timeout")).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
					ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450),
				}, nil).Once()
				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(2)).Return(&model.ProductSummary{
					ID: 2, Name: "Desk Lamp", Price: decimal.NewFromInt(300), ImageURL: "https://cdn.example.com/products/catalog-2.jpg",
				}, nil).Once()

				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(42), nil).Once()
				f.orderRepo.On("Insert", mock.Anything, mock.Anything).Return(uint64(8), nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				if len(got.FailedUploads) != 1 {
					t.Fatalf("FailedUploads = %v, want one entry", got.FailedUploads)
				}
				failure := got.FailedUploads[0]
				if failure.Index != 1 || failure.Filename != "product-2.jpg" || failure.Reason != "write timeout" {
					t.Fatalf("failure = %+v", failure)
				}
				items := got.Order.LineItems
				if items[0].ImageURL != "https://cdn.example.com/products/product-1.jpg" {
					t.Fatalf("item 0 ImageURL = %q", items[0].ImageURL)
				}
				// the upload for position 1 failed, so the item carries no
				// image rather than the catalog one
				if items[1].ImageURL != "" {
					t.Fatalf("item 1 ImageURL = %q, want empty", items[1].ImageURL)
				}
				f.storage.AssertNumberOfCalls(t, "Delete", 0)
			},
		},
		{
			name: "success: dropping an unresolved item never shifts a later item's image",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1},{"productId":"42","quantity":1},{"productId":"3","quantity":1}]`, imageUploads(3)...),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-1.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-1.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-2.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-2.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-3.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-3.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
					ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450),
				}, nil).Once()
				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(42)).Return(nil, productrepo.ErrProductNotFound).Once()
				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(3)).Return(&model.ProductSummary{
					ID: 3, Name: "Walnut Desk", Price: decimal.NewFromInt(300),
				}, nil).Once()

				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(43), nil).Once()
				f.orderRepo.On("Insert", mock.Anything, mock.Anything).Return(uint64(9), nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				items := got.Order.LineItems
				if len(items) != 2 {
					t.Fatalf("LineItems = %d, want 2 after the drop", len(items))
				}
				if items[0].Name != "Mesh Office Chair" || items[0].ImageURL != "https://cdn.example.com/products/product-1.jpg" {
					t.Fatalf("item 0 = %+v", items[0])
				}
				// the third submitted image stays with the third submitted
				// item even though the second item was dropped
				if items[1].Name != "Walnut Desk" || items[1].ImageURL != "https://cdn.example.com/products/product-3.jpg" {
					t.Fatalf("item 1 = %+v", items[1])
				}
			},
		},
		{
			name: "success: sequence collision retries with a fresh id",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: &model.OrderSubmission{
					UserID:          "user-7",
					CustomerName:    "Hana Tesfaye",
					PhoneNumber:     "+251911000000",
					DeliveryAddress: "Bole, Addis Ababa",
					RawLineItems:    `[{"productId":"1","quantity":0}]`,
					DeclaredAmount:  decimal.NewFromInt(999),
					PaymentProof:    proofUpload(),
				},
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
					ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450),
				}, nil).Once()

				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(41), nil).Once()
				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(42), nil).Once()
				f.orderRepo.On("Insert", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
					return o.SequenceID == 41
				})).Return(uint64(0), orderrepo.ErrDuplicateSequence).Once()
				f.orderRepo.On("Insert", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
					return o.SequenceID == 42
				})).Return(uint64(9), nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				if got.Order.SequenceID != 42 {
					t.Fatalf("SequenceID = %d, want the retried 42", got.Order.SequenceID)
				}
				if !got.Order.TotalAmount.Equal(decimal.NewFromInt(999)) {
					t.Fatalf("TotalAmount = %s, want the declared 999", got.Order.TotalAmount)
				}
				if got.Order.LineItems[0].Quantity != 1 {
					t.Fatalf("Quantity = %d, want 1", got.Order.LineItems[0].Quantity)
				}
				f.storage.AssertNumberOfCalls(t, "Delete", 0)
			},
		},
		{
			name: "error: every missing field is reported before anything uploads",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: &model.OrderSubmission{},
			},
			mockCall:  nil,
			wantErr:   true,
			errCode:   constant.ErrMissingFields,
			errDetail: "userId, customerName, phoneNumber, deliveryAddress, orderItems",
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Upload", 0)
			},
		},
		{
			name: "error: missing payment proof rejects before any image upload",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: &model.OrderSubmission{
					UserID:          "user-7",
					CustomerName:    "Hana Tesfaye",
					PhoneNumber:     "+251911000000",
					DeliveryAddress: "Bole, Addis Ababa",
					RawLineItems:    `[{"productId":"1","quantity":1}]`,
					ProductImages:   imageUploads(2),
				},
			},
			mockCall: nil,
			wantErr:  true,
			errCode:  constant.ErrPaymentProofMissing,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Upload", 0)
			},
		},
		{
			name: "error: too many product images",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1}]`, imageUploads(11)...),
			},
			mockCall:  nil,
			wantErr:   true,
			errCode:   constant.ErrInvalidRequest,
			errDetail: "at most 10 product images are allowed",
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Upload", 0)
			},
		},
		{
			name: "error: payment proof upload failure stops the order",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1}]`, imageUploads(2)...),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("", errors.New("s3 unavailable")).Once()
			},
			wantErr: true,
			errCode: constant.ErrUpload,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				// product images are never attempted and there is nothing to
				// compensate
				f.storage.AssertNumberOfCalls(t, "Upload", 1)
				f.storage.AssertNumberOfCalls(t, "Delete", 0)
			},
		},
		{
			name: "error: malformed order items payload deletes every stored blob",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`not json`, imageUploads(2)...),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-1.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-1.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-2.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-2.jpg", nil).Once()

				f.storage.On("Delete", mock.Anything, mock.Anything).Return(nil).Times(3)
			},
			wantErr: true,
			errCode: constant.ErrMalformedLineItems,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Delete", 3)
			},
		},
		{
			name: "error: no resolvable items deletes every stored blob",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"999","quantity":1},{"productName":"Ghost Chair","quantity":1}]`, imageUploads(1)...),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.ProductImageKeyPrefix), []byte("product-1.jpg"), "image/jpeg").
					Return("https://cdn.example.com/products/product-1.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(999)).Return(nil, productrepo.ErrProductNotFound).Once()
				f.productRepo.On("GetSummaryByName", mock.Anything, "Ghost Chair").Return(nil, productrepo.ErrProductNotFound).Once()

				f.storage.On("Delete", mock.Anything, mock.Anything).Return(nil).Times(2)
			},
			wantErr: true,
			errCode: constant.ErrNoValidLineItems,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Delete", 2)
			},
		},
		{
			name: "error: catalog lookup failure",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1}]`),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(nil, errors.New("db timeout")).Once()

				f.storage.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Delete", 1)
			},
		},
		{
			name: "error: insert failure compensates the stored blobs",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1}]`),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
					ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450),
				}, nil).Once()

				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(41), nil).Once()
				f.orderRepo.On("Insert", mock.Anything, mock.Anything).Return(uint64(0), errors.New("connection reset")).Once()

				f.storage.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrPersistence,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.storage.AssertNumberOfCalls(t, "Delete", 1)
			},
		},
		{
			name: "error: allocation conflict after exhausted retries",
			fields: fields{
				config: &config.Config{
					Order: config.OrderConfig{
						MaxProductImages:  10,
						UploadConcurrency: 2,
						AllocationRetries: 3,
					},
				},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx: context.Background(),
				sub: validSubmission(`[{"productId":"1","quantity":1}]`),
			},
			mockCall: func(f fields) {
				f.storage.On("Upload", mock.Anything, keyWithPrefix(constant.PaymentProofKeyPrefix), []byte("proof-bytes"), "image/jpeg").
					Return("https://cdn.example.com/payments/proof.jpg", nil).Once()

				f.productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
					ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450),
				}, nil).Once()

				f.orderRepo.On("NextSequenceID", mock.Anything).Return(uint64(50), nil).Times(3)
				f.orderRepo.On("Insert", mock.Anything, mock.Anything).Return(uint64(0), orderrepo.ErrDuplicateSequence).Times(3)

				f.storage.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrAllocationConflict,
			check: func(t *testing.T, f fields, got *model.SubmitOrderResult) {
				f.orderRepo.AssertNumberOfCalls(t, "Insert", 3)
				f.storage.AssertNumberOfCalls(t, "Delete", 1)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if tt.mockCall != nil {
				ttFields := tt.fields
				tt.mockCall(ttFields)
			}
			app := apporder.NewOrderApp(tt.fields.config, tt.fields.txRepo, tt.fields.orderRepo, tt.fields.productRepo, tt.fields.storage, nil)

			got, err := app.SubmitOrder(tt.args.ctx, tt.args.sub)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SubmitOrder() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var ce cerr.CustomError
				if !errors.As(err, &ce) {
					t.Fatalf("error type = %T, want CustomError", err)
				}
				if ce.ErrorCode() != constant.ErrorTypeCode[tt.errCode] {
					t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[tt.errCode])
				}
				if tt.errDetail != "" && ce.Detail() != tt.errDetail {
					t.Fatalf("error detail = %q, want %q", ce.Detail(), tt.errDetail)
				}
				if tt.check != nil {
					tt.check(t, tt.fields, got)
				}
				return
			}

			if tt.check != nil {
				tt.check(t, tt.fields, got)
			}
		})
	}
}

func TestOrderApp_SubmitOrder_ConcurrentSequenceIDs(t *testing.T) {
	txRepo := txmocks.NewTxRepository(t)
	orderRepo := ordermocks.NewOrderRepository(t)
	productRepo := productmocks.NewProductRepository(t)
	storage := s3mocks.NewStorage(t)

	cfg := &config.Config{
		Order: config.OrderConfig{
			MaxProductImages:  10,
			UploadConcurrency: 2,
			AllocationRetries: 3,
		},
	}

	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/payments/proof.jpg", nil)
	productRepo.On("GetSummaryByID", mock.Anything, uint64(1)).Return(&model.ProductSummary{
		ID: 1, Name: "Mesh Office Chair", Price: decimal.NewFromInt(450),
	}, nil)

	var next atomic.Uint64
	next.Store(100)
	orderRepo.On("NextSequenceID", mock.Anything).Return(func(ctx context.Context) (uint64, error) {
		return next.Add(1), nil
	})
	var insertID atomic.Uint64
	orderRepo.On("Insert", mock.Anything, mock.Anything).Return(func(ctx context.Context, o *model.Order) (uint64, error) {
		return insertID.Add(1), nil
	})

	app := apporder.NewOrderApp(cfg, txRepo, orderRepo, productRepo, storage, nil)

	const submissions = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := app.SubmitOrder(context.Background(), validSubmission(`[{"productId":"1","quantity":1}]`))
			if err != nil {
				t.Errorf("SubmitOrder() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[got.Order.SequenceID] {
				t.Errorf("sequence id %d allocated twice", got.Order.SequenceID)
			}
			seen[got.Order.SequenceID] = true
		}()
	}
	wg.Wait()

	if len(seen) != submissions {
		t.Fatalf("distinct sequence ids = %d, want %d", len(seen), submissions)
	}
}

func TestOrderApp_UpdateOrderStatus(t *testing.T) {
	type fields struct {
		config      *config.Config
		txRepo      *txmocks.TxRepository
		orderRepo   *ordermocks.OrderRepository
		productRepo *productmocks.ProductRepository
		storage     *s3mocks.Storage
	}
	type args struct {
		ctx        context.Context
		sequenceID uint64
		status     string
	}
	tests := []struct {
		name     string
		fields   fields
		args     args
		mockCall func(f fields)
		wantErr  bool
		errCode  constant.ErrorType
		check    func(t *testing.T, f fields, got *model.Order)
	}{
		{
			name: "success: first transition into Delivered adjusts stock per item",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 5,
				status:     constant.OrderStatusDelivered,
			},
			mockCall: func(f fields) {
				tx := &sqlx.Tx{}
				f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
				f.txRepo.On("CommitTx", tx).Return(nil).Once()

				f.orderRepo.On("GetBySequenceIDTx", mock.Anything, tx, uint64(5)).Return(&model.Order{
					ID:         2,
					SequenceID: 5,
					UserID:     "user-7",
					Status:     constant.OrderStatusPending,
					LineItems: model.LineItems{
						{ProductID: 1, Name: "Mesh Office Chair", Quantity: 2, UnitPrice: decimal.NewFromInt(450)},
						{ProductID: 3, Name: "Walnut Desk", Quantity: 1, UnitPrice: decimal.NewFromInt(300)},
					},
				}, nil).Once()

				f.productRepo.On("ApplyDeliveryAdjustmentTx", mock.Anything, tx, uint64(1), 2).Return(nil).Once()
				f.productRepo.On("ApplyDeliveryAdjustmentTx", mock.Anything, tx, uint64(3), 1).Return(nil).Once()

				f.orderRepo.On("UpdateStatusTx", mock.Anything, tx, uint64(5), constant.OrderStatusDelivered).Return(nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.Order) {
				if got.Status != constant.OrderStatusDelivered {
					t.Fatalf("Status = %q, want %q", got.Status, constant.OrderStatusDelivered)
				}
				f.productRepo.AssertNumberOfCalls(t, "ApplyDeliveryAdjustmentTx", 2)
			},
		},
		{
			name: "success: repeated Delivered update leaves stock alone",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 5,
				status:     constant.OrderStatusDelivered,
			},
			mockCall: func(f fields) {
				tx := &sqlx.Tx{}
				f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
				f.txRepo.On("CommitTx", tx).Return(nil).Once()

				f.orderRepo.On("GetBySequenceIDTx", mock.Anything, tx, uint64(5)).Return(&model.Order{
					ID:         2,
					SequenceID: 5,
					Status:     constant.OrderStatusDelivered,
					LineItems: model.LineItems{
						{ProductID: 1, Name: "Mesh Office Chair", Quantity: 2, UnitPrice: decimal.NewFromInt(450)},
					},
				}, nil).Once()

				f.orderRepo.On("UpdateStatusTx", mock.Anything, tx, uint64(5), constant.OrderStatusDelivered).Return(nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.Order) {
				f.productRepo.AssertNumberOfCalls(t, "ApplyDeliveryAdjustmentTx", 0)
			},
		},
		{
			name: "success: leaving Delivered does not reverse the adjustment",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 5,
				status:     constant.OrderStatusCancelled,
			},
			mockCall: func(f fields) {
				tx := &sqlx.Tx{}
				f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
				f.txRepo.On("CommitTx", tx).Return(nil).Once()

				f.orderRepo.On("GetBySequenceIDTx", mock.Anything, tx, uint64(5)).Return(&model.Order{
					ID:         2,
					SequenceID: 5,
					Status:     constant.OrderStatusDelivered,
					LineItems: model.LineItems{
						{ProductID: 1, Name: "Mesh Office Chair", Quantity: 2, UnitPrice: decimal.NewFromInt(450)},
					},
				}, nil).Once()

				f.orderRepo.On("UpdateStatusTx", mock.Anything, tx, uint64(5), constant.OrderStatusCancelled).Return(nil).Once()
			},
			wantErr: false,
			check: func(t *testing.T, f fields, got *model.Order) {
				if got.Status != constant.OrderStatusCancelled {
					t.Fatalf("Status = %q, want %q", got.Status, constant.OrderStatusCancelled)
				}
				f.productRepo.AssertNumberOfCalls(t, "ApplyDeliveryAdjustmentTx", 0)
			},
		},
		{
			name: "error: empty status",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 5,
				status:     "",
			},
			mockCall: nil,
			wantErr:  true,
			errCode:  constant.ErrInvalidRequest,
		},
		{
			name: "error: order not found",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 999,
				status:     constant.OrderStatusDelivered,
			},
			mockCall: func(f fields) {
				tx := &sqlx.Tx{}
				f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
				f.txRepo.On("RollbackTx", tx).Return(nil).Once()

				f.orderRepo.On("GetBySequenceIDTx", mock.Anything, tx, uint64(999)).Return(nil, orderrepo.ErrNotFound).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
		{
			name: "error: BeginTx returns error",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 5,
				status:     constant.OrderStatusDelivered,
			},
			mockCall: func(f fields) {
				f.txRepo.On("BeginTx", mock.Anything).Return(nil, errors.New("tx error")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
		{
			name: "error: delivery adjustment failure rolls the transaction back",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 5,
				status:     constant.OrderStatusDelivered,
			},
			mockCall: func(f fields) {
				tx := &sqlx.Tx{}
				f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
				f.txRepo.On("RollbackTx", tx).Return(nil).Once()

				f.orderRepo.On("GetBySequenceIDTx", mock.Anything, tx, uint64(5)).Return(&model.Order{
					ID:         2,
					SequenceID: 5,
					Status:     constant.OrderStatusPending,
					LineItems: model.LineItems{
						{ProductID: 1, Name: "Mesh Office Chair", Quantity: 2, UnitPrice: decimal.NewFromInt(450)},
					},
				}, nil).Once()

				f.productRepo.On("ApplyDeliveryAdjustmentTx", mock.Anything, tx, uint64(1), 2).Return(errors.New("lock wait timeout")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
			check: func(t *testing.T, f fields, got *model.Order) {
				f.orderRepo.AssertNumberOfCalls(t, "UpdateStatusTx", 0)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if tt.mockCall != nil {
				ttFields := tt.fields
				tt.mockCall(ttFields)
			}
			app := apporder.NewOrderApp(tt.fields.config, tt.fields.txRepo, tt.fields.orderRepo, tt.fields.productRepo, tt.fields.storage, nil)

			got, err := app.UpdateOrderStatus(tt.args.ctx, tt.args.sequenceID, tt.args.status)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateOrderStatus() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var ce cerr.CustomError
				if !errors.As(err, &ce) {
					t.Fatalf("error type = %T, want CustomError", err)
				}
				if ce.ErrorCode() != constant.ErrorTypeCode[tt.errCode] {
					t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[tt.errCode])
				}
				if tt.check != nil {
					tt.check(t, tt.fields, got)
				}
				return
			}

			if tt.check != nil {
				tt.check(t, tt.fields, got)
			}
		})
	}
}

func TestOrderApp_GetOrder(t *testing.T) {
	type fields struct {
		config      *config.Config
		txRepo      *txmocks.TxRepository
		orderRepo   *ordermocks.OrderRepository
		productRepo *productmocks.ProductRepository
		storage     *s3mocks.Storage
	}
	type args struct {
		ctx        context.Context
		sequenceID uint64
	}
	tests := []struct {
		name     string
		fields   fields
		args     args
		mockCall func(f fields)
		want     uint64
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: get order by sequence id",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 41,
			},
			mockCall: func(f fields) {
				f.orderRepo.On("GetBySequenceID", mock.Anything, uint64(41)).Return(&model.Order{
					ID:         7,
					SequenceID: 41,
					UserID:     "user-7",
					Status:     constant.OrderStatusPending,
				}, nil).Once()
			},
			want:    41,
			wantErr: false,
		},
		{
			name: "error: order not found",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 999,
			},
			mockCall: func(f fields) {
				f.orderRepo.On("GetBySequenceID", mock.Anything, uint64(999)).Return(nil, orderrepo.ErrNotFound).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
		{
			name: "error: repository failure",
			fields: fields{
				config:      &config.Config{},
				txRepo:      txmocks.NewTxRepository(t),
				orderRepo:   ordermocks.NewOrderRepository(t),
				productRepo: productmocks.NewProductRepository(t),
				storage:     s3mocks.NewStorage(t),
			},
			args: args{
				ctx:        context.Background(),
				sequenceID: 41,
			},
			mockCall: func(f fields) {
				f.orderRepo.On("GetBySequenceID", mock.Anything, uint64(41)).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if tt.mockCall != nil {
				ttFields := tt.fields
				tt.mockCall(ttFields)
			}
			app := apporder.NewOrderApp(tt.fields.config, tt.fields.txRepo, tt.fields.orderRepo, tt.fields.productRepo, tt.fields.storage, nil)

			got, err := app.GetOrder(tt.args.ctx, tt.args.sequenceID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetOrder() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var ce cerr.CustomError
				if !errors.As(err, &ce) {
					t.Fatalf("error type = %T, want CustomError", err)
				}
				if ce.ErrorCode() != constant.ErrorTypeCode[tt.errCode] {
					t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[tt.errCode])
				}
				return
			}

			if got.SequenceID != tt.want {
				t.Fatalf("GetOrder() SequenceID = %v, want %v", got.SequenceID, tt.want)
			}
		})
	}
}
