package order

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	orderrepo "github.com/johnshimelis/outlier-commerce/repository/order"
	productrepo "github.com/johnshimelis/outlier-commerce/repository/product"
	"github.com/johnshimelis/outlier-commerce/thirdparty/rabbitmq"
	"github.com/johnshimelis/outlier-commerce/thirdparty/s3"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/johnshimelis/outlier-commerce/utils/logger"
	"github.com/johnshimelis/outlier-commerce/utils/metrics"
	validatorx "github.com/johnshimelis/outlier-commerce/utils/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// uploadedBlob is one stored object, tracked so a later failure can delete
// everything this submission put in the blob store.
type uploadedBlob struct {
	Key string
	URL string
}

// SubmitOrder runs the order intake workflow: validate the scalar fields,
// upload the payment proof, upload the product images, then parse and
// resolve the order items and persist the order. Any failure after the
// uploads deletes every blob this submission stored.
func (s *orderAppImpl) SubmitOrder(ctx context.Context, sub *model.OrderSubmission) (*model.SubmitOrderResult, error) {
	submissionID := uuid.NewString()

	// report every missing field at once, before anything is uploaded
	if err := validatorx.ValidateStruct(sub); err != nil {
		metrics.OrderIntakeFailures.WithLabelValues("validation").Inc()
		if missing := validatorx.MissingFields(err); len(missing) > 0 {
			logger.Info("[SubmitOrder] missing fields", zap.String("submission_id", submissionID), zap.Strings("fields", missing))
			return nil, errors.SetCustomErrorWithDetail(constant.ErrMissingFields, strings.Join(missing, ", "))
		}
		return nil, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, err.Error())
	}

	if sub.PaymentProof == nil || len(sub.PaymentProof.Data) == 0 {
		metrics.OrderIntakeFailures.WithLabelValues("payment_proof").Inc()
		return nil, errors.SetCustomError(constant.ErrPaymentProofMissing)
	}

	if max := s.config.Order.MaxProductImages; len(sub.ProductImages) > max {
		metrics.OrderIntakeFailures.WithLabelValues("validation").Inc()
		return nil, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, fmt.Sprintf("at most %d product images are allowed", max))
	}

	// payment proof upload is strict: the order dies here if it fails
	proof, err := s.uploadBlob(ctx, constant.PaymentProofKeyPrefix, sub.PaymentProof)
	if err != nil {
		logger.Error("[SubmitOrder] upload payment proof", zap.String("submission_id", submissionID), zap.String("error", err.Error()))
		metrics.BlobUploads.WithLabelValues("payment_proof", "error").Inc()
		metrics.OrderIntakeFailures.WithLabelValues("payment_upload").Inc()
		return nil, errors.SetCustomError(constant.ErrUpload)
	}
	metrics.BlobUploads.WithLabelValues("payment_proof", "ok").Inc()

	// product image uploads are lenient: failures go to the ledger and the
	// order continues without those images
	slots, failures := s.uploadProductImages(ctx, submissionID, sub.ProductImages)

	uploaded := []*uploadedBlob{proof}
	for _, blob := range slots {
		if blob != nil {
			uploaded = append(uploaded, blob)
		}
	}

	rawItems, err := parseRawLineItems(sub.RawLineItems)
	if err != nil {
		logger.Info("[SubmitOrder] malformed order items", zap.String("submission_id", submissionID), zap.String("error", err.Error()))
		metrics.OrderIntakeFailures.WithLabelValues("parse").Inc()
		s.compensateUploads(ctx, submissionID, uploaded)
		return nil, errors.SetCustomErrorWithDetail(constant.ErrMalformedLineItems, err.Error())
	}

	items, err := s.resolveLineItems(ctx, submissionID, rawItems, slots)
	if err != nil {
		s.compensateUploads(ctx, submissionID, uploaded)
		return nil, err
	}

	order := s.buildOrder(sub, proof.URL, items)
	if err := s.persistOrder(ctx, submissionID, order); err != nil {
		s.compensateUploads(ctx, submissionID, uploaded)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	logger.Info("[SubmitOrder] order created",
		zap.String("submission_id", submissionID),
		zap.Uint64("sequence_id", order.SequenceID),
		zap.Int("items", len(order.LineItems)),
		zap.Int("failed_uploads", len(failures)),
	)

	if s.publisher != nil {
		msg := rabbitmq.OrderCreatedMessage{
			SequenceID:  order.SequenceID,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			ItemCount:   len(order.LineItems),
			CreatedAt:   order.CreatedAt,
		}
		if err := s.publisher.PublishOrderCreated(msg); err != nil {
			logger.Error("[SubmitOrder] publish order created", zap.String("error", err.Error()))
		}
	}

	return &model.SubmitOrderResult{Order: order, FailedUploads: failures}, nil
}

func (s *orderAppImpl) uploadBlob(ctx context.Context, prefix string, img *model.ImageUpload) (*uploadedBlob, error) {
	uctx := ctx
	if t := s.config.Storage.UploadTimeout; t > 0 {
		var cancel context.CancelFunc
		uctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	key := s3.BuildKey(prefix, img.Filename)
	url, err := s.storage.Upload(uctx, key, img.Data, img.ContentType)
	if err != nil {
		return nil, err
	}
	return &uploadedBlob{Key: key, URL: url}, nil
}

// uploadProductImages stores the images concurrently. slots[i] holds the
// blob for the image submitted at position i, nil when that upload failed;
// positions are fixed here, before any order item can be dropped.
func (s *orderAppImpl) uploadProductImages(ctx context.Context, submissionID string, images []*model.ImageUpload) ([]*uploadedBlob, []model.UploadFailure) {
	slots := make([]*uploadedBlob, len(images))
	failures := make([]model.UploadFailure, 0)
	if len(images) == 0 {
		return slots, failures
	}

	limit := s.config.Order.UploadConcurrency
	if limit <= 0 {
		limit = 1
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)

	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			blob, err := s.uploadBlob(ctx, constant.ProductImageKeyPrefix, img)
			if err != nil {
				logger.Info("[SubmitOrder] product image upload failed", zap.String("submission_id", submissionID), zap.Int("index", i), zap.String("error", err.Error()))
				metrics.BlobUploads.WithLabelValues("product_image", "error").Inc()
				mu.Lock()
				failures = append(failures, model.UploadFailure{Index: i, Filename: img.Filename, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			metrics.BlobUploads.WithLabelValues("product_image", "ok").Inc()
			slots[i] = blob
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
	return slots, failures
}

func parseRawLineItems(raw string) ([]model.RawLineItem, error) {
	var items []model.RawLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// resolveLineItems maps each submitted item to a catalog product. Items
// that match nothing are dropped; the image for position i was fixed before
// any drop, so dropping an item never shifts a later item's image.
func (s *orderAppImpl) resolveLineItems(ctx context.Context, submissionID string, rawItems []model.RawLineItem, slots []*uploadedBlob) (model.LineItems, error) {
	rctx := ctx
	if t := s.config.Order.ResolveTimeout; t > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	items := make(model.LineItems, 0, len(rawItems))
	for i, raw := range rawItems {
		summary, err := s.resolveProduct(rctx, raw)
		if err != nil {
			if stderrors.Is(err, productrepo.ErrProductNotFound) {
				logger.Info("[SubmitOrder] dropping unresolved item",
					zap.String("submission_id", submissionID),
					zap.Int("index", i),
					zap.String("product_id", string(raw.ProductID)),
					zap.String("product_name", raw.Name),
				)
				continue
			}
			logger.Error("[SubmitOrder] resolve item", zap.String("submission_id", submissionID), zap.String("error", err.Error()))
			metrics.OrderIntakeFailures.WithLabelValues("resolve").Inc()
			return nil, errors.SetCustomError(constant.ErrInternal)
		}

		item := model.LineItem{
			ProductID: summary.ID,
			Name:      summary.Name,
			Quantity:  raw.Quantity,
			UnitPrice: raw.Price,
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if !item.UnitPrice.IsPositive() {
			item.UnitPrice = summary.Price
		}
		if i < len(slots) {
			// a failed upload leaves the item without an image
			if slots[i] != nil {
				item.ImageURL = slots[i].URL
			}
		} else {
			// no image submitted for this position, use the catalog one
			item.ImageURL = summary.ImageURL
		}

		items = append(items, item)
	}

	if len(items) == 0 {
		metrics.OrderIntakeFailures.WithLabelValues("resolve").Inc()
		return nil, errors.SetCustomError(constant.ErrNoValidLineItems)
	}
	return items, nil
}

// resolveProduct tries the submitted id first and falls back to the
// display name.
func (s *orderAppImpl) resolveProduct(ctx context.Context, raw model.RawLineItem) (*model.ProductSummary, error) {
	if id, err := strconv.ParseUint(string(raw.ProductID), 10, 64); err == nil && id > 0 {
		summary, err := s.productRepo.GetSummaryByID(ctx, id)
		if err == nil {
			return summary, nil
		}
		if !stderrors.Is(err, productrepo.ErrProductNotFound) {
			return nil, err
		}
	}

	if raw.Name != "" {
		return s.productRepo.GetSummaryByName(ctx, raw.Name)
	}
	return nil, productrepo.ErrProductNotFound
}

// compensateUploads deletes every blob the submission stored. A failed
// delete is logged and handed to the cleanup queue, it never masks the
// error that triggered the compensation.
func (s *orderAppImpl) compensateUploads(ctx context.Context, submissionID string, uploaded []*uploadedBlob) {
	for _, blob := range uploaded {
		if err := s.storage.Delete(ctx, blob.Key); err != nil {
			logger.Error("[SubmitOrder] compensate delete", zap.String("submission_id", submissionID), zap.String("key", blob.Key), zap.String("error", err.Error()))
			metrics.CompensationDeletes.WithLabelValues("error").Inc()
			if s.publisher != nil {
				if perr := s.publisher.PublishBlobCleanup(rabbitmq.BlobCleanupMessage{Key: blob.Key, Attempts: 1}); perr != nil {
					logger.Error("[SubmitOrder] enqueue blob cleanup", zap.String("key", blob.Key), zap.String("error", perr.Error()))
				}
			}
			continue
		}
		metrics.CompensationDeletes.WithLabelValues("ok").Inc()
	}
}

func (s *orderAppImpl) buildOrder(sub *model.OrderSubmission, paymentProofURL string, items model.LineItems) *model.Order {
	total := sub.DeclaredAmount
	if !total.IsPositive() {
		total = decimal.Zero
		for _, item := range items {
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	status := sub.RequestedStatus
	if status == "" {
		status = constant.OrderStatusPending
	}

	now := time.Now().UTC()
	return &model.Order{
		UserID:          sub.UserID,
		CustomerName:    sub.CustomerName,
		PhoneNumber:     sub.PhoneNumber,
		DeliveryAddress: sub.DeliveryAddress,
		TotalAmount:     total,
		Status:          status,
		PaymentProofURL: paymentProofURL,
		LineItems:       items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// persistOrder allocates a sequence id and inserts the order, retrying the
// allocation when the unique index reports a collision.
func (s *orderAppImpl) persistOrder(ctx context.Context, submissionID string, order *model.Order) error {
	retries := s.config.Order.AllocationRetries
	if retries <= 0 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		seq, err := s.orderRepo.NextSequenceID(ctx)
		if err != nil {
			logger.Error("[SubmitOrder] next sequence id", zap.String("submission_id", submissionID), zap.String("error", err.Error()))
			metrics.OrderIntakeFailures.WithLabelValues("persist").Inc()
			return errors.SetCustomError(constant.ErrPersistence)
		}
		order.SequenceID = seq

		id, err := s.orderRepo.Insert(ctx, order)
		if err == nil {
			order.ID = id
			return nil
		}
		if stderrors.Is(err, orderrepo.ErrDuplicateSequence) {
			logger.Warn("[SubmitOrder] sequence id collision", zap.String("submission_id", submissionID), zap.Uint64("sequence_id", seq), zap.Int("attempt", attempt))
			continue
		}
		logger.Error("[SubmitOrder] insert order", zap.String("submission_id", submissionID), zap.String("error", err.Error()))
		metrics.OrderIntakeFailures.WithLabelValues("persist").Inc()
		return errors.SetCustomError(constant.ErrPersistence)
	}

	metrics.OrderIntakeFailures.WithLabelValues("persist").Inc()
	return errors.SetCustomError(constant.ErrAllocationConflict)
}
