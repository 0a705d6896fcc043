package order

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/johnshimelis/outlier-commerce/cmd/config"
	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	orderrepo "github.com/johnshimelis/outlier-commerce/repository/order"
	productrepo "github.com/johnshimelis/outlier-commerce/repository/product"
	txrepo "github.com/johnshimelis/outlier-commerce/repository/tx"
	"github.com/johnshimelis/outlier-commerce/thirdparty/rabbitmq"
	"github.com/johnshimelis/outlier-commerce/thirdparty/s3"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/johnshimelis/outlier-commerce/utils/logger"
	"go.uber.org/zap"
)

type OrderApp interface {
	SubmitOrder(ctx context.Context, sub *model.OrderSubmission) (*model.SubmitOrderResult, error)
	GetOrder(ctx context.Context, sequenceID uint64) (*model.Order, error)
	ListOrders(ctx context.Context, page, perPage int) (*model.OrderListResponse, error)
	ListUserOrders(ctx context.Context, userID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, sequenceID uint64, status string) (*model.Order, error)
	DeleteOrder(ctx context.Context, sequenceID uint64) error
	DeleteAllOrders(ctx context.Context) error
}

type orderAppImpl struct {
	config      *config.Config
	txRepo      txrepo.TxRepository
	orderRepo   orderrepo.OrderRepository
	productRepo productrepo.ProductRepository
	storage     s3.Storage
	publisher   *rabbitmq.Publisher
}

func NewOrderApp(config *config.Config, txRepo txrepo.TxRepository, orderRepo orderrepo.OrderRepository, productRepo productrepo.ProductRepository, storage s3.Storage, publisher *rabbitmq.Publisher) OrderApp {
	return &orderAppImpl{config: config, txRepo: txRepo, orderRepo: orderRepo, productRepo: productRepo, storage: storage, publisher: publisher}
}

func (s *orderAppImpl) GetOrder(ctx context.Context, sequenceID uint64) (*model.Order, error) {
	order, err := s.orderRepo.GetBySequenceID(ctx, sequenceID)
	if err != nil {
		if stderrors.Is(err, orderrepo.ErrNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[GetOrder] get order", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	return order, nil
}

func (s *orderAppImpl) ListOrders(ctx context.Context, page, perPage int) (*model.OrderListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	items, total, err := s.orderRepo.List(ctx, page, perPage)
	if err != nil {
		logger.Error("[ListOrders] list orders", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	return &model.OrderListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
	}, nil
}

func (s *orderAppImpl) ListUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, errors.SetCustomError(constant.ErrInvalidRequest)
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("[ListUserOrders] list orders", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	return orders, nil
}

func (s *orderAppImpl) UpdateOrderStatus(ctx context.Context, sequenceID uint64, status string) (*model.Order, error) {
	if status == "" {
		return nil, errors.SetCustomError(constant.ErrInvalidRequest)
	}

	tx, err := s.txRepo.BeginTx(ctx)
	if err != nil {
		logger.Error("[UpdateOrderStatus] begin tx", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	committed := false
	defer func() {
		if !committed {
			_ = s.txRepo.RollbackTx(tx)
		}
	}()

	// the row stays locked until commit
	order, err := s.orderRepo.GetBySequenceIDTx(ctx, tx, sequenceID)
	if err != nil {
		if stderrors.Is(err, orderrepo.ErrNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[UpdateOrderStatus] get order", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	previous := order.Status

	// stock moves into sold only on the edge into Delivered, never on a
	// repeated Delivered update
	if status == constant.OrderStatusDelivered && previous != constant.OrderStatusDelivered {
		for _, item := range order.LineItems {
			if err := s.productRepo.ApplyDeliveryAdjustmentTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				logger.Error("[UpdateOrderStatus] delivery adjustment", zap.Uint64("product_id", item.ProductID), zap.String("error", err.Error()))
				return nil, errors.SetCustomError(constant.ErrInternal)
			}
		}
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, sequenceID, status); err != nil {
		logger.Error("[UpdateOrderStatus] update status", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	if err := s.txRepo.CommitTx(tx); err != nil {
		logger.Error("[UpdateOrderStatus] commit tx", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	committed = true

	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	if s.publisher != nil {
		msg := rabbitmq.OrderStatusChangedMessage{
			SequenceID:     sequenceID,
			PreviousStatus: previous,
			NewStatus:      status,
			ChangedAt:      order.UpdatedAt,
		}
		if err := s.publisher.PublishOrderStatusChanged(msg); err != nil {
			logger.Error("[UpdateOrderStatus] publish status changed", zap.String("error", err.Error()))
		}
	}

	return order, nil
}

func (s *orderAppImpl) DeleteOrder(ctx context.Context, sequenceID uint64) error {
	if err := s.orderRepo.DeleteBySequenceID(ctx, sequenceID); err != nil {
		if stderrors.Is(err, orderrepo.ErrNotFound) {
			return errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[DeleteOrder] delete order", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}
	return nil
}

// DeleteAllOrders clears the orders table. The sequence counter keeps its
// value so later orders never reuse an id.
func (s *orderAppImpl) DeleteAllOrders(ctx context.Context) error {
	if err := s.orderRepo.DeleteAll(ctx); err != nil {
		logger.Error("[DeleteAllOrders] delete orders", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}
	return nil
}
