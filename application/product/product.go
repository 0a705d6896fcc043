package product

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	productRepo "github.com/johnshimelis/outlier-commerce/repository/product"
	"github.com/johnshimelis/outlier-commerce/thirdparty/s3"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/johnshimelis/outlier-commerce/utils/logger"
	"github.com/johnshimelis/outlier-commerce/utils/metrics"
	validatorx "github.com/johnshimelis/outlier-commerce/utils/validator"
	"go.uber.org/zap"
)

type ProductApp interface {
	ListProducts(ctx context.Context, page, perPage int) (*model.ProductListResponse, error)
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint64, req *model.UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint64) error
}

type productAppImpl struct {
	productRepo productRepo.ProductRepository
	storage     s3.Storage
}

func NewProductApp(productRepo productRepo.ProductRepository, storage s3.Storage) ProductApp {
	return &productAppImpl{productRepo: productRepo, storage: storage}
}

func (s *productAppImpl) ListProducts(ctx context.Context, page, perPage int) (*model.ProductListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	items, total, err := s.productRepo.List(ctx, page, perPage)
	if err != nil {
		logger.Error("[ListProducts] error productRepo.List", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	return &model.ProductListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
	}, nil
}

func (s *productAppImpl) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	result, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, productRepo.ErrProductNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[GetProduct] error productRepo.GetByID", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	return result, nil
}

func (s *productAppImpl) CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if err := validatorx.ValidateStruct(req); err != nil {
		return nil, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, err.Error())
	}

	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}

	if req.Image != nil && len(req.Image.Data) > 0 {
		key := s3.BuildKey(constant.ProductImageKeyPrefix, req.Image.Filename)
		url, err := s.storage.Upload(ctx, key, req.Image.Data, req.Image.ContentType)
		if err != nil {
			logger.Error("[CreateProduct] error storage.Upload", zap.String("error", err.Error()))
			metrics.BlobUploads.WithLabelValues("product_image", "error").Inc()
			return nil, errors.SetCustomError(constant.ErrUpload)
		}
		metrics.BlobUploads.WithLabelValues("product_image", "ok").Inc()
		product.ImageURL = url
		product.ImageKey = key
	}

	id, err := s.productRepo.Insert(ctx, product)
	if err != nil {
		logger.Error("[CreateProduct] error productRepo.Insert", zap.String("error", err.Error()))
		// the uploaded image has no row referencing it anymore
		if product.ImageKey != "" {
			if derr := s.storage.Delete(ctx, product.ImageKey); derr != nil {
				logger.Error("[CreateProduct] error storage.Delete", zap.String("key", product.ImageKey), zap.String("error", derr.Error()))
				metrics.CompensationDeletes.WithLabelValues("error").Inc()
			} else {
				metrics.CompensationDeletes.WithLabelValues("ok").Inc()
			}
		}
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	product.ID = id
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (s *productAppImpl) UpdateProduct(ctx context.Context, id uint64, req *model.UpdateProductRequest) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, productRepo.ErrProductNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[UpdateProduct] error productRepo.GetByID", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price.IsPositive() {
		product.Price = req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}

	previousKey := product.ImageKey
	if req.Image != nil && len(req.Image.Data) > 0 {
		key := s3.BuildKey(constant.ProductImageKeyPrefix, req.Image.Filename)
		url, err := s.storage.Upload(ctx, key, req.Image.Data, req.Image.ContentType)
		if err != nil {
			logger.Error("[UpdateProduct] error storage.Upload", zap.String("error", err.Error()))
			metrics.BlobUploads.WithLabelValues("product_image", "error").Inc()
			return nil, errors.SetCustomError(constant.ErrUpload)
		}
		metrics.BlobUploads.WithLabelValues("product_image", "ok").Inc()
		product.ImageURL = url
		product.ImageKey = key
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		// the row still points at the old image, drop the replacement
		if product.ImageKey != previousKey {
			if derr := s.storage.Delete(ctx, product.ImageKey); derr != nil {
				logger.Error("[UpdateProduct] error storage.Delete", zap.String("key", product.ImageKey), zap.String("error", derr.Error()))
				metrics.CompensationDeletes.WithLabelValues("error").Inc()
			} else {
				metrics.CompensationDeletes.WithLabelValues("ok").Inc()
			}
		}
		if stderrors.Is(err, productRepo.ErrProductNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[UpdateProduct] error productRepo.Update", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	// the old image is unreferenced once the row points at the new one
	if previousKey != "" && previousKey != product.ImageKey {
		if derr := s.storage.Delete(ctx, previousKey); derr != nil {
			logger.Warn("[UpdateProduct] error storage.Delete", zap.String("key", previousKey), zap.String("error", derr.Error()))
		}
	}

	product.UpdatedAt = time.Now().UTC()
	return product, nil
}

func (s *productAppImpl) DeleteProduct(ctx context.Context, id uint64) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, productRepo.ErrProductNotFound) {
			return errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[DeleteProduct] error productRepo.GetByID", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, productRepo.ErrProductNotFound) {
			return errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[DeleteProduct] error productRepo.Delete", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}

	if product.ImageKey != "" {
		if derr := s.storage.Delete(ctx, product.ImageKey); derr != nil {
			logger.Warn("[DeleteProduct] error storage.Delete", zap.String("key", product.ImageKey), zap.String("error", derr.Error()))
		}
	}
	return nil
}
