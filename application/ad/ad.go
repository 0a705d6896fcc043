package ad

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	adRepo "github.com/johnshimelis/outlier-commerce/repository/ad"
	"github.com/johnshimelis/outlier-commerce/thirdparty/s3"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/johnshimelis/outlier-commerce/utils/logger"
	"github.com/johnshimelis/outlier-commerce/utils/metrics"
	validatorx "github.com/johnshimelis/outlier-commerce/utils/validator"
	"go.uber.org/zap"
)

type AdApp interface {
	ListAds(ctx context.Context, activeOnly bool) ([]model.Ad, error)
	CreateAd(ctx context.Context, req *model.CreateAdRequest) (*model.Ad, error)
	DeleteAd(ctx context.Context, id uint64) error
}

type adAppImpl struct {
	adRepo  adRepo.AdRepository
	storage s3.Storage
}

func NewAdApp(adRepo adRepo.AdRepository, storage s3.Storage) AdApp {
	return &adAppImpl{adRepo: adRepo, storage: storage}
}

func (s *adAppImpl) ListAds(ctx context.Context, activeOnly bool) ([]model.Ad, error) {
	items, err := s.adRepo.List(ctx, activeOnly)
	if err != nil {
		logger.Error("[ListAds] error adRepo.List", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	return items, nil
}

func (s *adAppImpl) CreateAd(ctx context.Context, req *model.CreateAdRequest) (*model.Ad, error) {
	if err := validatorx.ValidateStruct(req); err != nil {
		return nil, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, err.Error())
	}

	ad := &model.Ad{
		Title:       req.Title,
		Description: req.Description,
		ProductID:   req.ProductID,
		Active:      true,
	}

	if req.Image != nil && len(req.Image.Data) > 0 {
		key := s3.BuildKey(constant.AdImageKeyPrefix, req.Image.Filename)
		url, err := s.storage.Upload(ctx, key, req.Image.Data, req.Image.ContentType)
		if err != nil {
			logger.Error("[CreateAd] error storage.Upload", zap.String("error", err.Error()))
			return nil, errors.SetCustomError(constant.ErrUpload)
		}
		ad.ImageURL = url
		ad.ImageKey = key
	}

	id, err := s.adRepo.Insert(ctx, ad)
	if err != nil {
		logger.Error("[CreateAd] error adRepo.Insert", zap.String("error", err.Error()))
		if ad.ImageKey != "" {
			if derr := s.storage.Delete(ctx, ad.ImageKey); derr != nil {
				logger.Error("[CreateAd] error storage.Delete", zap.String("key", ad.ImageKey), zap.String("error", derr.Error()))
				metrics.CompensationDeletes.WithLabelValues("error").Inc()
			} else {
				metrics.CompensationDeletes.WithLabelValues("ok").Inc()
			}
		}
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	ad.ID = id
	now := time.Now().UTC()
	ad.CreatedAt = now
	ad.UpdatedAt = now
	return ad, nil
}

func (s *adAppImpl) DeleteAd(ctx context.Context, id uint64) error {
	ad, err := s.adRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, adRepo.ErrAdNotFound) {
			return errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[DeleteAd] error adRepo.GetByID", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}

	if err := s.adRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, adRepo.ErrAdNotFound) {
			return errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[DeleteAd] error adRepo.Delete", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}

	if ad.ImageKey != "" {
		if derr := s.storage.Delete(ctx, ad.ImageKey); derr != nil {
			logger.Warn("[DeleteAd] error storage.Delete", zap.String("key", ad.ImageKey), zap.String("error", derr.Error()))
		}
	}
	return nil
}
