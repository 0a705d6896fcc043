package category

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	categoryRepo "github.com/johnshimelis/outlier-commerce/repository/category"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/johnshimelis/outlier-commerce/utils/logger"
	validatorx "github.com/johnshimelis/outlier-commerce/utils/validator"
	"go.uber.org/zap"
)

type CategoryApp interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uint64) (*model.Category, error)
	CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uint64, req *model.UpdateCategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uint64) error
}

type categoryAppImpl struct {
	categoryRepo categoryRepo.CategoryRepository
}

func NewCategoryApp(categoryRepo categoryRepo.CategoryRepository) CategoryApp {
	return &categoryAppImpl{categoryRepo: categoryRepo}
}

func (s *categoryAppImpl) ListCategories(ctx context.Context) ([]model.Category, error) {
	items, err := s.categoryRepo.List(ctx)
	if err != nil {
		logger.Error("[ListCategories] error categoryRepo.List", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	return items, nil
}

func (s *categoryAppImpl) GetCategory(ctx context.Context, id uint64) (*model.Category, error) {
	result, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, categoryRepo.ErrCategoryNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[GetCategory] error categoryRepo.GetByID", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	return result, nil
}

func (s *categoryAppImpl) CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	if err := validatorx.ValidateStruct(req); err != nil {
		return nil, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, err.Error())
	}

	category := &model.Category{
		Name:        req.Name,
		Description: req.Description,
	}

	id, err := s.categoryRepo.Insert(ctx, category)
	if err != nil {
		logger.Error("[CreateCategory] error categoryRepo.Insert", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	category.ID = id
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	return category, nil
}

func (s *categoryAppImpl) UpdateCategory(ctx context.Context, id uint64, req *model.UpdateCategoryRequest) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, categoryRepo.ErrCategoryNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[UpdateCategory] error categoryRepo.GetByID", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Description != "" {
		category.Description = req.Description
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if stderrors.Is(err, categoryRepo.ErrCategoryNotFound) {
			return nil, errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[UpdateCategory] error categoryRepo.Update", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	category.UpdatedAt = time.Now().UTC()
	return category, nil
}

func (s *categoryAppImpl) DeleteCategory(ctx context.Context, id uint64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, categoryRepo.ErrCategoryNotFound) {
			return errors.SetCustomError(constant.ErrNotFound)
		}
		logger.Error("[DeleteCategory] error categoryRepo.Delete", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}
	return nil
}
