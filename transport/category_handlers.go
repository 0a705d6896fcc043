package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	validatorx "github.com/johnshimelis/outlier-commerce/utils/validator"
)

// ListCategories handler
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} model.Category
// @Router /categories [get]
func (s *RestHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := s.CategoryApp.ListCategories(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// GetCategory handler
// @Summary Get a category
// @Tags Categories
// @Produce json
// @Param id path int true "Category id"
// @Success 200 {object} model.Category
// @Failure 404 {object} errors.CustomError
// @Router /categories/{id} [get]
func (s *RestHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	res, err := s.CategoryApp.GetCategory(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// CreateCategory handler
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param request body model.CreateCategoryRequest true "Category"
// @Success 201 {object} model.Category
// @Failure 400 {object} errors.CustomError
// @Router /categories [post]
func (s *RestHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := validatorx.ValidateStruct(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	res, err := s.CategoryApp.CreateCategory(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeCreated(w, res)
}

// UpdateCategory handler
// @Summary Update a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path int true "Category id"
// @Param request body model.UpdateCategoryRequest true "Replacement fields"
// @Success 200 {object} model.Category
// @Failure 404 {object} errors.CustomError
// @Router /categories/{id} [put]
func (s *RestHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	var req model.UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	res, err := s.CategoryApp.UpdateCategory(ctx, id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// DeleteCategory handler
// @Summary Delete a category
// @Tags Categories
// @Produce json
// @Param id path int true "Category id"
// @Success 200 {object} nil
// @Failure 404 {object} errors.CustomError
// @Router /categories/{id} [delete]
func (s *RestHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	if err := s.CategoryApp.DeleteCategory(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}
