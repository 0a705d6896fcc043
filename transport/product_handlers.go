package transport

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	"github.com/shopspring/decimal"
)

// ListProducts handler
// @Summary List products
// @Tags Products
// @Produce json
// @Param page query int false "Page"
// @Param perPage query int false "Page size"
// @Success 200 {object} model.ProductListResponse
// @Router /products [get]
func (s *RestHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))

	res, err := s.ProductApp.ListProducts(ctx, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// GetProduct handler
// @Summary Get a product
// @Tags Products
// @Produce json
// @Param id path int true "Product id"
// @Success 200 {object} model.Product
// @Failure 404 {object} errors.CustomError
// @Router /products/{id} [get]
func (s *RestHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	res, err := s.ProductApp.GetProduct(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// CreateProduct handler
// @Summary Create a product
// @Tags Products
// @Accept mpfd
// @Produce json
// @Param name formData string true "Name"
// @Param description formData string false "Description"
// @Param price formData number false "Price"
// @Param stock formData int false "Stock"
// @Param categoryId formData int false "Category id"
// @Param image formData file false "Product image"
// @Success 201 {object} model.Product
// @Failure 400 {object} errors.CustomError
// @Router /products [post]
func (s *RestHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "multipart form expected"))
		return
	}

	req := &model.CreateProductRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	if raw := r.FormValue("price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "price must be a number"))
			return
		}
		req.Price = price
	}
	if raw := r.FormValue("stock"); raw != "" {
		stock, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "stock must be a number"))
			return
		}
		req.Stock = stock
	}
	if raw := r.FormValue("categoryId"); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "categoryId must be a number"))
			return
		}
		req.CategoryID = &categoryID
	}

	if file, header, err := r.FormFile("image"); err == nil {
		img, rerr := readImageUpload(file, header)
		if rerr != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "image could not be read"))
			return
		}
		req.Image = img
	}

	res, err := s.ProductApp.CreateProduct(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeCreated(w, res)
}

// UpdateProduct handler
// @Summary Update a product
// @Description Replaces the provided fields; omitted fields keep their stored value
// @Tags Products
// @Accept mpfd
// @Produce json
// @Param id path int true "Product id"
// @Param name formData string false "Name"
// @Param description formData string false "Description"
// @Param price formData number false "Price"
// @Param stock formData int false "Stock"
// @Param categoryId formData int false "Category id"
// @Param image formData file false "Replacement image"
// @Success 200 {object} model.Product
// @Failure 404 {object} errors.CustomError
// @Router /products/{id} [put]
func (s *RestHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "multipart form expected"))
		return
	}

	req := &model.UpdateProductRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	if raw := r.FormValue("price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "price must be a number"))
			return
		}
		req.Price = price
	}
	if raw := r.FormValue("stock"); raw != "" {
		stock, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "stock must be a number"))
			return
		}
		req.Stock = &stock
	}
	if raw := r.FormValue("categoryId"); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "categoryId must be a number"))
			return
		}
		req.CategoryID = &categoryID
	}

	if file, header, err := r.FormFile("image"); err == nil {
		img, rerr := readImageUpload(file, header)
		if rerr != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "image could not be read"))
			return
		}
		req.Image = img
	}

	res, err := s.ProductApp.UpdateProduct(ctx, id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// DeleteProduct handler
// @Summary Delete a product
// @Tags Products
// @Produce json
// @Param id path int true "Product id"
// @Success 200 {object} nil
// @Failure 404 {object} errors.CustomError
// @Router /products/{id} [delete]
func (s *RestHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	if err := s.ProductApp.DeleteProduct(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}
