package transport

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
	validatorx "github.com/johnshimelis/outlier-commerce/utils/validator"
	"github.com/shopspring/decimal"
)

const maxMultipartMemory = 32 << 20 // 32 MB

// readImageUpload drains one multipart file part into memory.
func readImageUpload(file multipart.File, header *multipart.FileHeader) (*model.ImageUpload, error) {
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &model.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// SubmitOrder handler
// @Summary Submit an order
// @Description Accepts a multipart order submission: payment proof, optional product images and a JSON orderItems field
// @Tags Orders
// @Accept mpfd
// @Produce json
// @Param userId formData string true "User id"
// @Param customerName formData string true "Customer name"
// @Param phoneNumber formData string true "Phone number"
// @Param deliveryAddress formData string true "Delivery address"
// @Param orderItems formData string true "JSON array of order items"
// @Param amount formData number false "Declared total amount"
// @Param status formData string false "Initial status"
// @Param paymentImage formData file true "Payment proof image"
// @Param productImages formData file false "Product images, at most 10"
// @Success 201 {object} model.SubmitOrderResult
// @Failure 400 {object} errors.CustomError
// @Failure 500 {object} errors.CustomError
// @Router /orders [post]
func (s *RestHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "multipart form expected"))
		return
	}

	sub := &model.OrderSubmission{
		UserID:          r.FormValue("userId"),
		CustomerName:    r.FormValue("customerName"),
		PhoneNumber:     r.FormValue("phoneNumber"),
		DeliveryAddress: r.FormValue("deliveryAddress"),
		RawLineItems:    r.FormValue("orderItems"),
		RequestedStatus: r.FormValue("status"),
	}

	if raw := r.FormValue("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "amount must be a number"))
			return
		}
		sub.DeclaredAmount = amount
	}

	// absence is reported by the application so missing-field reporting
	// stays in one place
	if file, header, err := r.FormFile("paymentImage"); err == nil {
		img, rerr := readImageUpload(file, header)
		if rerr != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "payment image could not be read"))
			return
		}
		sub.PaymentProof = img
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["productImages"] {
			file, err := header.Open()
			if err != nil {
				writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "product image could not be read"))
				return
			}
			img, rerr := readImageUpload(file, header)
			if rerr != nil {
				writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "product image could not be read"))
				return
			}
			sub.ProductImages = append(sub.ProductImages, img)
		}
	}

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	res, err := s.OrderApp.SubmitOrder(ctx, sub)
	if err != nil {
		writeError(w, err)
		return
	}

	writeCreated(w, res)
}

// GetOrder handler
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Param sequenceId path int true "Order sequence id"
// @Success 200 {object} model.Order
// @Failure 404 {object} errors.CustomError
// @Router /orders/{sequenceId} [get]
func (s *RestHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sequenceID, err := strconv.ParseUint(mux.Vars(r)["sequenceId"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "sequenceId must be a number"))
		return
	}

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	res, err := s.OrderApp.GetOrder(ctx, sequenceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// ListOrders handler
// @Summary List orders
// @Tags Orders
// @Produce json
// @Param page query int false "Page"
// @Param perPage query int false "Page size"
// @Success 200 {object} model.OrderListResponse
// @Router /orders [get]
func (s *RestHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	res, err := s.OrderApp.ListOrders(ctx, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// ListUserOrders handler
// @Summary List a user's orders
// @Tags Orders
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {array} model.Order
// @Router /users/{userId}/orders [get]
func (s *RestHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	res, err := s.OrderApp.ListUserOrders(ctx, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// UpdateOrderStatus handler
// @Summary Update an order's status
// @Description Sets the order status; the transition into Delivered moves stock into sold exactly once
// @Tags Orders
// @Accept json
// @Produce json
// @Param sequenceId path int true "Order sequence id"
// @Param request body model.UpdateOrderStatusRequest true "New status"
// @Success 200 {object} model.Order
// @Failure 400 {object} errors.CustomError
// @Failure 404 {object} errors.CustomError
// @Router /orders/{sequenceId}/status [patch]
func (s *RestHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sequenceID, err := strconv.ParseUint(mux.Vars(r)["sequenceId"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "sequenceId must be a number"))
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := validatorx.ValidateStruct(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	res, err := s.OrderApp.UpdateOrderStatus(ctx, sequenceID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// DeleteOrder handler
// @Summary Delete an order
// @Tags Orders
// @Produce json
// @Param sequenceId path int true "Order sequence id"
// @Success 200 {object} nil
// @Failure 404 {object} errors.CustomError
// @Router /orders/{sequenceId} [delete]
func (s *RestHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sequenceID, err := strconv.ParseUint(mux.Vars(r)["sequenceId"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "sequenceId must be a number"))
		return
	}

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	if err := s.OrderApp.DeleteOrder(ctx, sequenceID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) DeleteAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.OrderApp == nil {
		writeError(w, errors.SetCustomError(constant.ErrInternal))
		return
	}

	if err := s.OrderApp.DeleteAllOrders(ctx); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}
