package transport

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/model"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
)

// ListAds handler
// @Summary List ads
// @Tags Ads
// @Produce json
// @Param active query bool false "Only active ads"
// @Success 200 {array} model.Ad
// @Router /ads [get]
func (s *RestHandler) ListAds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	res, err := s.AdApp.ListAds(ctx, activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// CreateAd handler
// @Summary Create an ad
// @Tags Ads
// @Accept mpfd
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param productId formData int false "Promoted product id"
// @Param image formData file false "Ad image"
// @Success 201 {object} model.Ad
// @Failure 400 {object} errors.CustomError
// @Router /ads [post]
func (s *RestHandler) CreateAd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "multipart form expected"))
		return
	}

	req := &model.CreateAdRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}

	if raw := r.FormValue("productId"); raw != "" {
		productID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "productId must be a number"))
			return
		}
		req.ProductID = &productID
	}

	if file, header, err := r.FormFile("image"); err == nil {
		img, rerr := readImageUpload(file, header)
		if rerr != nil {
			writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "image could not be read"))
			return
		}
		req.Image = img
	}

	res, err := s.AdApp.CreateAd(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeCreated(w, res)
}

// DeleteAd handler
// @Summary Delete an ad
// @Tags Ads
// @Produce json
// @Param id path int true "Ad id"
// @Success 200 {object} nil
// @Failure 404 {object} errors.CustomError
// @Router /ads/{id} [delete]
func (s *RestHandler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.SetCustomErrorWithDetail(constant.ErrInvalidRequest, "id must be a number"))
		return
	}

	if err := s.AdApp.DeleteAd(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}
