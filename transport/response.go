package transport

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/johnshimelis/outlier-commerce/constant"
	"github.com/johnshimelis/outlier-commerce/utils/errors"
)

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// hideErrorDetails strips the detail from 5xx responses so internals never
// reach callers. Enabled in production.
var hideErrorDetails bool

func HideErrorDetails(hide bool) {
	hideErrorDetails = hide
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, successEnvelope{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, successEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	var ce errors.CustomError
	if !stderrors.As(err, &ce) {
		ce = errors.SetCustomError(constant.ErrInternal)
	}

	status := ce.ErrorHTTPCode()
	detail := ce.Detail()
	if hideErrorDetails && status >= http.StatusInternalServerError {
		detail = ""
	}

	writeJSON(w, status, errorEnvelope{
		Success: false,
		Code:    ce.ErrorCode(),
		Message: ce.Message(),
		Detail:  detail,
	})
}
