package constant

import "net/http"

type ErrorType int

const (
	Successful ErrorType = iota
	ErrInternal
	ErrNotFound
	ErrInvalidRequest
	ErrUnauthorize
	ErrMissingFields
	ErrPaymentProofMissing
	ErrMalformedLineItems
	ErrNoValidLineItems
	ErrUpload
	ErrPersistence
	ErrAllocationConflict
)

var ErrorTypeMessage = map[ErrorType]string{
	Successful:             "success",
	ErrInternal:            "error internal",
	ErrNotFound:            "data not found",
	ErrInvalidRequest:      "invalid request",
	ErrUnauthorize:         "unauthorize request",
	ErrMissingFields:       "missing required fields",
	ErrPaymentProofMissing: "payment proof image is required",
	ErrMalformedLineItems:  "order items payload is malformed",
	ErrNoValidLineItems:    "no order items could be resolved",
	ErrUpload:              "image upload failed",
	ErrPersistence:         "order could not be saved",
	ErrAllocationConflict:  "order number allocation conflict",
}

var ErrorTypeHTTPCode = map[ErrorType]int{
	Successful:             http.StatusOK,
	ErrInternal:            http.StatusInternalServerError,
	ErrNotFound:            http.StatusNotFound,
	ErrInvalidRequest:      http.StatusBadRequest,
	ErrUnauthorize:         http.StatusUnauthorized,
	ErrMissingFields:       http.StatusBadRequest,
	ErrPaymentProofMissing: http.StatusBadRequest,
	ErrMalformedLineItems:  http.StatusBadRequest,
	ErrNoValidLineItems:    http.StatusBadRequest,
	ErrUpload:              http.StatusInternalServerError,
	ErrPersistence:         http.StatusInternalServerError,
	ErrAllocationConflict:  http.StatusInternalServerError,
}

var ErrorTypeCode = map[ErrorType]string{
	Successful:             "0000",
	ErrInternal:            "0001",
	ErrNotFound:            "0002",
	ErrInvalidRequest:      "0003",
	ErrUnauthorize:         "0004",
	ErrMissingFields:       "0005",
	ErrPaymentProofMissing: "0006",
	ErrMalformedLineItems:  "0007",
	ErrNoValidLineItems:    "0008",
	ErrUpload:              "0009",
	ErrPersistence:         "0010",
	ErrAllocationConflict:  "0011",
}
