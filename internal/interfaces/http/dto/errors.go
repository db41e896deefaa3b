package dto

import (
	"net/http"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Domain error codes, re-exported so handlers never import the domain for them
const (
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeUnknownStock        = shared.CodeUnknownStock
	ErrCodeAlreadyExists       = shared.CodeAlreadyExists
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict
	ErrCodeInsufficientStock   = shared.CodeInsufficientStock
	ErrCodeInvalidState        = shared.CodeInvalidState
	ErrCodePeriodLocked        = shared.CodePeriodLocked
	ErrCodeValidationConflict  = shared.CodeValidationConflict
	ErrCodeDataIntegrity       = shared.CodeDataIntegrity
	ErrCodeInvalidInput        = shared.CodeInvalidInput
)

// Transport error codes
const (
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeUnknownStock:        http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodePeriodLocked:       http.StatusUnprocessableEntity,
	ErrCodeValidationConflict: http.StatusUnprocessableEntity,
	ErrCodeDataIntegrity:      http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeInternal: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorCodeAliases folds the ERR_ prefixed spellings some clients still send back
var errorCodeAliases = map[string]string{
	"ERR_NOT_FOUND":            ErrCodeNotFound,
	"ERR_ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"ERR_INVALID_INPUT":        ErrCodeInvalidInput,
	"ERR_INVALID_STATE":        ErrCodeInvalidState,
	"ERR_CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"ERR_INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"ERR_VALIDATION":           ErrCodeValidation,
	"ERR_BAD_REQUEST":          ErrCodeBadRequest,
	"ERR_INTERNAL":             ErrCodeInternal,
}

// NormalizeErrorCode converts an aliased error code to the canonical one.
// An empty code becomes INTERNAL_ERROR, unknown codes pass through.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeInternal
	}
	if canonical, ok := errorCodeAliases[code]; ok {
		return canonical
	}
	return code
}
