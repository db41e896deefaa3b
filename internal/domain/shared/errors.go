package shared

import "fmt"

// Error codes shared by every bounded context
const (
	CodeNotFound            = "NOT_FOUND"
	CodeUnknownStock        = "UNKNOWN_STOCK"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInvalidState        = "INVALID_STATE"
	CodeValidationConflict  = "VALIDATION_CONFLICT"
	CodeDataIntegrity       = "DATA_INTEGRITY"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidInput        = "INVALID_INPUT"
	CodePeriodLocked        = "PERIOD_LOCKED"
	CodeAlreadyExists       = "ALREADY_EXISTS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError of the same kind.
// Detailed errors built with NewDomainError therefore still match the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	// narrower codes also match their family
	switch e.Code {
	case CodeUnknownStock:
		return t.Code == CodeNotFound
	case CodePeriodLocked:
		return t.Code == CodeInvalidState
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrUnknownStock        = NewDomainError(CodeUnknownStock, "No stock exists for this article and depot")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrValidationConflict  = NewDomainError(CodeValidationConflict, "Validation conflicts with a previous validation")
	ErrDataIntegrity       = NewDomainError(CodeDataIntegrity, "Operation would break data integrity")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrPeriodLocked        = NewDomainError(CodePeriodLocked, "Accounting period is closed")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
)

// InsufficientStockError builds an actionable insufficient stock message
func InsufficientStockError(requested, available fmt.Stringer) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock: requested %s, available %s", requested, available))
}

// InvalidStateError builds an invalid state error naming the entity and its current status
func InvalidStateError(entity, status, operation string) *DomainError {
	return NewDomainError(CodeInvalidState,
		fmt.Sprintf("Cannot %s %s in status %s", operation, entity, status))
}
