package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator configures the gin validator: JSON field names in errors,
// and decimals compared as numbers so gt=0 and gte=0 apply to quantities
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
	}
}

// FormatValidationErrors lists each rejected field under a VALIDATION_ERROR envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(logger.RequestIDContextKey)
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// getValidationMessage phrases a rule failure for API clients. Quantities
// and costs are decimals, so numeric bounds are worded as values, not lengths.
func getValidationMessage(e validator.FieldError) string {
	bound := e.Param()
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "required_without":
		return "Required when " + bound + " is not set"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(bound, " ", ", ")
	case "min", "max":
		if e.Kind() == reflect.String {
			if e.Tag() == "min" {
				return "Must be at least " + bound + " characters"
			}
			return "Must be at most " + bound + " characters"
		}
		if e.Kind() == reflect.Slice {
			if e.Tag() == "min" {
				return "Must contain at least " + bound + " items"
			}
			return "Must contain at most " + bound + " items"
		}
		if e.Tag() == "min" {
			return "Must be at least " + bound
		}
		return "Must be at most " + bound
	case "gt":
		if bound == "0" {
			return "Must be positive"
		}
		return "Must be greater than " + bound
	case "gte":
		if bound == "0" {
			return "Must not be negative"
		}
		return "Must be greater than or equal to " + bound
	case "lte":
		return "Must be less than or equal to " + bound
	default:
		return "Invalid value"
	}
}
