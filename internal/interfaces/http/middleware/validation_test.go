package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quantityRequest struct {
	Reference string           `json:"reference" binding:"required,max=10"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required,gt=0"`
	Counted   decimal.Decimal  `json:"counted" binding:"gte=0"`
	Partial   *decimal.Decimal `json:"partial" binding:"omitempty,gt=0"`
}

func validationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req quantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFormatValidationErrors(t *testing.T) {
	router := validationRouter()

	t.Run("lists every rejected field by its JSON name", func(t *testing.T) {
		w := post(router, `{"reference": "far too long a reference", "quantity": "0", "counted": "-1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 10 characters", fields["reference"])
		assert.Equal(t, "This field is required", fields["quantity"])
		assert.Equal(t, "Must not be negative", fields["counted"])
	})

	t.Run("decimals compare as numbers", func(t *testing.T) {
		w := post(router, `{"reference": "R-1", "quantity": "0.001", "counted": "0", "partial": "2.5"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("negative optional decimal is refused", func(t *testing.T) {
		w := post(router, `{"reference": "R-1", "quantity": "1", "partial": "-3"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"partial"`)
		assert.Contains(t, w.Body.String(), "Must be positive")
	})
}

func TestHandleValidationError_CarriesRequestID(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req quantityRequest
		err := c.ShouldBindJSON(&req)
		require.Error(t, err)
		HandleValidationError(c, err)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-validation-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-validation-1", resp.RequestID)
}
