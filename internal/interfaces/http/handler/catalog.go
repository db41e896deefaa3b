package handler

import (
	catalogapp "github.com/erp/stockledger/internal/application/catalog"
	"github.com/gin-gonic/gin"
)

// CatalogHandler handles article and depot endpoints
type CatalogHandler struct {
	BaseHandler
	catalogService *catalogapp.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *catalogapp.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CreateArticle handles POST /catalog/articles
func (h *CatalogHandler) CreateArticle(c *gin.Context) {
	var req catalogapp.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	article, err := h.catalogService.CreateArticle(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, article)
}

// GetArticle handles GET /catalog/articles/:id
func (h *CatalogHandler) GetArticle(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	article, err := h.catalogService.GetArticle(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, article)
}

// GetArticleByCode handles GET /catalog/articles/code/:code
func (h *CatalogHandler) GetArticleByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Article code is required")
		return
	}

	article, err := h.catalogService.GetArticleByCode(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, article)
}

// ListArticles handles GET /catalog/articles
func (h *CatalogHandler) ListArticles(c *gin.Context) {
	var filter catalogapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.catalogService.ListArticles(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// CreateDepot handles POST /catalog/depots
func (h *CatalogHandler) CreateDepot(c *gin.Context) {
	var req catalogapp.CreateDepotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	depot, err := h.catalogService.CreateDepot(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, depot)
}

// GetDepot handles GET /catalog/depots/:id
func (h *CatalogHandler) GetDepot(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	depot, err := h.catalogService.GetDepot(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, depot)
}

// ListDepots handles GET /catalog/depots
func (h *CatalogHandler) ListDepots(c *gin.Context) {
	var filter catalogapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.catalogService.ListDepots(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// DeactivateDepot handles POST /catalog/depots/:id/deactivate
func (h *CatalogHandler) DeactivateDepot(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	depot, err := h.catalogService.DeactivateDepot(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, depot)
}
