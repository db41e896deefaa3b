package router

import (
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the endpoint handlers of the API
type Handlers struct {
	System      *handler.SystemHandler
	Catalog     *handler.CatalogHandler
	Ledger      *handler.LedgerHandler
	Lots        *handler.LotHandler
	Reservation *handler.ReservationHandler
	Transfer    *handler.TransferHandler
	StockCount  *handler.StockCountHandler
	Valuation   *handler.ValuationHandler
	Closing     *handler.ClosingHandler
}

// Domains builds the route groups of the API. A nil handler leaves its domain unmounted.
func Domains(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.System != nil {
		groups = append(groups, NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo))
	}

	if h.Catalog != nil {
		g := NewDomainGroup("catalog", "/catalog")
		g.Group("articles", "/articles").
			POST("", h.Catalog.CreateArticle).
			GET("", h.Catalog.ListArticles).
			GET("/code/:code", h.Catalog.GetArticleByCode).
			GET("/:id", h.Catalog.GetArticle)
		g.Group("depots", "/depots").
			POST("", h.Catalog.CreateDepot).
			GET("", h.Catalog.ListDepots).
			GET("/:id", h.Catalog.GetDepot).
			POST("/:id/deactivate", h.Catalog.DeactivateDepot)
		groups = append(groups, g)
	}

	if h.Ledger != nil {
		groups = append(groups,
			NewDomainGroup("movements", "/movements").
				POST("", h.Ledger.RecordMovement).
				POST("/drafts", h.Ledger.CreateDraft).
				GET("", h.Ledger.ListMovements).
				GET("/:id", h.Ledger.GetMovement).
				POST("/:id/validate", h.Ledger.ValidateDraft).
				POST("/:id/cancel", h.Ledger.CancelMovement),
			NewDomainGroup("stocks", "/stocks").
				GET("", h.Ledger.ListStocks).
				GET("/:article_id/:depot_id", h.Ledger.GetStock),
		)
	}

	if h.Lots != nil {
		groups = append(groups, NewDomainGroup("lots", "/lots").
			POST("/receipts", h.Lots.Receive).
			POST("/consumptions", h.Lots.Consume).
			POST("/merges", h.Lots.Merge).
			POST("/expire", h.Lots.Expire).
			GET("/expiring", h.Lots.Expiring).
			GET("/allocation", h.Lots.SuggestAllocation).
			GET("/articles/:article_id", h.Lots.ListByArticle).
			GET("/:id", h.Lots.Get).
			POST("/:id/status", h.Lots.ChangeStatus))
	}

	if h.Reservation != nil {
		groups = append(groups, NewDomainGroup("reservations", "/reservations").
			POST("", h.Reservation.Reserve).
			GET("", h.Reservation.ListByOrder).
			POST("/expire", h.Reservation.Expire).
			GET("/:id", h.Reservation.Get).
			POST("/:id/release", h.Reservation.Release).
			POST("/:id/withdraw", h.Reservation.Withdraw))
	}

	if h.Transfer != nil {
		groups = append(groups, NewDomainGroup("transfers", "/transfers").
			POST("", h.Transfer.Create).
			GET("/:id", h.Transfer.Get).
			POST("/:id/validate", h.Transfer.Validate).
			POST("/:id/ship", h.Transfer.Ship).
			POST("/:id/receive", h.Transfer.Receive).
			POST("/:id/cancel", h.Transfer.Cancel))
	}

	if h.StockCount != nil {
		g := NewDomainGroup("counts", "/counts").
			POST("", h.StockCount.CreateCampaign).
			GET("", h.StockCount.List).
			POST("/adjustments/:adjustment_id/validate", h.StockCount.ValidateAdjustment).
			GET("/:id", h.StockCount.Get).
			POST("/:id/start", h.StockCount.StartCampaign).
			POST("/:id/complete", h.StockCount.Complete).
			POST("/:id/validate", h.StockCount.Validate).
			POST("/:id/close", h.StockCount.Close).
			POST("/:id/cancel", h.StockCount.Cancel).
			GET("/:id/adjustments", h.StockCount.ListAdjustments)
		g.Group("lines", "/:id/lines").
			POST("/:line_id/count", h.StockCount.RecordCount).
			POST("/:line_id/exclude", h.StockCount.ExcludeLine).
			POST("/:line_id/validate", h.StockCount.ValidateLine)
		groups = append(groups, g)
	}

	if h.Valuation != nil {
		groups = append(groups, NewDomainGroup("valuation", "/valuation").
			GET("/articles/:article_id", h.Valuation.ValueArticle).
			GET("/depots/:depot_id/abc", h.Valuation.ABC).
			GET("/stocks/:article_id/:depot_id", h.Valuation.ValueStock).
			GET("/stocks/:article_id/:depot_id/rotation", h.Valuation.Rotation).
			POST("/stocks/:article_id/:depot_id/audit", h.Valuation.Audit))
	}

	if h.Closing != nil {
		groups = append(groups, NewDomainGroup("closings", "/closings").
			POST("", h.Closing.Initialize).
			GET("", h.Closing.List).
			GET("/lock", h.Closing.Lock).
			GET("/:id", h.Closing.Get).
			POST("/:id/execute", h.Closing.Execute).
			POST("/:id/validate", h.Closing.Validate).
			POST("/:id/reject", h.Closing.Reject).
			GET("/:id/snapshots", h.Closing.Snapshots).
			GET("/:id/archive", h.Closing.ArchiveLink))
	}

	return groups
}

// Mount registers the probes at the root of the engine and every domain under the API prefix
func Mount(engine *gin.Engine, h Handlers, opts ...RouterOption) *Router {
	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/ready", h.System.Ready)
	}

	r := NewRouter(engine, opts...)
	for _, g := range Domains(h) {
		r.Register(g)
	}
	r.Setup()
	return r
}
