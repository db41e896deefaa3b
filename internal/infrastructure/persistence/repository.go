package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/sequence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every persisted type in creation order.
// Migrations own the production schema; tests build theirs with AutoMigrate.
func Models() []any {
	return []any{
		&catalog.Article{},
		&catalog.Depot{},
		&inventory.Stock{},
		&inventory.Lot{},
		&inventory.StockMovement{},
		&inventory.MovementLotLine{},
		&inventory.Reservation{},
		&inventory.InventoryCampaign{},
		&inventory.InventoryLine{},
		&inventory.InventoryAdjustment{},
		&inventory.Transfer{},
		&inventory.TransferLine{},
		&closing.PeriodClosing{},
		&closing.CostSnapshot{},
		&sequence.Counter{},
	}
}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// duplicate maps a unique violation to the given domain error.
// Requires gorm.Config.TranslateError.
func duplicate(err error, target *shared.DomainError) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return target
	}
	return err
}

// forUpdate adds SELECT ... FOR UPDATE. SQLite ignores the clause and
// serializes writers at the connection level instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// saveVersioned updates every column of an aggregate when its stored version is
// still the one that was loaded, then bumps the in-memory version.
// A stale version leaves the row untouched and reports a concurrency conflict.
func saveVersioned(ctx context.Context, db *gorm.DB, model any, root *shared.BaseAggregateRoot, entity string) error {
	current := root.Version
	root.Version = current + 1

	result := db.WithContext(ctx).
		Model(model).
		Where("version = ?", current).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		root.Version = current
		return result.Error
	}
	if result.RowsAffected == 0 {
		root.Version = current
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("%s %s was modified by another transaction", entity, root.ID))
	}
	return nil
}

// paginate applies a whitelisted ordering and the page window of the filter
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, allowed, defaultField)
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
