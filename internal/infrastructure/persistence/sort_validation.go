package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ArticleSortFields contains allowed sort fields for articles
var ArticleSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"code":             true,
	"name":             true,
	"valuation_method": true,
}

// DepotSortFields contains allowed sort fields for depots
var DepotSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
}

// LotSortFields contains allowed sort fields for lots
var LotSortFields = map[string]bool{
	"created_at":       true,
	"lot_number":       true,
	"received_at":      true,
	"expiry_date":      true,
	"current_quantity": true,
	"status":           true,
}

// MovementSortFields contains allowed sort fields for stock movements
var MovementSortFields = map[string]bool{
	"created_at":      true,
	"reference":       true,
	"type":            true,
	"status":          true,
	"quantity":        true,
	"movement_date":   true,
	"accounting_date": true,
}

// CampaignSortFields contains allowed sort fields for inventory campaigns
var CampaignSortFields = map[string]bool{
	"created_at": true,
	"reference":  true,
	"status":     true,
	"planned_at": true,
}

// PeriodSortFields contains allowed sort fields for period closings
var PeriodSortFields = map[string]bool{
	"created_at": true,
	"year":       true,
	"month":      true,
	"status":     true,
}

// SnapshotSortFields contains allowed sort fields for cost snapshots
var SnapshotSortFields = map[string]bool{
	"created_at":  true,
	"article_id":  true,
	"depot_id":    true,
	"quantity":    true,
	"total_value": true,
}
