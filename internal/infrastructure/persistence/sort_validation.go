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

// ClientSortFields contains allowed sort fields for clients
var ClientSortFields = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"first_name":          true,
	"last_name":           true,
	"phone":               true,
	"balance":             true,
	"credit_limit":        true,
	"status":              true,
	"last_transaction_at": true,
}

// TransactionSortFields contains allowed sort fields for transactions
var TransactionSortFields = map[string]bool{
	"created_at":       true,
	"transaction_date": true,
	"due_date":         true,
	"number":           true,
	"total_amount":     true,
	"payment_status":   true,
}
