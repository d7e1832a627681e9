// Package domain provides core domain models and types shared across modules.
package domain

import "strings"

// ListingStatusActive is the status value of a tradable row in the listing feed
const ListingStatusActive = "active"

// Listing is one row of the provider's listing-status feed
type Listing struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Status      string `json:"status"`
}

// IsActive reports whether the listing status is (case-insensitively) "active"
func (l Listing) IsActive() bool {
	return strings.ToLower(l.Status) == ListingStatusActive
}
