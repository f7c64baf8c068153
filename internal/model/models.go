// Package model defines shared data structures for the bidwatch service.
package model

import "time"

// Candidate is a procurement announcement as returned by a fetch source,
// before eligibility filtering. It lives for one collection run only.
type Candidate struct {
	ExternalID string `json:"externalId"` // source-assigned notice number, dedup key
	Title      string `json:"title"`
	Agency     string `json:"agency"`
	PriceRaw   string `json:"priceRaw"` // estimated price as published; may be malformed or empty
	ClosingAt  string `json:"closingAt"`
	DetailLink string `json:"detailLink"`
}

// Bid is a stored announcement row. Price holds the thousands-separated
// display form of the estimated price (or the raw string when unparsable).
type Bid struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	Title      string    `json:"title"`
	Agency     string    `json:"agency"`
	Price      string    `json:"price"`
	ClosingAt  string    `json:"closingAt"`
	DetailLink string    `json:"detailLink"`
	IsFavorite bool      `json:"isFavorite"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}
