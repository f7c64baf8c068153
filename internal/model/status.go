package model

import "fmt"

// Status values mirror the bids.status column. Ingestion always writes NEW;
// the other values are set through the review API.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusReviewing Status = "REVIEWING"
	StatusArchived  Status = "ARCHIVED"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values. Keeps free-form strings out of storage.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNew, StatusReviewing, StatusArchived:
		return st, nil
	}
	return "", fmt.Errorf("unknown bid status %q", s)
}
