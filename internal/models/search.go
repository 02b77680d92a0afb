package models

import (
	"errors"
	"time"
)

// ErrInvalidDateKind is returned for a date kind other than pickup or dropoff.
var ErrInvalidDateKind = errors.New("date kind must be pickup or dropoff")

// DateKind selects which end of the search window a date applies to.
type DateKind string

const (
	DatePickup  DateKind = "pickup"
	DateDropOff DateKind = "dropoff"
)

// ParseDateKind validates a raw date kind.
func ParseDateKind(s string) (DateKind, error) {
	switch k := DateKind(s); k {
	case DatePickup, DateDropOff:
		return k, nil
	default:
		return "", ErrInvalidDateKind
	}
}

// SearchCriteria holds the user's current search selection.
// Zero values mean the field has not been set.
type SearchCriteria struct {
	LocationID int64     `json:"location_id,omitempty"`
	Pickup     time.Time `json:"pickup"`
	DropOff    time.Time `json:"dropoff"`
}
