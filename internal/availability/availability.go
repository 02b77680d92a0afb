// Package availability decides which vehicles can be rented for a search window.
package availability

import (
	"time"

	"github.com/ukydev/rentacar/internal/models"
)

// IsAvailable reports whether no booked range of v overlaps [pickup, dropoff).
// Vehicles without booked ranges are always available.
func IsAvailable(v models.Vehicle, pickup, dropoff time.Time) bool {
	for _, r := range v.Dates {
		if r.Overlaps(pickup, dropoff) {
			return false
		}
	}
	return true
}

// Filter returns the vehicles serving criteria.LocationID that are free for the
// requested window, in their original order. The input slice is not modified.
func Filter(vehicles []models.Vehicle, criteria models.SearchCriteria) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if !v.ServesLocation(criteria.LocationID) {
			continue
		}
		if IsAvailable(v, criteria.Pickup, criteria.DropOff) {
			out = append(out, v)
		}
	}
	return out
}
