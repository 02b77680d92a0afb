package models

import "time"

// Vehicle represents a rentable vehicle as returned by the backend.
type Vehicle struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Make        string      `json:"make"`
	Model       string      `json:"model"`
	Year        int         `json:"year"`
	Type        string      `json:"type"` // "ICE" or "EV"
	PricePerDay float64     `json:"price_per_day"`
	Locations   []Location  `json:"locations"`
	Dates       []DateRange `json:"dates"` // periods the vehicle is already booked
}

// ServesLocation reports whether the vehicle can be picked up at the location.
func (v Vehicle) ServesLocation(id int64) bool {
	for _, l := range v.Locations {
		if l.ID == id {
			return true
		}
	}
	return false
}

// DateRange is a period during which a vehicle is unavailable.
type DateRange struct {
	Pickup  Timestamp `json:"pickup"`
	DropOff Timestamp `json:"drop_off"`
}

// Overlaps reports whether the range intersects [start, end).
// Touching endpoints do not overlap. An unset start or end never overlaps;
// a null bound on the range itself stands for the Unix epoch.
func (r DateRange) Overlaps(start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	return epochIfZero(r.Pickup.Time).Before(end) && start.Before(epochIfZero(r.DropOff.Time))
}

func epochIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t
}
