package models

// ReservationRequest represents a reservation sent to the backend.
type ReservationRequest struct {
	VehicleID  int64     `json:"vehicle_id"`
	LocationID int64     `json:"location_id"`
	Pickup     Timestamp `json:"pickup"`
	DropOff    Timestamp `json:"drop_off"`
	Notes      string    `json:"notes,omitempty"`
}
