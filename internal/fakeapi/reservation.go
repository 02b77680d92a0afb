package fakeapi

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/availability"
	"github.com/ukydev/rentacar/internal/middleware"
	"github.com/ukydev/rentacar/internal/models"
)

// createReservation books a vehicle and marks the period unavailable.
func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var req models.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Pickup.IsZero() || req.DropOff.IsZero() || !req.Pickup.Before(req.DropOff.Time) {
		http.Error(w, "Invalid reservation period", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, v := range s.vehicles {
		if v.ID == req.VehicleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	v := &s.vehicles[idx]
	if !v.ServesLocation(req.LocationID) {
		http.Error(w, "Vehicle not offered at this location", http.StatusUnprocessableEntity)
		return
	}
	if !availability.IsAvailable(*v, req.Pickup.Time, req.DropOff.Time) {
		http.Error(w, "Vehicle already booked for this period", http.StatusConflict)
		return
	}

	v.Dates = append(v.Dates, models.DateRange{Pickup: req.Pickup, DropOff: req.DropOff})
	s.reservations = append(s.reservations, Reservation{UserID: claims.Subject, Request: req})

	s.log.WithFields(logrus.Fields{
		"vehicle_id": req.VehicleID,
		"user_id":    claims.Subject,
	}).Debug("Reservation created")
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Reservation created"})
}
