// Package fakeapi is an in-process rental backend implementing the endpoints
// the client uses. It backs the tests and the simulator's embedded mode.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/auth"
	"github.com/ukydev/rentacar/internal/middleware"
	"github.com/ukydev/rentacar/internal/models"
)

type account struct {
	user         models.User
	passwordHash string
}

// Reservation is a booking accepted by the server.
type Reservation struct {
	UserID  string
	Request models.ReservationRequest
}

// Server holds the backend state in memory.
type Server struct {
	authService *auth.Service
	log         logrus.FieldLogger

	mu           sync.RWMutex
	accounts     map[string]*account // by email
	nextUserID   int64
	vehicles     []models.Vehicle
	locations    []models.Location
	reservations []Reservation
}

// New creates an empty server.
func New(authService *auth.Service, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		authService: authService,
		log:         log,
		accounts:    make(map[string]*account),
		nextUserID:  1,
	}
}

// Seed replaces the catalogue.
func (s *Server) Seed(vehicles []models.Vehicle, locations []models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = append([]models.Vehicle(nil), vehicles...)
	s.locations = append([]models.Location(nil), locations...)
}

// AddUser creates an account directly.
func (s *Server) AddUser(name, email, password string) (models.User, error) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(name, email, hash), nil
}

func (s *Server) addAccountLocked(name, email, hash string) models.User {
	u := models.User{ID: s.nextUserID, Name: name, Email: email}
	s.nextUserID++
	s.accounts[strings.ToLower(email)] = &account{user: u, passwordHash: hash}
	return u
}

// Reservations returns the accepted bookings.
func (s *Server) Reservations() []Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Reservation(nil), s.reservations...)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(s.authService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /vehicles", s.listVehicles)
	mux.HandleFunc("GET /vehicles/filter/{criteria}", s.filterVehicles)
	mux.HandleFunc("GET /locations/list", s.listLocations)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("POST /create-reservation", authMiddleware.Authenticate(http.HandlerFunc(s.createReservation)))
	return mux
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.vehicles)
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.locations)
}

// filterVehicles treats a numeric criteria as a location id and anything else
// as a slug fragment.
func (s *Server) filterVehicles(w http.ResponseWriter, r *http.Request) {
	criteria := r.PathValue("criteria")

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Vehicle{}
	if id, err := strconv.ParseInt(criteria, 10, 64); err == nil {
		for _, v := range s.vehicles {
			if v.ServesLocation(id) {
				out = append(out, v)
			}
		}
	} else {
		for _, v := range s.vehicles {
			if strings.Contains(v.Slug, criteria) {
				out = append(out, v)
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
