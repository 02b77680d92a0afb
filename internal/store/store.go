// Package store holds the client-side state of the rental application and
// mediates between views and the backend API.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/auth"
	"github.com/ukydev/rentacar/internal/models"
)

var (
	// ErrNotAuthenticated is returned by operations that need a token when there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStaleResponse is returned when a filter response arrives after a newer filter was started.
	ErrStaleResponse = errors.New("response superseded by a newer request")
)

// API is the backend the store talks to.
type API interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
	FilterVehicles(ctx context.Context, criteria string) ([]models.Vehicle, error)
	Register(ctx context.Context, req models.RegisterRequest) error
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	CreateReservation(ctx context.Context, token string, req models.ReservationRequest) error
}

// Store is the single source of truth for UI state. Only its methods mutate
// it; accessors return copies. It is safe for concurrent use.
type Store struct {
	api API
	nav Navigator
	log logrus.FieldLogger
	now func() time.Time

	mu                 sync.RWMutex
	vehicles           []models.Vehicle
	locations          []models.Location
	filtered           []models.Vehicle
	current            *models.Vehicle
	criteria           models.SearchCriteria
	user               *models.User
	token              string
	loginErrors        []string
	invalidCredentials string
	loginFailure       *models.LoginFailure
	status             map[Resource]Status
	filterGen          uint64

	subsMu  sync.Mutex
	subs    map[int]func(Mutation)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithNavigator sets the router used after login and logout.
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock sets the time source for mutation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store backed by api.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:         api,
		nav:         NopNavigator{},
		log:         logrus.StandardLogger(),
		now:         time.Now,
		vehicles:    []models.Vehicle{},
		locations:   []models.Location{},
		filtered:    []models.Vehicle{},
		loginErrors: []string{},
		status:      make(map[Resource]Status),
		subs:        make(map[int]func(Mutation)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// commit applies fn under the write lock, then notifies subscribers.
func (s *Store) commit(fn func() []Mutation) {
	s.mu.Lock()
	muts := fn()
	s.mu.Unlock()
	now := s.now()
	for i := range muts {
		muts[i].At = now
	}
	s.notify(muts...)
}

func (s *Store) setStatus(r Resource, st Status) {
	s.commit(func() []Mutation {
		s.status[r] = st
		return []Mutation{{Name: MutationStatus, Resource: r}}
	})
}

// Vehicles returns the last fetched fleet.
func (s *Store) Vehicles() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Vehicle{}, s.vehicles...)
}

// Locations returns the last fetched locations.
func (s *Store) Locations() []models.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Location{}, s.locations...)
}

// FilteredVehicles returns the last search result.
func (s *Store) FilteredVehicles() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Vehicle{}, s.filtered...)
}

// CurrentVehicle returns the selected vehicle, or false when none is selected.
func (s *Store) CurrentVehicle() (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Vehicle{}, false
	}
	return *s.current, true
}

// Criteria returns the current search selection.
func (s *Store) Criteria() models.SearchCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// PickupDate returns the selected pickup date; zero when unset.
func (s *Store) PickupDate() time.Time { return s.Criteria().Pickup }

// DropOffDate returns the selected drop-off date; zero when unset.
func (s *Store) DropOffDate() time.Time { return s.Criteria().DropOff }

// User returns the logged-in user, or false when there is none.
// The user survives logout.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Token returns the bearer token; empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool { return s.Token() != "" }

// Claims decodes the held token. Opaque tokens and logged-out sessions return false.
func (s *Store) Claims() (*models.Claims, bool) {
	token := s.Token()
	if token == "" {
		return nil, false
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// LoginErrors returns the flattened validation messages of the last login.
func (s *Store) LoginErrors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.loginErrors...)
}

// InvalidCredentials returns the generic rejection message of the last login.
func (s *Store) InvalidCredentials() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalidCredentials
}

// LoginFailure returns how the last login was rejected, or nil.
func (s *Store) LoginFailure() *models.LoginFailure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loginFailure == nil {
		return nil
	}
	f := *s.loginFailure
	return &f
}

// Status returns the progress of r; idle when never started.
func (s *Store) Status(r Resource) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.status[r]; ok {
		return st
	}
	return Status{Phase: PhaseIdle}
}
