package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/availability"
	"github.com/ukydev/rentacar/internal/models"
)

// FetchVehicles replaces the fleet with a fresh copy from the API. On failure
// the previous fleet is kept. Search results are pruned to vehicles still in
// the fleet but are not recomputed.
func (s *Store) FetchVehicles(ctx context.Context) error {
	s.setStatus(ResourceVehicles, Status{Phase: PhaseLoading})

	vehicles, err := s.api.ListVehicles(ctx)
	if err != nil {
		s.setStatus(ResourceVehicles, failed(err))
		return err
	}

	s.commit(func() []Mutation {
		s.vehicles = vehicles
		s.status[ResourceVehicles] = Status{Phase: PhaseSucceeded}
		muts := []Mutation{{Name: MutationVehicles, Resource: ResourceVehicles}}
		if pruned, changed := prune(s.filtered, vehicles); changed {
			s.filtered = pruned
			muts = append(muts, Mutation{Name: MutationFiltered})
		}
		return muts
	})
	s.log.WithField("count", len(vehicles)).Debug("Vehicles fetched")
	return nil
}

// prune keeps the filtered vehicles that still exist in fleet, replaced by
// their fresh copy, in filtered order. Vehicles are matched by slug, or by id
// when they have none.
func prune(filtered, fleet []models.Vehicle) ([]models.Vehicle, bool) {
	if len(filtered) == 0 {
		return filtered, false
	}
	byKey := make(map[vehicleKey]models.Vehicle, len(fleet))
	for _, v := range fleet {
		k := keyOf(v)
		if _, dup := byKey[k]; !dup {
			byKey[k] = v
		}
	}
	out := make([]models.Vehicle, 0, len(filtered))
	for _, v := range filtered {
		if fresh, ok := byKey[keyOf(v)]; ok {
			out = append(out, fresh)
		}
	}
	return out, true
}

type vehicleKey struct {
	slug string
	id   int64
}

func keyOf(v models.Vehicle) vehicleKey {
	if v.Slug != "" {
		return vehicleKey{slug: v.Slug}
	}
	return vehicleKey{id: v.ID}
}

// FetchLocations replaces the location list. On failure the previous list is kept.
func (s *Store) FetchLocations(ctx context.Context) error {
	s.setStatus(ResourceLocations, Status{Phase: PhaseLoading})

	locations, err := s.api.ListLocations(ctx)
	if err != nil {
		s.setStatus(ResourceLocations, failed(err))
		return err
	}

	s.commit(func() []Mutation {
		s.locations = locations
		s.status[ResourceLocations] = Status{Phase: PhaseSucceeded}
		return []Mutation{{Name: MutationLocations, Resource: ResourceLocations}}
	})
	return nil
}

// SelectVehicle makes the vehicle with slug current, looking only at the
// fleet in memory. A miss clears the selection and returns false.
func (s *Store) SelectVehicle(slug string) bool {
	found := false
	s.commit(func() []Mutation {
		s.current = nil
		for i := range s.vehicles {
			if s.vehicles[i].Slug == slug {
				v := s.vehicles[i]
				s.current = &v
				found = true
				break
			}
		}
		return []Mutation{{Name: MutationCurrentVehicle}}
	})
	return found
}

// SetLocation selects the pickup location.
func (s *Store) SetLocation(id int64) {
	s.commit(func() []Mutation {
		s.criteria.LocationID = id
		return []Mutation{{Name: MutationLocation}}
	})
}

// SetSearchDate sets the pickup or drop-off date. The window is not checked
// for order.
func (s *Store) SetSearchDate(kind models.DateKind, value time.Time) error {
	var name string
	switch kind {
	case models.DatePickup:
		name = MutationPickup
	case models.DateDropOff:
		name = MutationDropOff
	default:
		return models.ErrInvalidDateKind
	}
	s.commit(func() []Mutation {
		if kind == models.DatePickup {
			s.criteria.Pickup = value
		} else {
			s.criteria.DropOff = value
		}
		return []Mutation{{Name: name}}
	})
	return nil
}

// FilterVehiclesLocally recomputes the search result from the fleet in memory
// and the current criteria, without calling the API.
func (s *Store) FilterVehiclesLocally() []models.Vehicle {
	var result []models.Vehicle
	s.commit(func() []Mutation {
		s.filterGen++
		s.filtered = availability.Filter(s.vehicles, s.criteria)
		s.status[ResourceFilter] = Status{Phase: PhaseSucceeded}
		result = append([]models.Vehicle{}, s.filtered...)
		return []Mutation{{Name: MutationFiltered, Resource: ResourceFilter}}
	})
	return result
}

// FilterVehiclesRemote asks the API to filter and stores its answer as the
// search result. When another filter starts before the answer arrives, the
// answer is dropped and ErrStaleResponse returned.
func (s *Store) FilterVehiclesRemote(ctx context.Context, criteria string) ([]models.Vehicle, error) {
	var gen uint64
	s.commit(func() []Mutation {
		s.filterGen++
		gen = s.filterGen
		s.status[ResourceFilter] = Status{Phase: PhaseLoading}
		return []Mutation{{Name: MutationStatus, Resource: ResourceFilter}}
	})

	vehicles, err := s.api.FilterVehicles(ctx, criteria)

	stale := false
	s.commit(func() []Mutation {
		if gen != s.filterGen {
			stale = true
			return nil
		}
		if err != nil {
			s.status[ResourceFilter] = failed(err)
			return []Mutation{{Name: MutationStatus, Resource: ResourceFilter}}
		}
		s.filtered = vehicles
		s.status[ResourceFilter] = Status{Phase: PhaseSucceeded}
		return []Mutation{{Name: MutationFiltered, Resource: ResourceFilter}}
	})

	if stale {
		s.log.WithField("criteria", criteria).Debug("Dropped superseded filter response")
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}
	return append([]models.Vehicle{}, vehicles...), nil
}

// RegisterUser creates an account. Nothing is committed besides the status.
func (s *Store) RegisterUser(ctx context.Context, req models.RegisterRequest) error {
	s.setStatus(ResourceRegister, Status{Phase: PhaseLoading})
	if err := s.api.Register(ctx, req); err != nil {
		s.setStatus(ResourceRegister, failed(err))
		return err
	}
	s.setStatus(ResourceRegister, Status{Phase: PhaseSucceeded})
	s.log.WithField("email", req.Email).Info("User registered")
	return nil
}

// Login authenticates and navigates to the confirmation view. On rejection
// either InvalidCredentials or LoginErrors is filled, never both. A failed
// attempt leaves an existing session untouched.
func (s *Store) Login(ctx context.Context, req models.LoginRequest) error {
	s.setStatus(ResourceLogin, Status{Phase: PhaseLoading})

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		var failure *models.LoginFailure
		isFailure := errors.As(err, &failure)
		s.commit(func() []Mutation {
			s.invalidCredentials = ""
			s.loginErrors = []string{}
			s.loginFailure = nil
			if isFailure {
				f := *failure
				s.loginFailure = &f
				switch failure.Kind {
				case models.LoginFailureAuth:
					s.invalidCredentials = failure.Message
				case models.LoginFailureValidation:
					s.loginErrors = failure.Messages()
				}
			}
			s.status[ResourceLogin] = failed(err)
			return []Mutation{
				{Name: MutationLoginErrors},
				{Name: MutationStatus, Resource: ResourceLogin},
			}
		})
		return err
	}

	s.commit(func() []Mutation {
		s.token = resp.Token
		u := resp.User
		s.user = &u
		s.invalidCredentials = ""
		s.loginErrors = []string{}
		s.loginFailure = nil
		s.status[ResourceLogin] = Status{Phase: PhaseSucceeded}
		return []Mutation{
			{Name: MutationSession},
			{Name: MutationLoginErrors},
			{Name: MutationStatus, Resource: ResourceLogin},
		}
	})
	s.log.WithField("user_id", resp.User.ID).Info("Logged in")
	s.nav.Push(RouteConfirmation)
	return nil
}

// Logout drops the token and navigates home. The user record is kept.
func (s *Store) Logout() {
	s.commit(func() []Mutation {
		s.token = ""
		return []Mutation{{Name: MutationLogout}}
	})
	s.nav.Push(RouteHome)
}

// MakeReservation books a vehicle with the session token.
func (s *Store) MakeReservation(ctx context.Context, req models.ReservationRequest) error {
	token := s.Token()
	if token == "" {
		s.setStatus(ResourceReservation, failed(ErrNotAuthenticated))
		return ErrNotAuthenticated
	}

	s.setStatus(ResourceReservation, Status{Phase: PhaseLoading})
	if err := s.api.CreateReservation(ctx, token, req); err != nil {
		s.setStatus(ResourceReservation, failed(err))
		return err
	}
	s.setStatus(ResourceReservation, Status{Phase: PhaseSucceeded})
	s.log.WithFields(logrus.Fields{
		"vehicle_id":  req.VehicleID,
		"location_id": req.LocationID,
	}).Info("Reservation created")
	return nil
}
