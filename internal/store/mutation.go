package store

import "time"

// Mutation names, one per kind of commit.
const (
	MutationVehicles       = "vehicles.set"
	MutationLocations      = "locations.set"
	MutationFiltered       = "filtered.set"
	MutationCurrentVehicle = "current_vehicle.set"
	MutationLocation       = "location.set"
	MutationPickup         = "pickup.set"
	MutationDropOff        = "dropoff.set"
	MutationSession        = "session.set"
	MutationLoginErrors    = "login_errors.set"
	MutationLogout         = "session.logout"
	MutationStatus         = "status.set"
	MutationRestore        = "state.restore"
)

// Mutation describes one commit to the store.
type Mutation struct {
	Name     string    `json:"name"`
	Resource Resource  `json:"resource,omitempty"`
	At       time.Time `json:"at"`
}

// Subscribe registers fn to be called after every commit, outside the store
// lock, on the goroutine that committed. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Mutation)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(muts ...Mutation) {
	s.subsMu.Lock()
	subs := make([]func(Mutation), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, m := range muts {
		for _, fn := range subs {
			fn(m)
		}
	}
}
