package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/db"
	"github.com/ukydev/rentacar/internal/models"
)

// Keys used in durable storage besides the snapshot key.
const (
	KeyPickup  = "pickup"
	KeyDropOff = "dropoff"
)

// DefaultStateKey is the key the whole snapshot is stored under.
const DefaultStateKey = "rentacar"

// State is a serialisable copy of everything the store holds except
// operation statuses.
type State struct {
	Vehicles           []models.Vehicle      `json:"vehicles"`
	Locations          []models.Location     `json:"locations"`
	Filtered           []models.Vehicle      `json:"filtered"`
	CurrentVehicle     *models.Vehicle       `json:"current_vehicle,omitempty"`
	Criteria           models.SearchCriteria `json:"criteria"`
	User               *models.User          `json:"user,omitempty"`
	Token              string                `json:"token"`
	LoginErrors        []string              `json:"login_errors"`
	InvalidCredentials string                `json:"invalid_credentials"`
}

// Snapshot copies the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Vehicles:           append([]models.Vehicle{}, s.vehicles...),
		Locations:          append([]models.Location{}, s.locations...),
		Filtered:           append([]models.Vehicle{}, s.filtered...),
		Criteria:           s.criteria,
		Token:              s.token,
		LoginErrors:        append([]string{}, s.loginErrors...),
		InvalidCredentials: s.invalidCredentials,
	}
	if s.current != nil {
		v := *s.current
		st.CurrentVehicle = &v
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// Restore replaces the state with st. Statuses are reset to idle and any
// in-flight filter response is discarded.
func (s *Store) Restore(st State) {
	s.commit(func() []Mutation {
		s.vehicles = nonNilVehicles(st.Vehicles)
		s.locations = append([]models.Location{}, st.Locations...)
		s.filtered = nonNilVehicles(st.Filtered)
		s.current = nil
		if st.CurrentVehicle != nil {
			v := *st.CurrentVehicle
			s.current = &v
		}
		s.criteria = st.Criteria
		s.user = nil
		if st.User != nil {
			u := *st.User
			s.user = &u
		}
		s.token = st.Token
		s.loginErrors = append([]string{}, st.LoginErrors...)
		s.invalidCredentials = st.InvalidCredentials
		s.loginFailure = nil
		s.status = make(map[Resource]Status)
		s.filterGen++
		return []Mutation{{Name: MutationRestore}}
	})
}

func nonNilVehicles(vs []models.Vehicle) []models.Vehicle {
	return append([]models.Vehicle{}, vs...)
}

// Persister saves and restores a store through a db.StateCollection. It is
// the only place the store touches durable storage.
type Persister struct {
	store *Store
	coll  db.StateCollection
	key   string
	log   logrus.FieldLogger
}

// NewPersister binds store to coll under key.
func NewPersister(store *Store, coll db.StateCollection, key string, log logrus.FieldLogger) *Persister {
	if key == "" {
		key = DefaultStateKey
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Persister{store: store, coll: coll, key: key, log: log}
}

// Persist writes the snapshot under the state key and the raw search dates
// under KeyPickup and KeyDropOff.
func (p *Persister) Persist(ctx context.Context) error {
	st := p.store.Snapshot()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := p.coll.Save(ctx, p.key, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := p.coll.Save(ctx, KeyPickup, []byte(formatDate(st.Criteria.Pickup))); err != nil {
		return fmt.Errorf("save pickup: %w", err)
	}
	if err := p.coll.Save(ctx, KeyDropOff, []byte(formatDate(st.Criteria.DropOff))); err != nil {
		return fmt.Errorf("save dropoff: %w", err)
	}
	p.log.WithField("key", p.key).Debug("State persisted")
	return nil
}

// Resume restores the snapshot. Without one it falls back to the raw search
// dates; an empty storage is not an error.
func (p *Persister) Resume(ctx context.Context) error {
	data, err := p.coll.Load(ctx, p.key)
	switch {
	case err == nil:
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
		p.store.Restore(st)
		p.log.WithField("key", p.key).Debug("State restored")
		return nil
	case !errors.Is(err, db.ErrStateNotFound):
		return fmt.Errorf("load state: %w", err)
	}

	for kind, key := range map[models.DateKind]string{models.DatePickup: KeyPickup, models.DateDropOff: KeyDropOff} {
		raw, err := p.coll.Load(ctx, key)
		if errors.Is(err, db.ErrStateNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
		ts, err := models.ParseTimestamp(string(raw))
		if err != nil {
			p.log.WithError(err).WithField("key", key).Warn("Ignoring stored date")
			continue
		}
		if err := p.store.SetSearchDate(kind, ts.Time); err != nil {
			return err
		}
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
