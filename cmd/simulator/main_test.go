package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/api"
	"github.com/ukydev/rentacar/internal/auth"
	"github.com/ukydev/rentacar/internal/fakeapi"
	"github.com/ukydev/rentacar/internal/metrics"
	"github.com/ukydev/rentacar/internal/models"
)

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func singleVehicleBackend(t *testing.T) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	svc, err := auth.NewService()
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	backend := fakeapi.New(svc, quietLogger())
	depot := models.Location{ID: 1, Name: "Depot"}
	backend.Seed([]models.Vehicle{{ID: 1, Slug: "only-car", Locations: []models.Location{depot}}}, []models.Location{depot})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv
}

func TestSimConfigFromEnv(t *testing.T) {
	t.Setenv("SIM_CUSTOMERS", "3")
	t.Setenv("FLEET_SIZE", "7")
	t.Setenv("SIM_TICK_SECONDS", "4")
	t.Setenv("SIM_ROUNDS", "2")

	cfg := simConfigFromEnv()
	if cfg.Customers != 3 || cfg.FleetSize != 7 || cfg.Rounds != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Interval != 4*time.Second {
		t.Errorf("Expected interval 4s, got %v", cfg.Interval)
	}
}

func TestSimConfigFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("SIM_CUSTOMERS", "-1")
	t.Setenv("FLEET_SIZE", "many")
	t.Setenv("SIM_TICK_SECONDS", "0")
	t.Setenv("SIM_ROUNDS", "")

	cfg := simConfigFromEnv()
	if cfg.Customers != 5 || cfg.FleetSize != 20 || cfg.Interval != 2*time.Second || cfg.Rounds != 0 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestCustomer_Step(t *testing.T) {
	backend, srv := singleVehicleBackend(t)
	stats := &Stats{}
	c := newCustomer(1, api.New(srv.URL), 1, stats, quietLogger())
	now := time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)

	if err := c.Step(context.Background(), now); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if !c.store.IsAuthenticated() {
		t.Error("Expected customer to be logged in")
	}
	if got := stats.Reservations.Load(); got != 1 {
		t.Errorf("Expected 1 reservation, got %d", got)
	}
	if got := len(backend.Reservations()); got != 1 {
		t.Errorf("Expected backend to hold 1 reservation, got %d", got)
	}
	if v, ok := c.store.CurrentVehicle(); !ok || v.Slug != "only-car" {
		t.Errorf("Expected only-car to be selected, got %+v", v)
	}
}

func TestCustomer_StepReusesSession(t *testing.T) {
	_, srv := singleVehicleBackend(t)
	c := newCustomer(1, api.New(srv.URL), 1, &Stats{}, quietLogger())
	now := time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := c.Step(context.Background(), now.Add(time.Duration(i)*60*24*time.Hour)); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}
	if !c.registered {
		t.Error("Expected customer to be registered")
	}
}

func TestCustomer_StepNoLocations(t *testing.T) {
	svc, _ := auth.NewService()
	srv := httptest.NewServer(fakeapi.New(svc, quietLogger()).Handler())
	defer srv.Close()

	stats := &Stats{}
	c := newCustomer(1, api.New(srv.URL), 1, stats, quietLogger())
	if err := c.Step(context.Background(), time.Now()); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if stats.NoMatch.Load() != 1 {
		t.Errorf("Expected a no-match visit, got %d", stats.NoMatch.Load())
	}
	if c.store.IsAuthenticated() {
		t.Error("Customer should not log in without a match")
	}
}

func TestCustomer_StepBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newCustomer(1, api.New(srv.URL), 1, &Stats{}, quietLogger())
	err := c.Step(context.Background(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "fetch locations") {
		t.Errorf("Expected fetch locations error, got %v", err)
	}
}

func TestRunSimulation(t *testing.T) {
	srv, err := startEmbeddedBackend(10, quietLogger())
	if err != nil {
		t.Fatalf("embedded backend: %v", err)
	}
	defer srv.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	cfg := SimConfig{Customers: 3, Interval: 10 * time.Millisecond, Rounds: 2}

	stats := runSimulation(context.Background(), srv.URL, cfg, collector, quietLogger())

	visits := stats.Reservations.Load() + stats.Conflicts.Load() + stats.NoMatch.Load() + stats.Failures.Load()
	if visits != 6 {
		t.Errorf("Expected 6 visits, got %d", visits)
	}
	if stats.Failures.Load() != 0 {
		t.Errorf("Expected no failures, got %d", stats.Failures.Load())
	}
	count, err := testutil.GatherAndCount(reg, "rentacar_api_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count == 0 {
		t.Error("Expected API calls to be recorded")
	}
}

func TestRunSimulation_Cancelled(t *testing.T) {
	_, srv := singleVehicleBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		runSimulation(ctx, srv.URL, SimConfig{Customers: 2, Interval: time.Hour}, metrics.Nop{}, quietLogger())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not stop after cancel")
	}
}
