package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/rentacar/internal/api"
	"github.com/ukydev/rentacar/internal/auth"
	"github.com/ukydev/rentacar/internal/config"
	"github.com/ukydev/rentacar/internal/fakeapi"
	"github.com/ukydev/rentacar/internal/metrics"
	"github.com/ukydev/rentacar/internal/models"
	"github.com/ukydev/rentacar/internal/store"
)

// SimConfig controls the size and pace of a simulation.
type SimConfig struct {
	Customers int
	FleetSize int
	Interval  time.Duration
	Rounds    int // 0 runs until cancelled
}

func simConfigFromEnv() SimConfig {
	cfg := SimConfig{Customers: 5, FleetSize: 20, Interval: 2 * time.Second}
	if val := os.Getenv("SIM_CUSTOMERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Customers = n
		}
	}
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.FleetSize = n
		}
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.Interval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SIM_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Rounds = n
		}
	}
	return cfg
}

// Stats counts what the customers achieved.
type Stats struct {
	Reservations atomic.Int64
	Conflicts    atomic.Int64
	NoMatch      atomic.Int64
	Failures     atomic.Int64
}

// Customer browses and books through its own store, like one user of the app.
type Customer struct {
	Email    string
	Password string
	store    *store.Store
	rng      *rand.Rand
	log      log.FieldLogger
	stats    *Stats
	// registered is set once the account exists on the backend.
	registered bool
}

func newCustomer(n int, client store.API, seed int64, stats *Stats, logger log.FieldLogger) *Customer {
	email := fmt.Sprintf("customer-%d-%s@sim.example.com", n, uuid.NewString()[:8])
	clog := logger.WithField("customer", email)
	return &Customer{
		Email:    email,
		Password: "password-" + strconv.Itoa(n) + "-sim",
		store:    store.New(client, store.WithLogger(clog), store.WithNavigator(store.LogNavigator{Log: clog})),
		rng:      rand.New(rand.NewSource(seed)),
		log:      clog,
		stats:    stats,
	}
}

// Step runs one visit: refresh the catalogue, search a random location and
// period, log in if needed and book one of the matches.
func (c *Customer) Step(ctx context.Context, now time.Time) error {
	if err := c.store.FetchLocations(ctx); err != nil {
		return fmt.Errorf("fetch locations: %w", err)
	}
	if err := c.store.FetchVehicles(ctx); err != nil {
		return fmt.Errorf("fetch vehicles: %w", err)
	}
	locations := c.store.Locations()
	if len(locations) == 0 {
		c.stats.NoMatch.Add(1)
		return nil
	}

	location := locations[c.rng.Intn(len(locations))]
	pickup := now.Truncate(24 * time.Hour).Add(time.Duration(1+c.rng.Intn(30)) * 24 * time.Hour)
	dropoff := pickup.Add(time.Duration(1+c.rng.Intn(5)) * 24 * time.Hour)
	c.store.SetLocation(location.ID)
	if err := c.store.SetSearchDate(models.DatePickup, pickup); err != nil {
		return err
	}
	if err := c.store.SetSearchDate(models.DateDropOff, dropoff); err != nil {
		return err
	}

	matches := c.store.FilterVehiclesLocally()
	if len(matches) == 0 {
		c.stats.NoMatch.Add(1)
		c.log.WithField("location", location.Name).Debug("No vehicle available")
		return nil
	}

	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	vehicle := matches[c.rng.Intn(len(matches))]
	c.store.SelectVehicle(vehicle.Slug)
	err := c.store.MakeReservation(ctx, models.ReservationRequest{
		VehicleID:  vehicle.ID,
		LocationID: location.ID,
		Pickup:     models.Timestamp{Time: pickup},
		DropOff:    models.Timestamp{Time: dropoff},
	})
	var statusErr *api.StatusError
	switch {
	case err == nil:
		c.stats.Reservations.Add(1)
		c.log.WithFields(log.Fields{
			"vehicle":  vehicle.Slug,
			"location": location.Name,
			"pickup":   pickup.Format("2006-01-02"),
			"days":     int(dropoff.Sub(pickup).Hours() / 24),
		}).Info("Booked vehicle")
		return nil
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict:
		// another customer took it since the catalogue was fetched
		c.stats.Conflicts.Add(1)
		return nil
	default:
		return fmt.Errorf("reserve %s: %w", vehicle.Slug, err)
	}
}

func (c *Customer) ensureSession(ctx context.Context) error {
	if c.store.IsAuthenticated() {
		return nil
	}
	if !c.registered {
		err := c.store.RegisterUser(ctx, models.RegisterRequest{
			Name:                 "Simulated " + c.Email,
			Email:                c.Email,
			Password:             c.Password,
			PasswordConfirmation: c.Password,
		})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		c.registered = true
	}
	if err := c.store.Login(ctx, models.LoginRequest{Email: c.Email, Password: c.Password}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func simulateCustomer(ctx context.Context, c *Customer, cfg SimConfig) {
	tick := time.NewTicker(cfg.Interval)
	defer tick.Stop()
	for round := 0; cfg.Rounds == 0 || round < cfg.Rounds; round++ {
		if err := c.Step(ctx, time.Now()); err != nil {
			c.stats.Failures.Add(1)
			c.log.WithError(err).Warn("Visit failed")
		}
		if cfg.Rounds != 0 && round == cfg.Rounds-1 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// runSimulation starts cfg.Customers customers against apiURL and waits for
// them to finish.
func runSimulation(ctx context.Context, apiURL string, cfg SimConfig, recorder metrics.Recorder, logger log.FieldLogger) *Stats {
	stats := &Stats{}
	client := api.New(apiURL, api.WithLogger(logger), api.WithMetrics(recorder))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Customers; i++ {
		c := newCustomer(i+1, client, time.Now().UnixNano()+int64(i), stats, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			simulateCustomer(ctx, c, cfg)
		}()
	}
	wg.Wait()
	return stats
}

// startEmbeddedBackend serves a random catalogue in-process.
func startEmbeddedBackend(fleetSize int, logger log.FieldLogger) (*httptest.Server, error) {
	svc, err := auth.NewService()
	if err != nil {
		return nil, err
	}
	backend := fakeapi.New(svc, logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backend.Seed(fakeapi.Catalogue(rng, fleetSize, time.Now()))
	return httptest.NewServer(backend.Handler()), nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	srv := &http.Server{Addr: addr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	return srv
}

func newRootCmd() *cobra.Command {
	var (
		embedded bool
		envFile  string
	)
	cmd := &cobra.Command{
		Use:          "simulator",
		Short:        "Simulate customers browsing and booking vehicles",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := cfg.NewLogger(cmd.ErrOrStderr())
			sim := simConfigFromEnv()

			apiURL := cfg.APIURL
			if embedded {
				srv, err := startEmbeddedBackend(sim.FleetSize, logger)
				if err != nil {
					return err
				}
				defer srv.Close()
				apiURL = srv.URL
			}

			reg := prometheus.NewRegistry()
			collector := metrics.NewCollector(reg)
			metricsSrv := serveMetrics(cfg.MetricsAddr, reg)
			defer metricsSrv.Close()

			logger.WithFields(log.Fields{
				"customers":    sim.Customers,
				"api_url":      apiURL,
				"interval":     sim.Interval,
				"rounds":       sim.Rounds,
				"metrics_addr": cfg.MetricsAddr,
			}).Info("Starting customer simulation")

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			stats := runSimulation(ctx, apiURL, sim, collector, logger)

			logger.WithFields(log.Fields{
				"reservations": stats.Reservations.Load(),
				"conflicts":    stats.Conflicts.Load(),
				"no_match":     stats.NoMatch.Load(),
				"failures":     stats.Failures.Load(),
			}).Info("Simulation finished")
			return nil
		},
	}
	cmd.Flags().BoolVar(&embedded, "embedded", false, "serve a random catalogue in-process instead of calling RENTACAR_API_URL")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load, empty to skip")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("Simulation failed")
		stop()
		os.Exit(1)
	}
}
