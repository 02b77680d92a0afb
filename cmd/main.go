package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/rentacar/internal/api"
	"github.com/ukydev/rentacar/internal/config"
	"github.com/ukydev/rentacar/internal/db"
	"github.com/ukydev/rentacar/internal/events"
	"github.com/ukydev/rentacar/internal/store"
)

// app is the state shared by every subcommand of one run.
type app struct {
	envFile   string
	apiURL    string
	storage   string
	stateFile string

	cfg       *config.Config
	log       *logrus.Logger
	store     *store.Store
	persister *store.Persister
	closers   []func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rentacar",
		Short:         "Browse and book rental vehicles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsState(cmd) {
				return nil
			}
			return a.open(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load, empty to skip")
	flags.StringVar(&a.apiURL, "api", "", "backend base URL (overrides RENTACAR_API_URL)")
	flags.StringVar(&a.storage, "storage", "", "state storage: file, memory or mongo")
	flags.StringVar(&a.stateFile, "state-file", "", "state file for file storage")

	root.AddCommand(
		a.vehiclesCmd(),
		a.locationsCmd(),
		a.vehicleCmd(),
		a.searchCmd(),
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.reserveCmd(),
		a.whoamiCmd(),
	)
	return root
}

// needsState reports whether cmd runs against the store. The built-in help
// and completion commands do not, and never reach run to release resources.
func needsState(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// open loads configuration, resumes the saved state and connects the
// optional event publisher.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.storage != "" {
		cfg.Storage = a.storage
	}
	if a.stateFile != "" {
		cfg.StateFile = a.stateFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = cfg.NewLogger(cmd.ErrOrStderr())

	ctx := commandContext(cmd)
	coll, err := a.openCollection(ctx)
	if err != nil {
		return err
	}

	opts := []api.Option{api.WithLogger(a.log), api.WithTimeout(cfg.Timeout)}
	if cfg.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(cfg.RateLimit, 1))
	}
	client := api.New(cfg.APIURL, opts...)

	a.store = store.New(client,
		store.WithLogger(a.log),
		store.WithNavigator(store.LogNavigator{Log: a.log}),
	)
	a.persister = store.NewPersister(a.store, coll, cfg.StateKey, a.log)
	if err := a.persister.Resume(ctx); err != nil {
		a.close()
		return fmt.Errorf("resume state: %w", err)
	}

	if cfg.MQTTBroker != "" {
		a.startEvents()
	}
	return nil
}

func (a *app) openCollection(ctx context.Context) (db.StateCollection, error) {
	switch a.cfg.Storage {
	case config.StorageMemory:
		return db.NewMemoryCollection(), nil
	case config.StorageMongo:
		client, err := db.ConnectMongo(ctx, a.cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				a.log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		})
		return &db.MongoCollection{Collection: client.Database(a.cfg.MongoDB).Collection("client_state")}, nil
	default:
		return db.NewFileCollection(a.cfg.StateFile), nil
	}
}

// startEvents publishes store mutations to MQTT. A broker that cannot be
// reached is logged and skipped.
func (a *app) startEvents() {
	publisher, err := events.Connect(a.cfg.MQTTBroker, "rentacar-cli-"+uuid.NewString(), a.cfg.MQTTTopic, a.log)
	if err != nil {
		a.log.WithError(err).Warn("Event publishing disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		publisher.Run(ctx)
	}()
	detach := events.Bridge(a.store, publisher)
	a.closers = append(a.closers, func() {
		detach()
		cancel()
		<-done
		publisher.Close()
	})
}

// run wraps a subcommand so that the state is saved whatever its outcome.
func (a *app) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		err := fn(ctx, cmd, args)
		if perr := a.persister.Persist(ctx); perr != nil {
			a.log.WithError(perr).Error("Failed to save state")
			if err == nil {
				err = perr
			}
		}
		a.close()
		return err
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
