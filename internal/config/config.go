package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage backends for client state.
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings shared by the CLI and the simulator.
type Config struct {
	APIURL      string
	Storage     string
	StateFile   string
	StateKey    string
	MongoURI    string
	MongoDB     string
	Timeout     time.Duration
	RateLimit   float64
	MQTTBroker  string
	MQTTTopic   string
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		APIURL:      "http://localhost:8000",
		Storage:     StorageFile,
		StateFile:   defaultStateFile(),
		StateKey:    "rentacar",
		MongoURI:    "mongodb://localhost:27017",
		MongoDB:     "rentacar",
		Timeout:     10 * time.Second,
		MQTTTopic:   "rentacar/events",
		LogLevel:    "info",
		LogFormat:   "text",
		MetricsAddr: ":9090",
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".rentacar.json"
	}
	return dir + string(os.PathSeparator) + "rentacar" + string(os.PathSeparator) + "state.json"
}

// Load reads envFile if it exists, then overlays environment variables on
// the defaults. An empty envFile skips the file. Only malformed numbers and
// durations are rejected here; callers run Validate once their own
// overrides are applied.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if v := os.Getenv("RENTACAR_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("RENTACAR_STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("RENTACAR_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("RENTACAR_STATE_KEY"); v != "" {
		cfg.StateKey = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		cfg.MongoDB = v
	}
	if v := os.Getenv("RENTACAR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: RENTACAR_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("RENTACAR_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: RENTACAR_RATE_LIMIT: %v", ErrInvalidConfig, err)
		}
		cfg.RateLimit = rps
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTTBroker = v
	}
	if v := os.Getenv("MQTT_TOPIC"); v != "" {
		cfg.MQTTTopic = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageMemory, StorageMongo:
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger builds a logger writing to out with the configured level and format.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
