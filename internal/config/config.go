package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Capacity    int           `yaml:"capacity" validate:"gte=1,lte=4294967295"`
	Threshold   float64       `yaml:"threshold" validate:"gte=0,lte=1"`
	Policy      string        `yaml:"policy" validate:"oneof=sum max"`
	StatsPeriod time.Duration `yaml:"stats_period" validate:"gt=0"`
	StatsFile   string        `yaml:"stats_file"`
	NodeTag     string        `yaml:"node_tag" validate:"required,max=64"`

	Addr            string   `yaml:"addr" validate:"required"`
	GRPCPort        int      `yaml:"grpc_port" validate:"gte=0,lte=65535"`
	PubSubURL       string   `yaml:"pubsub_url"`
	DBPath          string   `yaml:"db_path"`
	TokenHash       string   `yaml:"token_hash"`
	ReportRateLimit int      `yaml:"report_rate_limit" validate:"gte=0"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	Debug           bool     `yaml:"debug"`

	// File is the YAML file the values were read from, if any.
	File string `yaml:"-"`
}

var validate = validator.New()

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Capacity:    5000,
		Threshold:   0.2,
		Policy:      string(domain.AggregateSum),
		StatsPeriod: 10 * time.Second,
		StatsFile:   "cc-stats.txt",
		NodeTag:     "CC",
		Addr:        ":8080",
		GRPCPort:    9000,
		PubSubURL:   "tcp://127.0.0.1:9100",
		DBPath:      getDefaultDBPath(),
	}
}

// Load builds the configuration from defaults, FLOODCTL_* environment
// variables, an optional YAML file and finally command line flags.
// Flags take precedence over everything else.
func Load(name string, args []string) (*Config, error) {
	cfg := Default()
	applyEnv(cfg)

	// Flags are parsed into a scratch copy so that only the ones actually
	// given on the command line override the file.
	flagged := *cfg
	var origins string
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", getEnv("FLOODCTL_CONFIG", ""), "Path to a YAML configuration file")
	fs.IntVar(&flagged.Capacity, "capacity", flagged.Capacity, "Interest table capacity used to normalize timeouts")
	fs.Float64Var(&flagged.Threshold, "threshold", flagged.Threshold, "Fraction of capacity above which a name is malicious")
	fs.StringVar(&flagged.Policy, "policy", flagged.Policy, "Aggregation policy across monitors (sum|max)")
	fs.DurationVar(&flagged.StatsPeriod, "stats-period", flagged.StatsPeriod, "Statistics emission period")
	fs.StringVar(&flagged.StatsFile, "stats-file", flagged.StatsFile, "Statistics output file (empty to disable)")
	fs.StringVar(&flagged.NodeTag, "node", flagged.NodeTag, "Node tag written in statistics rows")
	fs.StringVar(&flagged.Addr, "addr", flagged.Addr, "HTTP server address")
	fs.IntVar(&flagged.GRPCPort, "grpc", flagged.GRPCPort, "gRPC Server Port (0 to disable)")
	fs.StringVar(&flagged.PubSubURL, "pubsub", flagged.PubSubURL, "Verdict publisher listen URL (empty to disable)")
	fs.StringVar(&flagged.DBPath, "db", flagged.DBPath, "Path to SQLite verdict history (empty to disable)")
	fs.StringVar(&flagged.TokenHash, "token-hash", flagged.TokenHash, "bcrypt hash of the API bearer token")
	fs.IntVar(&flagged.ReportRateLimit, "report-rate", flagged.ReportRateLimit, "HTTP reports per client and minute (0 for unlimited)")
	fs.StringVar(&origins, "origins", strings.Join(flagged.AllowedOrigins, ","), "Allowed WebSocket origins (comma separated)")
	fs.BoolVar(&flagged.Debug, "debug", flagged.Debug, "Enable verbose debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "capacity":
			cfg.Capacity = flagged.Capacity
		case "threshold":
			cfg.Threshold = flagged.Threshold
		case "policy":
			cfg.Policy = flagged.Policy
		case "stats-period":
			cfg.StatsPeriod = flagged.StatsPeriod
		case "stats-file":
			cfg.StatsFile = flagged.StatsFile
		case "node":
			cfg.NodeTag = flagged.NodeTag
		case "addr":
			cfg.Addr = flagged.Addr
		case "grpc":
			cfg.GRPCPort = flagged.GRPCPort
		case "pubsub":
			cfg.PubSubURL = flagged.PubSubURL
		case "db":
			cfg.DBPath = flagged.DBPath
		case "token-hash":
			cfg.TokenHash = flagged.TokenHash
		case "report-rate":
			cfg.ReportRateLimit = flagged.ReportRateLimit
		case "origins":
			cfg.AllowedOrigins = parseList(origins)
		case "debug":
			cfg.Debug = flagged.Debug
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

// Validate checks every field and reports the first offending one as a
// domain.ConfigError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return domain.NewConfigError(fieldKey(fe.Field()), causeFor(fe))
}

// Detection returns the detection parameters.
func (c *Config) Detection() domain.DetectionConfig {
	return domain.DetectionConfig{
		Capacity:  uint32(c.Capacity),
		Threshold: c.Threshold,
		Policy:    domain.AggregationPolicy(c.Policy),
	}
}

func causeFor(fe validator.FieldError) error {
	switch fe.Field() {
	case "Capacity":
		return domain.ErrInvalidCapacity
	case "Threshold":
		return domain.ErrInvalidThreshold
	case "Policy":
		return domain.ErrInvalidPolicy
	case "StatsPeriod":
		return domain.ErrInvalidPeriod
	}
	return fmt.Errorf("failed %q check (value %v)", fe.Tag(), fe.Value())
}

func fieldKey(field string) string {
	switch field {
	case "StatsPeriod":
		return "stats_period"
	case "NodeTag":
		return "node_tag"
	case "GRPCPort":
		return "grpc_port"
	case "ReportRateLimit":
		return "report_rate_limit"
	}
	return strings.ToLower(field)
}

func applyEnv(cfg *Config) {
	cfg.Capacity = getEnvInt("FLOODCTL_CAPACITY", cfg.Capacity)
	cfg.Threshold = getEnvFloat("FLOODCTL_THRESHOLD", cfg.Threshold)
	cfg.Policy = getEnv("FLOODCTL_POLICY", cfg.Policy)
	cfg.StatsPeriod = getEnvDuration("FLOODCTL_STATS_PERIOD", cfg.StatsPeriod)
	cfg.StatsFile = getEnv("FLOODCTL_STATS_FILE", cfg.StatsFile)
	cfg.NodeTag = getEnv("FLOODCTL_NODE", cfg.NodeTag)
	cfg.Addr = getEnv("FLOODCTL_ADDR", cfg.Addr)
	cfg.GRPCPort = getEnvInt("FLOODCTL_GRPC", cfg.GRPCPort)
	cfg.PubSubURL = getEnv("FLOODCTL_PUBSUB", cfg.PubSubURL)
	cfg.DBPath = getEnv("FLOODCTL_DB", cfg.DBPath)
	cfg.TokenHash = getEnv("FLOODCTL_TOKEN_HASH", cfg.TokenHash)
	cfg.ReportRateLimit = getEnvInt("FLOODCTL_REPORT_RATE", cfg.ReportRateLimit)
	if v, ok := os.LookupEnv("FLOODCTL_ORIGINS"); ok {
		cfg.AllowedOrigins = parseList(v)
	}
	cfg.Debug = getEnvBool("FLOODCTL_DEBUG", cfg.Debug)
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "floodctl.db"
	}

	dir := filepath.Join(home, ".floodctl")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .floodctl directory, using current dir: %v", err)
		return "floodctl.db"
	}

	return filepath.Join(dir, "floodctl.db")
}
