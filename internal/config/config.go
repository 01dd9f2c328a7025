package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/effect"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "hookstore.json"

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultMaxRerenders bounds render passes per flush.
	DefaultMaxRerenders = 25

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "hookstore"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HOOKSTORE_"
)

// ConfigFileNames are searched in order by Load.
var ConfigFileNames = []string{ConfigFileName, "hookstore.yaml", "hookstore.yml"}

// Snapshot drivers.
const (
	DriverNone = "none"
	DriverDir  = "dir"
	DriverS3   = "s3"
)

// Config represents the hookstore configuration.
type Config struct {
	// Name identifies the instance in logs and metrics labels.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	Server   ServerConfig   `json:"server" yaml:"server"`
	Render   RenderConfig   `json:"render" yaml:"render"`
	Effect   EffectConfig   `json:"effect" yaml:"effect"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`

	// Counters seeds named counters with initial values.
	Counters map[string]int64 `json:"counters,omitempty" yaml:"counters,omitempty"`

	configPath string
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`

	// ShutdownTimeout is a Go duration string.
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// AllowedOrigins limits WebSocket origins. Empty allows same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// RenderConfig configures the hook host.
type RenderConfig struct {
	MaxRerenders int `json:"maxRerenders,omitempty" yaml:"maxRerenders,omitempty"`
}

// EffectConfig configures dependency-gated effects.
type EffectConfig struct {
	// Comparer is "serialized" or "shallow".
	Comparer string `json:"comparer,omitempty" yaml:"comparer,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// SnapshotConfig configures counter persistence.
type SnapshotConfig struct {
	// Driver is "none", "dir" or "s3".
	Driver string   `json:"driver,omitempty" yaml:"driver,omitempty"`
	Dir    string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	S3     S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config configures the S3 snapshot sink.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name:     "hookstore",
		LogLevel: "info",
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: "5s",
		},
		Render: RenderConfig{
			MaxRerenders: DefaultMaxRerenders,
		},
		Effect: EffectConfig{
			Comparer: "serialized",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: "hookstore",
		},
		Snapshot: SnapshotConfig{
			Driver: DriverNone,
			Dir:    "data",
			Prefix: "counters/",
		},
	}
}

// Load finds the first of ConfigFileNames in dir and loads it.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E141").
		WithDetail("No hookstore.json or hookstore.yaml found in " + dir).
		WithSuggestion("Create hookstore.json or pass --config")
}

// LoadFile loads configuration from a .json, .yaml or .yml file. Missing
// fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML for .yaml/.yml and JSON
// otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "5s"
	}
	if c.Render.MaxRerenders == 0 {
		c.Render.MaxRerenders = DefaultMaxRerenders
	}
	if c.Effect.Comparer == "" {
		c.Effect.Comparer = "serialized"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "hookstore"
	}
	if c.Snapshot.Driver == "" {
		c.Snapshot.Driver = DriverNone
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = "data"
	}
}

// ApplyEnv overrides fields from HOOKSTORE_* variables returned by lookup,
// typically os.LookupEnv. Malformed numbers and booleans return E122.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("E122").WithDetail(EnvPrefix + name + " must be a boolean").Wrap(err)
		}
		*dst = b
		return nil
	}

	str("NAME", &c.Name)
	str("LOG_LEVEL", &c.LogLevel)
	str("HOST", &c.Server.Host)
	str("COMPARER", &c.Effect.Comparer)
	str("SNAPSHOT_DRIVER", &c.Snapshot.Driver)
	str("SNAPSHOT_DIR", &c.Snapshot.Dir)
	str("SNAPSHOT_PREFIX", &c.Snapshot.Prefix)
	str("S3_BUCKET", &c.Snapshot.S3.Bucket)
	str("S3_REGION", &c.Snapshot.S3.Region)
	str("S3_ENDPOINT", &c.Snapshot.S3.Endpoint)

	if v, ok := lookup(EnvPrefix + "PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E122").WithDetail(EnvPrefix + "PORT must be a number").Wrap(err)
		}
		c.Server.Port = port
	}
	if err := boolean("METRICS", &c.Metrics.Enabled); err != nil {
		return err
	}
	if err := boolean("TRACING", &c.Tracing.Enabled); err != nil {
		return err
	}
	return boolean("S3_PATH_STYLE", &c.Snapshot.S3.PathStyle)
}

// ApplyEnvFile applies overrides from a .env file without touching the
// process environment. Variables already set in the process win.
func (c *Config) ApplyEnvFile(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return errors.New("E120").WithDetail("Failed to read " + path).Wrap(err)
	}
	return c.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	})
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Render.MaxRerenders < 1 {
		return errors.New("E122").
			WithDetail("render.maxRerenders must be at least 1")
	}
	if _, ok := effect.ComparerByName(c.Effect.Comparer); !ok {
		return errors.New("E122").
			WithDetail("effect.comparer must be \"serialized\" or \"shallow\", got " + strconv.Quote(c.Effect.Comparer))
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}

	switch c.Snapshot.Driver {
	case DriverNone, DriverDir:
	case DriverS3:
		if c.Snapshot.S3.Bucket == "" {
			return errors.New("E122").
				WithDetail("snapshot.s3.bucket is required for the s3 driver")
		}
	default:
		return errors.New("E122").
			WithDetail("snapshot.driver must be none, dir or s3, got " + strconv.Quote(c.Snapshot.Driver))
	}
	return nil
}

// Address returns host:port for the HTTP server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShutdownTimeout parses Server.ShutdownTimeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 0, errors.New("E122").
			WithDetail("server.shutdownTimeout is not a duration: " + c.Server.ShutdownTimeout)
	}
	return d, nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.New("E122").
			WithDetail("logLevel must be debug, info, warn or error, got " + strconv.Quote(c.LogLevel))
	}
	return level, nil
}

// Comparer returns the configured effect comparer.
func (c *Config) Comparer() effect.Comparer {
	cmp, ok := effect.ComparerByName(c.Effect.Comparer)
	if !ok {
		return effect.Serialized
	}
	return cmp
}
