package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults for the public Scalr API.
const (
	DefaultEndpoint = "api.scalr.net"
	DefaultVersion  = "2.0.0"
	DefaultTimeout  = 30 * time.Second
)

// Config holds all client configuration.
type Config struct {
	API      APIConfig    `yaml:"api" toml:"api"`
	Output   OutputConfig `yaml:"output" toml:"output"`
	LogLevel string       `yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// APIConfig holds the endpoint, credentials and transport settings.
type APIConfig struct {
	Endpoint  string        `yaml:"endpoint" toml:"endpoint" validate:"required"`
	KeyID     string        `yaml:"key_id" toml:"key_id" validate:"required"`
	AccessKey string        `yaml:"access_key" toml:"access_key" validate:"required"`
	Version   string        `yaml:"version" toml:"version" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"`
	RateLimit float64       `yaml:"rate_limit" toml:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	Debug     bool          `yaml:"debug" toml:"debug"`
}

// OutputConfig holds failure report destinations.
type OutputConfig struct {
	Format    string `yaml:"format" toml:"format" validate:"oneof=stdout file webhook"`
	File      string `yaml:"file" toml:"file" validate:"required_if=Format file"`
	Webhook   string `yaml:"webhook" toml:"webhook" validate:"required_if=Format webhook,omitempty,url"`
	Verbosity string `yaml:"verbosity" toml:"verbosity" validate:"oneof=minimal standard full"`
	Pretty    bool   `yaml:"pretty" toml:"pretty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		API: APIConfig{
			Endpoint: DefaultEndpoint,
			Version:  DefaultVersion,
			Timeout:  DefaultTimeout,
		},
		Output: OutputConfig{
			Format:    "stdout",
			Verbosity: "standard",
		},
		LogLevel: "info",
	}
}

// Load builds a Config from defaults, then the file at path (if non-empty),
// then SCALR_* environment variables. The file format is chosen by extension:
// .yaml/.yml or .toml. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.API.Endpoint = getenv("SCALR_ENDPOINT", cfg.API.Endpoint)
	cfg.API.KeyID = getenv("SCALR_KEY_ID", cfg.API.KeyID)
	cfg.API.AccessKey = getenv("SCALR_ACCESS_KEY", cfg.API.AccessKey)
	cfg.API.Version = getenv("SCALR_API_VERSION", cfg.API.Version)
	cfg.API.Timeout = getenvDuration("SCALR_TIMEOUT", cfg.API.Timeout)
	cfg.API.RateLimit = getenvFloat("SCALR_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.Debug = getenvBool("SCALR_DEBUG", cfg.API.Debug)

	cfg.Output.Format = getenv("SCALR_OUTPUT", cfg.Output.Format)
	cfg.Output.File = getenv("SCALR_OUTPUT_FILE", cfg.Output.File)
	cfg.Output.Webhook = getenv("SCALR_WEBHOOK_URL", cfg.Output.Webhook)
	cfg.Output.Verbosity = getenv("SCALR_VERBOSITY", cfg.Output.Verbosity)
	cfg.Output.Pretty = getenvBool("SCALR_OUTPUT_PRETTY", cfg.Output.Pretty)

	cfg.LogLevel = getenv("SCALR_LOG_LEVEL", cfg.LogLevel)
}

// Validate checks the whole configuration, including credentials.
func (c Config) Validate() error {
	return describe(validate.Struct(c))
}

// ValidateOutput checks everything except the API credentials, for commands
// that never reach the service.
func (c Config) ValidateOutput() error {
	return describe(validate.StructExcept(c, "API"))
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
