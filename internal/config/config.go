// Package config provides configuration management for the s1prep pipeline.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Preprocess PreprocessConfig
	Acquire    AcquireConfig
	ASF        ASFConfig     `envPrefix:"ASF_"`
	SNAP       SNAPConfig    `envPrefix:"SNAP_"`
	Server     ServerConfig  `envPrefix:"SERVER_"`
	Logging    LoggingConfig `envPrefix:"LOG_"`
}

// PreprocessConfig contains the batch preprocessing parameters.
// The variable names match the historical parameter mapping.
type PreprocessConfig struct {
	InputPath  string `env:"INPUT_PATH"`
	OutputPath string `env:"OUTPUT_PATH"`
	Projection string `env:"PROJ"`

	// Pause is the backoff between pairs, giving the engine time to release native memory.
	Pause         time.Duration `env:"PAUSE" envDefault:"30s"`
	ValidatePairs bool          `env:"VALIDATE_PAIRS" envDefault:"true"`
	SkipExisting  bool          `env:"SKIP_EXISTING" envDefault:"false"`
	SubsetWKT     string        `env:"SUBSET_WKT"`
	SubsetRegion  string        `env:"SUBSET_REGION"` // x,y,width,height; ignored when SUBSET_WKT is set
	DEMName       string        `env:"DEM_NAME" envDefault:"SRTM 3Sec"`
}

// AcquireConfig contains the scene query and download parameters.
type AcquireConfig struct {
	Footprint   string `env:"FOOTPRINT"`
	StartDate   string `env:"START_DATE"`
	EndDate     string `env:"END_DATE"`
	ProductType string `env:"PRODUCT_TYPE" envDefault:"GRD"`
	SaveDir     string `env:"SAVE_DIR"`
	Concurrency int    `env:"DOWNLOAD_CONCURRENCY" envDefault:"2"`

	// Search filters. The defaults match the dual-pol IW scenes the calibration step expects.
	Platform        []string `env:"PLATFORM"` // e.g. "Sentinel-1A"; empty means any
	BeamMode        []string `env:"BEAM_MODE" envDefault:"IW"`
	Polarization    []string `env:"POLARIZATION" envDefault:"VV+VH"`
	FlightDirection string   `env:"FLIGHT_DIRECTION"` // ASCENDING or DESCENDING
	RelativeOrbit   []int    `env:"RELATIVE_ORBIT"`
	MaxResults      int      `env:"MAX_RESULTS"` // zero leaves the ASF default

	// Credentials are only ever read from the environment.
	Username string `env:"EARTHDATA_USERNAME"`
	Password string `env:"EARTHDATA_PASSWORD"`
	Token    string `env:"EARTHDATA_TOKEN"`
}

// ASFConfig contains ASF API client configuration.
type ASFConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.daac.asf.alaska.edu"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// LoginHost is the only host that receives basic auth during download redirects.
	LoginHost string `env:"LOGIN_HOST" envDefault:"urs.earthdata.nasa.gov"`
}

// SNAPConfig configures the gpt executable.
type SNAPConfig struct {
	GPTPath     string        `env:"GPT_PATH" envDefault:"gpt"`
	CacheSize   string        `env:"CACHE_SIZE"` // e.g. "8G"; empty keeps the SNAP default
	Parallelism int           `env:"PARALLELISM"`
	Timeout     time.Duration `env:"TIMEOUT"` // zero means no limit
}

// ServerConfig contains HTTP server configuration for the output catalog.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// Stage-specific requirements are checked by ValidateAcquire and ValidateServer;
// INPUT_PATH and OUTPUT_PATH are checked by the batch driver itself.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings shared by every subcommand.
func (c *Config) Validate() error {
	if c.ASF.BaseURL == "" {
		return fmt.Errorf("ASF base URL is required")
	}

	if c.ASF.Timeout <= 0 {
		return fmt.Errorf("ASF timeout must be positive, got %s", c.ASF.Timeout)
	}

	if c.ASF.LoginHost == "" {
		return fmt.Errorf("Earthdata login host is required")
	}

	if c.SNAP.GPTPath == "" {
		return fmt.Errorf("SNAP gpt path is required")
	}

	if c.SNAP.Parallelism < 0 {
		return fmt.Errorf("SNAP parallelism must not be negative, got %d", c.SNAP.Parallelism)
	}

	if c.SNAP.Timeout < 0 {
		return fmt.Errorf("SNAP timeout must not be negative, got %s", c.SNAP.Timeout)
	}

	if c.Preprocess.Pause < 0 {
		return fmt.Errorf("pause must not be negative, got %s", c.Preprocess.Pause)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// ValidateServer checks the HTTP server settings.
func (c *Config) ValidateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Preprocess.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required to serve the output catalog")
	}

	return nil
}

// ValidateAcquire checks that the download stage has everything it needs.
func (c *Config) ValidateAcquire() error {
	a := c.Acquire
	if a.Footprint == "" {
		return fmt.Errorf("FOOTPRINT is required")
	}

	if a.StartDate == "" || a.EndDate == "" {
		return fmt.Errorf("START_DATE and END_DATE are required")
	}

	if a.ProductType != "GRD" && a.ProductType != "SLC" {
		return fmt.Errorf("product type must be 'GRD' or 'SLC', got %q", a.ProductType)
	}

	if a.SaveDir == "" {
		return fmt.Errorf("SAVE_DIR is required")
	}

	if a.Concurrency < 1 {
		return fmt.Errorf("download concurrency must be at least 1, got %d", a.Concurrency)
	}

	switch a.FlightDirection {
	case "", "ASCENDING", "DESCENDING":
	default:
		return fmt.Errorf("flight direction must be 'ASCENDING' or 'DESCENDING', got %q", a.FlightDirection)
	}

	if a.MaxResults < 0 {
		return fmt.Errorf("max results must not be negative, got %d", a.MaxResults)
	}

	if a.Token == "" && (a.Username == "" || a.Password == "") {
		return fmt.Errorf("EARTHDATA_TOKEN or EARTHDATA_USERNAME/EARTHDATA_PASSWORD must be set")
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
