package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kiosklabs/shelfscan/internal/domain"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
)

// Config holds the shelfscan API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Detector DetectorConfig `yaml:"detector"`
	Engine   EngineConfig   `yaml:"engine"`
	Cache    CacheConfig    `yaml:"cache"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DetectorConfig holds upstream detection model settings.
type DetectorConfig struct {
	BaseURL    string `yaml:"base_url"`
	ModelID    string `yaml:"model_id"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxRetries int    `yaml:"max_retries"`
	// Overlap is the IoU percentage the model uses for non-max suppression.
	Overlap int `yaml:"overlap"`
}

// EngineConfig holds decision engine settings, fixed at process start.
type EngineConfig struct {
	Thresholds decision.Thresholds `yaml:"thresholds"`
	// CategoryBias maps a product category to an integer confidence bias.
	// Unknown categories get 0.
	CategoryBias map[string]int    `yaml:"category_bias"`
	Suggestions  SuggestionsConfig `yaml:"suggestions"`
}

// SuggestionsConfig holds suggestion list size defaults.
type SuggestionsConfig struct {
	ConfirmLimit   int `yaml:"confirm_limit"`   // medium-confidence confirm
	UncertainLimit int `yaml:"uncertain_limit"` // low-confidence confirm
	FallbackLimit  int `yaml:"fallback_limit"`  // no-match manual entry
}

// CacheConfig holds decision cache settings.
type CacheConfig struct {
	Driver     string   `yaml:"driver"` // memory, redis (default: memory)
	TTLSec     int      `yaml:"ttl_sec"`
	MaxEntries int      `yaml:"max_entries"`
	Addrs      []string `yaml:"addrs"`
	Password   string   `yaml:"password"`
	KeyPrefix  string   `yaml:"key_prefix"`
}

// CatalogConfig holds product catalog settings.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Detector.TimeoutSec <= 0 {
		c.Detector.TimeoutSec = 30
	}
	if c.Detector.MaxRetries <= 0 {
		c.Detector.MaxRetries = 2
	}
	if c.Detector.Overlap <= 0 {
		c.Detector.Overlap = 45
	}
	if c.Engine.Thresholds == (decision.Thresholds{}) {
		c.Engine.Thresholds = decision.Thresholds{High: 75, Medium: 50, Low: 25}
	}
	if c.Engine.Suggestions.ConfirmLimit <= 0 {
		c.Engine.Suggestions.ConfirmLimit = 5
	}
	if c.Engine.Suggestions.UncertainLimit <= 0 {
		c.Engine.Suggestions.UncertainLimit = 8
	}
	if c.Engine.Suggestions.FallbackLimit <= 0 {
		c.Engine.Suggestions.FallbackLimit = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 5
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 50
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "shelfscan:"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join("config", "products.yaml")
	}
}

// Validate checks the configuration for correctness. Any violation here is
// the spec's InvalidConfiguration case: the process refuses to start.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port must be between 1 and 65535, got %d",
			domain.ErrInvalidConfiguration, c.HTTP.Port)
	}
	if c.Detector.BaseURL == "" {
		return fmt.Errorf("%w: detector.base_url is required", domain.ErrInvalidConfiguration)
	}
	if err := c.Engine.Thresholds.Validate(); err != nil {
		return err
	}
	for category, bias := range c.Engine.CategoryBias {
		if bias < -100 || bias > 100 {
			return fmt.Errorf("%w: engine.category_bias.%s is %d, must be within [-100, 100]",
				domain.ErrInvalidConfiguration, category, bias)
		}
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("%w: cache.addrs is required for the redis driver",
				domain.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: cache.driver must be \"memory\" or \"redis\", got %q",
			domain.ErrInvalidConfiguration, c.Cache.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
