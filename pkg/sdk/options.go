package shelfscan

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogPath string
	products    []Product

	thresholds   thresholdsConfig
	categoryBias map[string]int

	cacheTTL  time.Duration
	cacheSize int

	redisAddrs    []string
	redisPassword string
	redisPrefix   string

	confirmLimit   int
	uncertainLimit int
	fallbackLimit  int

	logger *zap.Logger
}

type thresholdsConfig struct {
	high, medium, low float64
	set               bool
}

// WithCatalogFile loads the product catalog from a YAML file.
// Exactly one of WithCatalogFile or WithCatalog is required.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithCatalog supplies the product catalog directly.
func WithCatalog(products []Product) Option {
	return optionFunc(func(c *clientConfig) {
		c.products = products
	})
}

// WithThresholds sets the confidence bands in percent.
// Defaults: 75/50/25.
func WithThresholds(high, medium, low float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.thresholds = thresholdsConfig{high: high, medium: medium, low: low, set: true}
	})
}

// WithCategoryBias sets per-category confidence adjustments in the
// [-100, 100] range. Unlisted categories get 0.
func WithCategoryBias(bias map[string]int) Option {
	return optionFunc(func(c *clientConfig) {
		c.categoryBias = bias
	})
}

// WithCacheTTL sets how long a cached evaluation stays valid.
// Default: 5 seconds.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithCacheSize bounds the in-process cache entry count. Default: 50.
// Ignored when WithRedis is set.
func WithCacheSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = n
	})
}

// WithRedis shares the result cache between processes through a Redis or
// Valkey instance instead of caching in-process.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithCacheKeyPrefix namespaces shared cache keys. Default: "shelfscan:".
// Only meaningful together with WithRedis.
func WithCacheKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisPrefix = prefix
	})
}

// WithSuggestionLimits sets the pick-list sizes for confirm, uncertain
// and no-match outcomes. Defaults: 5/8/10.
func WithSuggestionLimits(confirm, uncertain, fallback int) Option {
	return optionFunc(func(c *clientConfig) {
		c.confirmLimit = confirm
		c.uncertainLimit = uncertain
		c.fallbackLimit = fallback
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
