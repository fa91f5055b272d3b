package shelfscan

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/db"
	dbRedis "github.com/kiosklabs/shelfscan/internal/db/redis"
	domcatalog "github.com/kiosklabs/shelfscan/internal/domain/catalog"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/scoring"
	logpkg "github.com/kiosklabs/shelfscan/internal/logger"
	catalogrepo "github.com/kiosklabs/shelfscan/internal/repository/catalog"
	"github.com/kiosklabs/shelfscan/internal/repository/decisioncache"
	evaluateuc "github.com/kiosklabs/shelfscan/internal/usecase/evaluate"
	statsuc "github.com/kiosklabs/shelfscan/internal/usecase/stats"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the embedded decision engine entry point.
type Client struct {
	engine  *evaluateuc.Service
	catalog *catalogrepo.Repo
	stats   *statsuc.Service
	store   db.Store
	logger  *zap.Logger
}

// New creates a Client. The provided context is used only for the shared
// cache readiness check when WithRedis is set.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheTTL:       5 * time.Second,
		cacheSize:      50,
		redisPrefix:    "shelfscan:",
		confirmLimit:   5,
		uncertainLimit: 8,
		fallbackLimit:  10,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if !cfg.thresholds.set {
		cfg.thresholds = thresholdsConfig{high: 75, medium: 50, low: 25}
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	thresholds := decision.Thresholds{
		High:   cfg.thresholds.high,
		Medium: cfg.thresholds.medium,
		Low:    cfg.thresholds.low,
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("shelfscan: %w", err)
	}

	var store db.Store
	var cache evaluateuc.DecisionCache
	if len(cfg.redisAddrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("shelfscan: create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("shelfscan: cache store not ready: %w", err)
		}
		cache = decisioncache.NewShared(store, cfg.redisPrefix, cfg.cacheTTL, nil, logger)
	} else {
		cache = decisioncache.NewMemory(cfg.cacheTTL, cfg.cacheSize, nil)
	}

	stats := statsuc.New()
	engine := evaluateuc.New(
		catalog,
		cache,
		stats,
		scoring.NewAdjuster(cfg.categoryBias),
		thresholds,
		evaluateuc.SuggestionLimits{
			Confirm:   cfg.confirmLimit,
			Uncertain: cfg.uncertainLimit,
			Fallback:  cfg.fallbackLimit,
		},
	)

	return &Client{
		engine:  engine,
		catalog: catalog,
		stats:   stats,
		store:   store,
		logger:  logger,
	}, nil
}

func buildCatalog(cfg *clientConfig) (*catalogrepo.Repo, error) {
	if cfg.catalogPath != "" && len(cfg.products) > 0 {
		return nil, errors.New("shelfscan: WithCatalogFile and WithCatalog are mutually exclusive")
	}
	if cfg.catalogPath != "" {
		repo, err := catalogrepo.Load(cfg.catalogPath)
		if err != nil {
			return nil, fmt.Errorf("shelfscan: %w", err)
		}
		return repo, nil
	}
	if len(cfg.products) == 0 {
		return nil, errors.New("shelfscan: catalog required (use WithCatalogFile or WithCatalog)")
	}

	entries := make([]domcatalog.Entry, len(cfg.products))
	for i, p := range cfg.products {
		entries[i] = domcatalog.NewEntry(
			p.Class, p.Name, p.Barcode, p.Price,
			p.Category, p.Brand, p.Unit, p.Weight, p.Stock,
		)
	}
	repo, err := catalogrepo.New(entries)
	if err != nil {
		return nil, fmt.Errorf("shelfscan: %w", err)
	}
	return repo, nil
}

// Evaluate runs the decision pipeline over the caller's model predictions.
// fingerprint keys the result cache; use a stable hash of the source image,
// or "" to bypass caching for this call.
func (c *Client) Evaluate(ctx context.Context, preds []Prediction, fingerprint string) (Evaluation, error) {
	ctx = logpkg.ContextWithLogger(ctx, c.logger)

	if fingerprint == "" {
		// Unkeyed requests must not collide in the cache; evaluate directly.
		res := c.engine.Evaluate(ctx, predictionsToRaw(preds), uncachedFingerprint(), time.Time{})
		ev := res.Evaluation
		return evaluationFromDomain(&ev, false), nil
	}

	res := c.engine.Evaluate(ctx, predictionsToRaw(preds), fingerprint, time.Time{})
	ev := res.Evaluation
	return evaluationFromDomain(&ev, res.Cached), nil
}

// uncachedSeq disambiguates fingerprints for unkeyed Evaluate calls.
var uncachedSeq atomic.Uint64

func uncachedFingerprint() string {
	return fmt.Sprintf("uncached:%d:%d", time.Now().UnixNano(), uncachedSeq.Add(1))
}

// Products returns the loaded catalog in file order.
func (c *Client) Products() []Product {
	entries := c.catalog.All()
	products := make([]Product, len(entries))
	for i := range entries {
		e := &entries[i]
		products[i] = Product{
			Class:    e.ClassID(),
			Name:     e.DisplayName(),
			Barcode:  e.Barcode(),
			Price:    e.Price(),
			Category: e.Category(),
			Brand:    e.Brand(),
			Unit:     e.Unit(),
			Weight:   e.Weight(),
			Stock:    e.Stock(),
		}
	}
	return products
}

// LookupBarcode returns the catalog product for a scanned barcode.
func (c *Client) LookupBarcode(barcode string) (Product, error) {
	e, ok := c.catalog.LookupBarcode(barcode)
	if !ok {
		return Product{}, fmt.Errorf("shelfscan: barcode %s: %w", barcode, ErrNotFound)
	}
	return Product{
		Class:    e.ClassID(),
		Name:     e.DisplayName(),
		Barcode:  e.Barcode(),
		Price:    e.Price(),
		Category: e.Category(),
		Brand:    e.Brand(),
		Unit:     e.Unit(),
		Weight:   e.Weight(),
		Stock:    e.Stock(),
	}, nil
}

// Stats returns the running counters since the client was created.
func (c *Client) Stats() Stats {
	snap := c.stats.Snapshot()
	return Stats{
		TotalRequests:         snap.TotalRequests,
		SuccessCount:          snap.SuccessCount,
		FailureCount:          snap.FailureCount,
		AverageLatencySeconds: snap.AverageLatencySeconds,
		SuccessRate:           snap.SuccessRate,
	}
}

// Close releases the shared cache connection, if any.
func (c *Client) Close() error {
	if c.store != nil {
		c.store.Close()
	}
	return nil
}
