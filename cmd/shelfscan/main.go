package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/config"
	"github.com/kiosklabs/shelfscan/internal/db"
	dbRedis "github.com/kiosklabs/shelfscan/internal/db/redis"
	"github.com/kiosklabs/shelfscan/internal/domain/scoring"
	logpkg "github.com/kiosklabs/shelfscan/internal/logger"
	"github.com/kiosklabs/shelfscan/internal/metrics"
	catalogrepo "github.com/kiosklabs/shelfscan/internal/repository/catalog"
	"github.com/kiosklabs/shelfscan/internal/repository/decisioncache"
	chiTransport "github.com/kiosklabs/shelfscan/internal/transport/chi"
	"github.com/kiosklabs/shelfscan/internal/transport/roboflow"
	evaluateuc "github.com/kiosklabs/shelfscan/internal/usecase/evaluate"
	healthuc "github.com/kiosklabs/shelfscan/internal/usecase/health"
	scanuc "github.com/kiosklabs/shelfscan/internal/usecase/scan"
	statsuc "github.com/kiosklabs/shelfscan/internal/usecase/stats"
	"github.com/kiosklabs/shelfscan/internal/version"
)

func main() {
	// Load .env for local development; absence is not an error
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shelfscan API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("detector_model", cfg.Detector.ModelID),
	)

	metrics.RegisterDetectionMetrics()

	catalog, err := catalogrepo.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("Failed to load product catalog", zap.Error(err))
	}
	logger.Info("Catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("products", catalog.Len()),
	)

	cacheTTL := time.Duration(cfg.Cache.TTLSec) * time.Second

	// Decision cache — in-process by default, shared store for multi-lane setups
	var cache evaluateuc.DecisionCache
	var store db.Store
	switch cfg.Cache.Driver {
	case "memory":
		cache = decisioncache.NewMemory(cacheTTL, cfg.Cache.MaxEntries, metrics.DecisionCacheTotal)
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(context.Background(), 30*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to shared cache store", zap.Strings("addrs", cfg.Cache.Addrs))

		cache = decisioncache.NewShared(store, cfg.Cache.KeyPrefix, cacheTTL, metrics.DecisionCacheTotal, logger)
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}

	detector := roboflow.NewClient(roboflow.Config{
		BaseURL:       cfg.Detector.BaseURL,
		ModelID:       cfg.Detector.ModelID,
		APIKey:        cfg.Detector.APIKey,
		MinConfidence: cfg.Engine.Thresholds.Low,
		Overlap:       cfg.Detector.Overlap,
		Timeout:       time.Duration(cfg.Detector.TimeoutSec) * time.Second,
		MaxRetries:    cfg.Detector.MaxRetries,
		Logger:        logger,
	})

	statsSvc := statsuc.New()
	engine := evaluateuc.New(
		catalog,
		cache,
		statsSvc,
		scoring.NewAdjuster(cfg.Engine.CategoryBias),
		cfg.Engine.Thresholds,
		evaluateuc.SuggestionLimits{
			Confirm:   cfg.Engine.Suggestions.ConfirmLimit,
			Uncertain: cfg.Engine.Suggestions.UncertainLimit,
			Fallback:  cfg.Engine.Suggestions.FallbackLimit,
		},
	)
	scanSvc := scanuc.New(detector, engine)

	// Health checks the shared store only when one is configured
	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, detector)

	server := chiTransport.NewServer(scanSvc, catalog, statsSvc, healthSvc, chiTransport.DetectorInfo{
		ModelID:       cfg.Detector.ModelID,
		MinConfidence: cfg.Engine.Thresholds.Low,
		Overlap:       cfg.Detector.Overlap,
		TimeoutSec:    cfg.Detector.TimeoutSec,
		MaxRetries:    cfg.Detector.MaxRetries,
		Thresholds:    cfg.Engine.Thresholds,
		CategoryBias:  scoring.NewAdjuster(cfg.Engine.CategoryBias).Table(),
		Cache: chiTransport.CacheInfo{
			Driver:     cfg.Cache.Driver,
			TTLSec:     cfg.Cache.TTLSec,
			MaxEntries: cfg.Cache.MaxEntries,
		},
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
