// Package chi is the HTTP transport: request decoding, domain error
// mapping and response shaping for the scanner API.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/domain"
	domcatalog "github.com/kiosklabs/shelfscan/internal/domain/catalog"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	catalogrepo "github.com/kiosklabs/shelfscan/internal/repository/catalog"
	healthuc "github.com/kiosklabs/shelfscan/internal/usecase/health"
	scanuc "github.com/kiosklabs/shelfscan/internal/usecase/scan"
	statsuc "github.com/kiosklabs/shelfscan/internal/usecase/stats"
)

// maxDetectBody caps the request body; base64 of a phone photo stays well
// under this.
const maxDetectBody = 12 << 20

// errorCode tags machine-readable API error responses.
type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeInvalidImage        errorCode = "invalid_image"
	codeNotFound            errorCode = "not_found"
	codeUpstreamUnavailable errorCode = "detector_unavailable"
	codeUpstreamTimeout     errorCode = "detector_timeout"
	codeInternalError       errorCode = "internal_error"
)

// errorResponse is the uniform API error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// CacheInfo describes the configured result cache for the info endpoint.
type CacheInfo struct {
	Driver     string `json:"driver"`
	TTLSec     int    `json:"ttl_sec"`
	MaxEntries int    `json:"max_entries,omitempty"`
}

// DetectorInfo describes the configured upstream model for the info endpoint.
type DetectorInfo struct {
	ModelID       string              `json:"model_id"`
	MinConfidence float64             `json:"min_confidence"`
	Overlap       int                 `json:"overlap"`
	TimeoutSec    int                 `json:"timeout_sec"`
	MaxRetries    int                 `json:"max_retries"`
	Thresholds    decision.Thresholds `json:"thresholds"`
	CategoryBias  map[string]int      `json:"category_bias"`
	Cache         CacheInfo           `json:"cache"`
}

// Server hand-routes the scanner API over chi.
type Server struct {
	scan          *scanuc.Service
	catalog       *catalogrepo.Repo
	stats         *statsuc.Service
	health        *healthuc.Service
	detectorInfo  DetectorInfo
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	scan *scanuc.Service,
	catalog *catalogrepo.Repo,
	stats *statsuc.Service,
	health *healthuc.Service,
	detectorInfo DetectorInfo,
	logger *zap.Logger,
) *Server {
	s := &Server{
		scan:         scan,
		catalog:      catalog,
		stats:        stats,
		health:       health,
		detectorInfo: detectorInfo,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidImage, http.StatusBadRequest, codeInvalidImage),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		detectorFailureHandler,
	}
	return s
}

// router is the subset of chi.Router the server needs. Keeps the handler
// wiring testable without a real chi mux.
type router interface {
	Get(pattern string, h http.HandlerFunc)
	Post(pattern string, h http.HandlerFunc)
}

// Register mounts all routes on the router. Middleware (auth, metrics,
// logging) is applied by the caller before this.
func (s *Server) Register(r router) {
	r.Post("/api/v1/detect", s.Detect)
	r.Get("/api/v1/products", s.ListProducts)
	r.Get("/api/v1/products/lookup", s.LookupBarcode)
	r.Get("/api/v1/categories", s.ListCategories)
	r.Get("/api/v1/brands", s.ListBrands)
	r.Get("/api/v1/stats", s.Stats)
	r.Get("/api/v1/detector", s.Detector)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// detectRequest is the POST /detect body. The image is base64, with or
// without a data-URL prefix.
type detectRequest struct {
	Image string `json:"image"`
}

type bboxDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type detectionDTO struct {
	Class              string  `json:"class"`
	Name               string  `json:"name"`
	Barcode            string  `json:"barcode"`
	Price              float64 `json:"price"`
	Category           string  `json:"category"`
	Brand              string  `json:"brand,omitempty"`
	Unit               string  `json:"unit,omitempty"`
	Stock              int     `json:"stock"`
	Confidence         float64 `json:"confidence"`
	AdjustedConfidence float64 `json:"adjusted_confidence"`
	BBox               bboxDTO `json:"bbox"`
}

type decisionDTO struct {
	Outcome             decision.Outcome `json:"outcome"`
	Level               decision.Level   `json:"level,omitempty"`
	Message             string           `json:"message"`
	Detections          []detectionDTO   `json:"detections"`
	HighConfidenceCount int              `json:"high_confidence_count"`
}

type detectResponse struct {
	Success        bool             `json:"success"`
	Decision       decisionDTO      `json:"decision"`
	Suggestions    any              `json:"suggestions,omitempty"`
	Cached         bool             `json:"cached"`
	Fingerprint    string           `json:"fingerprint"`
	Predictions    int              `json:"predictions"`
	ProcessingTime float64          `json:"processing_time"`
	Timestamp      time.Time        `json:"timestamp"`
	Image          scanuc.ImageInfo `json:"image"`
}

// Detect handles POST /api/v1/detect.
func (s *Server) Detect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDetectBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Field 'image' is required")
		return
	}

	res, err := s.scan.Scan(r.Context(), req.Image)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ev := res.Evaluation.Evaluation
	d := ev.Decision()

	resp := detectResponse{
		Success: d.Outcome() != decision.OutcomeNoMatch,
		Decision: decisionDTO{
			Outcome:             d.Outcome(),
			Level:               d.Level(),
			Message:             ev.Message(),
			Detections:          detectionsToDTO(d.Detections()),
			HighConfidenceCount: ev.Meta().HighConfidenceCount,
		},
		Cached:         res.Evaluation.Cached,
		Fingerprint:    res.Fingerprint,
		Predictions:    res.Predictions,
		ProcessingTime: res.ProcessingTime,
		Timestamp:      res.Timestamp,
		Image:          res.Image,
	}
	if len(ev.Suggestions()) > 0 {
		resp.Suggestions = ev.Suggestions()
	}

	writeJSON(w, http.StatusOK, resp)
}

type productDTO struct {
	Class    string  `json:"class"`
	Name     string  `json:"name"`
	Barcode  string  `json:"barcode"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Brand    string  `json:"brand,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Weight   string  `json:"weight,omitempty"`
	Stock    int     `json:"stock"`
}

// ListProducts handles GET /api/v1/products with optional ?category= and
// ?brand= filters. Filters are exact matches against the catalog values.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	brand := r.URL.Query().Get("brand")

	entries := s.catalog.All()
	items := make([]productDTO, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if category != "" && e.Category() != category {
			continue
		}
		if brand != "" && e.Brand() != brand {
			continue
		}
		items = append(items, productToDTO(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": items,
		"total":    len(items),
	})
}

// LookupBarcode handles GET /api/v1/products/lookup?barcode=...
func (s *Server) LookupBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Query parameter 'barcode' is required")
		return
	}

	entry, ok := s.catalog.LookupBarcode(barcode)
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "No product with barcode "+barcode)
		return
	}
	writeJSON(w, http.StatusOK, productToDTO(&entry))
}

type groupDTO struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// ListCategories handles GET /api/v1/categories.
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": groupsToDTO(s.catalog.Categories())})
}

// ListBrands handles GET /api/v1/brands.
func (s *Server) ListBrands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"brands": groupsToDTO(s.catalog.Brands())})
}

type rollupDTO struct {
	Products int     `json:"products"`
	Items    int     `json:"items"`
	Value    float64 `json:"value"`
}

type inventoryDTO struct {
	TotalProducts int                  `json:"total_products"`
	TotalItems    int                  `json:"total_items"`
	TotalValue    float64              `json:"total_value"`
	AveragePrice  float64              `json:"average_price"`
	Categories    map[string]rollupDTO `json:"categories"`
	Brands        map[string]rollupDTO `json:"brands"`
}

// Stats handles GET /api/v1/stats: detection counters plus an inventory
// summary over the loaded catalog.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	summary := s.catalog.Summarize()
	writeJSON(w, http.StatusOK, map[string]any{
		"detection": s.stats.Snapshot(),
		"inventory": inventoryDTO{
			TotalProducts: summary.TotalProducts,
			TotalItems:    summary.TotalItems,
			TotalValue:    summary.TotalValue,
			AveragePrice:  summary.AveragePrice,
			Categories:    rollupsToDTO(summary.Categories),
			Brands:        rollupsToDTO(summary.Brands),
		},
	})
}

// Detector handles GET /api/v1/detector.
func (s *Server) Detector(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.detectorInfo)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func detectionsToDTO(ds []detection.Scored) []detectionDTO {
	items := make([]detectionDTO, len(ds))
	for i := range ds {
		d := &ds[i]
		items[i] = detectionDTO{
			Class:              d.ClassID(),
			Name:               d.ProductName(),
			Barcode:            d.Barcode(),
			Price:              d.Price(),
			Category:           d.Category(),
			Brand:              d.Brand(),
			Unit:               d.Unit(),
			Stock:              d.Stock(),
			Confidence:         d.RawConfidence(),
			AdjustedConfidence: d.AdjustedConfidence(),
			BBox: bboxDTO{
				X:      d.BBox().X,
				Y:      d.BBox().Y,
				Width:  d.BBox().Width,
				Height: d.BBox().Height,
			},
		}
	}
	return items
}

func productToDTO(e *domcatalog.Entry) productDTO {
	return productDTO{
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

func groupsToDTO(groups []catalogrepo.Group) []groupDTO {
	items := make([]groupDTO, len(groups))
	for i, g := range groups {
		items[i] = groupDTO{Name: g.Name, ProductCount: g.ProductCount}
	}
	return items
}

func rollupsToDTO(m map[string]catalogrepo.Rollup) map[string]rollupDTO {
	out := make(map[string]rollupDTO, len(m))
	for k, v := range m {
		out[k] = rollupDTO{Products: v.Products, Items: v.Items, Value: v.Value}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidImage,
		domain.ErrNotFound,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// detectorFailureHandler maps detector errors: timeouts to 504, everything
// else upstream-related to 503.
func detectorFailureHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		return false
	}
	status := http.StatusServiceUnavailable
	code := codeUpstreamUnavailable
	var de *domain.DetectorError
	if errors.As(err, &de) && de.Kind == domain.DetectorTimeout {
		status = http.StatusGatewayTimeout
		code = codeUpstreamTimeout
	}
	writeError(w, status, code, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
