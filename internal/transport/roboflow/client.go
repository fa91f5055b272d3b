// Package roboflow calls a hosted-inference object detection endpoint.
// The service accepts a raw base64 body and returns per-box predictions;
// minimum confidence and NMS overlap are applied server-side via query
// parameters.
package roboflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/domain"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	"github.com/kiosklabs/shelfscan/internal/metrics"
)

// Config holds the detector endpoint settings.
type Config struct {
	BaseURL string
	ModelID string
	APIKey  string
	// MinConfidence is the percentage below which the model drops
	// predictions before returning them.
	MinConfidence float64
	// Overlap is the IoU percentage for server-side non-max suppression.
	Overlap    int
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// Client is the detector caller. Failures after retries unwrap to
// domain.ErrUpstreamUnavailable.
type Client struct {
	http          *http.Client
	endpoint      string
	apiKey        string
	minConfidence float64
	overlap       int
	maxRetries    int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// prediction mirrors one element of the upstream predictions array.
type prediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Predictions []prediction `json:"predictions"`
}

// NewClient creates a detector client.
func NewClient(cfg Config) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:          &http.Client{Timeout: timeout},
		endpoint:      strings.TrimRight(cfg.BaseURL, "/") + "/" + cfg.ModelID,
		apiKey:        cfg.APIKey,
		minConfidence: cfg.MinConfidence,
		overlap:       cfg.Overlap,
		maxRetries:    maxRetries,
		retryDelay:    time.Second,
		logger:        logger,
	}
}

// Detect posts the base64 image and maps the response to raw detections.
// Retries with bounded exponential backoff on timeouts, network errors and
// 429; any other non-2xx status fails immediately. A final failure is a
// DetectorError, never a silent empty result.
func (c *Client) Detect(ctx context.Context, imageB64 string) ([]detection.Raw, error) {
	delay := c.retryDelay

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logger.Debug("Calling detector",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
		)

		raws, retryable, err := c.call(ctx, imageB64)
		if err == nil {
			return raws, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			break
		}

		c.logger.Warn("Detector call failed, retrying",
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("detector retry wait: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, lastErr
}

// HealthCheck probes the endpoint without an image payload. Any HTTP
// response means the service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?api_key="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return fmt.Errorf("build detector health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewDetectorError(domain.DetectorUnreachable)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// call runs one attempt. The bool reports whether the failure is retryable.
func (c *Client) call(ctx context.Context, imageB64 string) ([]detection.Raw, bool, error) {
	start := time.Now()
	resp, err := c.post(ctx, imageB64)
	metrics.DetectorRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := domain.DetectorUnreachable
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = domain.DetectorTimeout
		}
		metrics.DetectorRequestsTotal.WithLabelValues("error").Inc()
		metrics.DetectorErrorsTotal.WithLabelValues(string(kind)).Inc()
		return nil, true, domain.NewDetectorError(kind)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.DetectorRequestsTotal.WithLabelValues("error").Inc()
		metrics.DetectorErrorsTotal.WithLabelValues(string(domain.DetectorUnreachable)).Inc()
		return nil, true, domain.NewDetectorError(domain.DetectorUnreachable)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.DetectorRequestsTotal.WithLabelValues("rate_limited").Inc()
		return nil, true, domain.NewDetectorBadStatus(resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		metrics.DetectorRequestsTotal.WithLabelValues("error").Inc()
		metrics.DetectorErrorsTotal.WithLabelValues(string(domain.DetectorBadStatus)).Inc()
		return nil, false, domain.NewDetectorBadStatus(resp.StatusCode, string(body))
	}

	var parsed detectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.DetectorRequestsTotal.WithLabelValues("error").Inc()
		return nil, false, domain.NewDetectorBadStatus(resp.StatusCode, "unparsable response: "+err.Error())
	}

	metrics.DetectorRequestsTotal.WithLabelValues("success").Inc()

	raws := make([]detection.Raw, 0, len(parsed.Predictions))
	for _, p := range parsed.Predictions {
		raws = append(raws, detection.Raw{
			ClassID:    p.Class,
			Confidence: p.Confidence,
			BBox:       detection.BBox{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height},
		})
	}
	c.logger.Debug("Detector returned predictions", zap.Int("count", len(raws)))
	return raws, false, nil
}

func (c *Client) post(ctx context.Context, imageB64 string) (*http.Response, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("confidence", strconv.FormatFloat(c.minConfidence, 'f', -1, 64))
	params.Set("overlap", strconv.Itoa(c.overlap))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+params.Encode(), strings.NewReader(imageB64))
	if err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
