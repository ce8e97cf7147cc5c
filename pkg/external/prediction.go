package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/neuro-risk-client/internal/domain"
)

// DefaultPredictionTimeout is the observed timeout of the prediction endpoints
const DefaultPredictionTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// PredictionClient posts feature sets to the condition-specific prediction
// endpoints. It issues exactly one request per call and never retries.
type PredictionClient struct {
	endpoints  domain.EndpointsConfig
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// ClientOption configures a PredictionClient
type ClientOption func(*PredictionClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(p *PredictionClient) {
		p.httpClient = c
	}
}

// WithClientLogger sets the logger
func WithClientLogger(logger *logrus.Logger) ClientOption {
	return func(p *PredictionClient) {
		p.logger = logger
	}
}

// NewPredictionClient creates a new prediction endpoint client
func NewPredictionClient(config domain.PredictionConfig, opts ...ClientOption) *PredictionClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultPredictionTimeout
	}

	p := &PredictionClient{
		endpoints: config.Endpoints,
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logrus.StandardLogger(),
	}
	if config.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// predictionResponse is the JSON body returned by the prediction servers
type predictionResponse struct {
	RiskPercentage *flexFloat `json:"riskPercentage"`
	Confidence     *flexFloat `json:"confidence"`
	RiskLevel      string     `json:"riskLevel"`
	RiskColor      string     `json:"riskColor"`
	ModelUsed      string     `json:"model_used"`
	Success        *bool      `json:"success"`
	Error          string     `json:"error"`
}

// flexFloat accepts both JSON numbers and numeric strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return fmt.Errorf("null number")
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", string(data))
	}
	*f = flexFloat(v)
	return nil
}

// Predict posts the feature set to its condition's endpoint
func (p *PredictionClient) Predict(ctx context.Context, features domain.FeatureSet) (*domain.RawPrediction, error) {
	kind := features.Condition()
	endpoint := p.endpoints.URL(kind)
	if endpoint == "" {
		return nil, &domain.GatewayError{Kind: domain.GatewayUnconfigured, Condition: kind}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &domain.GatewayError{Kind: domain.GatewayUnavailable, Condition: kind, Err: err}
		}
	}

	jsonBody, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s features: %w", kind, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &domain.GatewayError{Kind: domain.GatewayNetwork, Condition: kind, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.transportError(ctx, kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, p.transportError(ctx, kind, err)
	}

	p.logger.WithFields(logrus.Fields{
		"condition":   kind,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Prediction endpoint responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.GatewayError{
			Kind:      domain.GatewayServer,
			Condition: kind,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("prediction endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	return parsePrediction(kind, resp.StatusCode, body)
}

func parsePrediction(kind domain.ConditionKind, status int, body []byte) (*domain.RawPrediction, error) {
	serverErr := func(err error) error {
		return &domain.GatewayError{Kind: domain.GatewayServer, Condition: kind, Status: status, Err: err}
	}

	var response predictionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, serverErr(fmt.Errorf("failed to parse prediction response: %w", err))
	}

	if response.Success != nil && !*response.Success {
		msg := response.Error
		if msg == "" {
			msg = "success=false"
		}
		return nil, serverErr(fmt.Errorf("prediction server reported failure: %s", msg))
	}
	if response.RiskPercentage == nil {
		return nil, serverErr(errors.New("response has no riskPercentage"))
	}

	pct := float64(*response.RiskPercentage)
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return nil, serverErr(fmt.Errorf("riskPercentage %v out of range", pct))
	}

	raw := &domain.RawPrediction{
		RiskPercentage: roundOneDecimal(pct),
		RiskLevel:      domain.RiskLevel(strings.TrimSpace(response.RiskLevel)),
		RiskColor:      strings.TrimSpace(response.RiskColor),
		ModelUsed:      response.ModelUsed,
	}
	if response.Confidence != nil {
		c := float64(*response.Confidence)
		raw.Confidence = &c
	}
	return raw, nil
}

// transportError classifies a failed round trip. Caller cancellation is
// returned as-is so that it is never mistaken for a gateway failure.
func (p *PredictionClient) transportError(parent context.Context, kind domain.ConditionKind, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.GatewayError{Kind: domain.GatewayTimeout, Condition: kind, Err: err}
	}
	return &domain.GatewayError{Kind: domain.GatewayNetwork, Condition: kind, Err: err}
}

// HealthStatus is the result of probing a prediction server
type HealthStatus struct {
	Condition domain.ConditionKind `json:"condition"`
	URL       string               `json:"url"`
	Healthy   bool                 `json:"healthy"`
	Status    int                  `json:"status,omitempty"`
	Latency   time.Duration        `json:"latency"`
	Error     string               `json:"error,omitempty"`
}

// Health probes GET /api/health on the origin of the condition's endpoint
func (p *PredictionClient) Health(ctx context.Context, kind domain.ConditionKind) HealthStatus {
	status := HealthStatus{Condition: kind}

	endpoint := p.endpoints.URL(kind)
	if endpoint == "" {
		status.Error = "no endpoint configured"
		return status
	}

	healthURL, err := healthURLFor(endpoint)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.URL = healthURL

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	status.Status = resp.StatusCode
	status.Healthy = resp.StatusCode == http.StatusOK
	return status
}

func healthURLFor(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q", endpoint)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/api/health"}).String(), nil
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
