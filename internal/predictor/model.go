package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OldStager01/smart-pump/internal/resilience"
	"github.com/OldStager01/smart-pump/pkg/models"
)

var ErrModelUnavailable = errors.New("model unavailable")

// Model is a trained regressor over the sensor feature vector.
type Model interface {
	Predict(ctx context.Context, features models.FeatureVector) (float64, error)
}

type ModelFunc func(ctx context.Context, features models.FeatureVector) (float64, error)

func (f ModelFunc) Predict(ctx context.Context, features models.FeatureVector) (float64, error) {
	return f(ctx, features)
}

// HTTPModel calls an inference server that accepts
// {"features": [...]} and answers {"prediction": x}.
type HTTPModel struct {
	client   *http.Client
	endpoint string
}

type HTTPModelConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPModel(cfg HTTPModelConfig) *HTTPModel {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPModel{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
	}
}

type inferenceRequest struct {
	Features []float64 `json:"features"`
}

type inferenceResponse struct {
	Prediction *float64 `json:"prediction"`
}

func (m *HTTPModel) Predict(ctx context.Context, features models.FeatureVector) (float64, error) {
	payload, err := json.Marshal(inferenceRequest{Features: features[:]})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to encode features: %v", ErrModelUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %v", ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status code %d", ErrModelUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read response body: %v", ErrModelUnavailable, err)
	}

	var out inferenceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: invalid response: %v", ErrModelUnavailable, err)
	}
	if out.Prediction == nil {
		return 0, fmt.Errorf("%w: response has no prediction", ErrModelUnavailable)
	}

	return *out.Prediction, nil
}

// GuardedModel short-circuits a failing model through a circuit breaker.
type GuardedModel struct {
	model   Model
	breaker *resilience.CircuitBreaker
}

func NewGuardedModel(model Model, breaker *resilience.CircuitBreaker) *GuardedModel {
	return &GuardedModel{model: model, breaker: breaker}
}

func (g *GuardedModel) Predict(ctx context.Context, features models.FeatureVector) (float64, error) {
	var value float64
	err := g.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		v, err := g.model.Predict(ctx, features)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return 0, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return value, err
}
