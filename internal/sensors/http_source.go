package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// HTTPSource polls a sensor gateway that serves the latest reading as JSON.
type HTTPSource struct {
	client   *http.Client
	endpoint string
}

type HTTPSourceConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSource{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}
}

// gatewayResponse uses pointers so missing fields read as NaN and fail
// validation instead of silently becoming zero.
type gatewayResponse struct {
	WaterLevel   *float64 `json:"water_level"`
	FlowRate     *float64 `json:"flow_rate"`
	Voltage      *float64 `json:"voltage"`
	Current      *float64 `json:"current"`
	Temperature  *float64 `json:"temperature"`
	InflowRate   *float64 `json:"inflow_rate"`
	OutflowRate  *float64 `json:"outflow_rate"`
	IsSpecialDay bool     `json:"is_special_day"`
	HasInflow    bool     `json:"has_inflow"`
	Timestamp    string   `json:"timestamp"`
}

func (s *HTTPSource) Read(ctx context.Context) (*models.SensorSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrReadFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.WithComponent("sensors").Debugf("Reading sensors from %s", s.endpoint)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrReadFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrReadFailed, err)
	}

	var gw gatewayResponse
	if err := json.Unmarshal(body, &gw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return gw.snapshot(), nil
}

func (g *gatewayResponse) snapshot() *models.SensorSnapshot {
	readAt := time.Now()
	if g.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, g.Timestamp); err == nil {
			readAt = parsed
		}
	}

	return &models.SensorSnapshot{
		WaterLevel:   orNaN(g.WaterLevel),
		FlowRate:     orNaN(g.FlowRate),
		Voltage:      orNaN(g.Voltage),
		Current:      orNaN(g.Current),
		Temperature:  orNaN(g.Temperature),
		InflowRate:   orNaN(g.InflowRate),
		OutflowRate:  orNaN(g.OutflowRate),
		IsSpecialDay: g.IsSpecialDay,
		HasInflow:    g.HasInflow,
		ReadAt:       readAt,
	}
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	url := s.endpoint + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func corruptSnapshot(at time.Time) *models.SensorSnapshot {
	nan := math.NaN()
	return &models.SensorSnapshot{
		WaterLevel:  nan,
		FlowRate:    nan,
		Voltage:     nan,
		Current:     nan,
		Temperature: nan,
		InflowRate:  nan,
		OutflowRate: nan,
		ReadAt:      at,
	}
}
