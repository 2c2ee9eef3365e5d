package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/pkg/models"
)

type Config struct {
	Port   int
	Source *sensors.SyntheticSource
}

// Simulator is a fake sensor gateway. It serves synthetic snapshots at
// /sensors in the format sensors.HTTPSource reads, and lets tests or
// operators inject faults at runtime.
type Simulator struct {
	config     Config
	source     *sensors.SyntheticSource
	mu         sync.RWMutex
	fault      Fault
	reads      int64
	httpServer *http.Server
}

// Fault selects how the gateway misbehaves.
type Fault string

const (
	FaultNone    Fault = "none"
	FaultDown    Fault = "down"    // 503 on every read
	FaultCorrupt Fault = "corrupt" // readings present but null
	FaultGarbage Fault = "garbage" // body is not JSON
)

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9100
	}
	source := cfg.Source
	if source == nil {
		source = sensors.NewSyntheticSource(sensors.SyntheticConfig{})
	}
	return &Simulator{config: cfg, source: source, fault: FaultNone}
}

func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sensors", s.sensorsHandler)
	mux.HandleFunc("/sensors/health", s.healthHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/fault", s.faultHandler)
	return mux
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Sensor gateway simulator listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()
	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Simulator) Fault() Fault {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fault
}

type reading struct {
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

func present(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toReading(snap *models.SensorSnapshot) reading {
	return reading{
		WaterLevel:   present(snap.WaterLevel),
		FlowRate:     present(snap.FlowRate),
		Voltage:      present(snap.Voltage),
		Current:      present(snap.Current),
		Temperature:  present(snap.Temperature),
		InflowRate:   present(snap.InflowRate),
		OutflowRate:  present(snap.OutflowRate),
		IsSpecialDay: snap.IsSpecialDay,
		HasInflow:    snap.HasInflow,
		Timestamp:    snap.ReadAt.Format(time.RFC3339),
	}
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "healthy", "service": "sensor-gateway-simulator"}
	if s.Fault() == FaultDown {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Simulator) sensorsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	s.reads++
	fault := s.fault
	s.mu.Unlock()

	switch fault {
	case FaultDown:
		http.Error(w, "sensor bus offline", http.StatusServiceUnavailable)
		return
	case FaultGarbage:
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{water_level: ???"))
		return
	}

	s.source.SetCorrupt(fault == FaultCorrupt)
	snap, err := s.source.Read(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toReading(snap))
}

type FaultRequest struct {
	Fault Fault `json:"fault"`
}

func (s *Simulator) faultHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req FaultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		switch req.Fault {
		case FaultNone, FaultDown, FaultCorrupt, FaultGarbage:
			s.SetFault(req.Fault)
			logger.Infof("Sensor gateway fault set to %s", req.Fault)
		default:
			http.Error(w, "unknown fault", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	resp := map[string]interface{}{"fault": s.fault, "reads": s.reads}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
