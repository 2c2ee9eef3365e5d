package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/smart-pump/pkg/models"
)

const namespace = "smartpump"

// Metrics exposes the control loop on its own registry. All methods are
// safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	sensorReads     *prometheus.CounterVec
	predictions     *prometheus.CounterVec
	predictedStart  prometheus.Gauge
	predictedLength prometheus.Gauge
	hoursUntilRun   prometheus.Gauge
	activations     prometheus.Counter
	pumpOn          prometheus.Gauge
	usageLogErrors  prometheus.Counter
	circuitState    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Control loop cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_evaluation_seconds",
			Help:      "Time spent reading sensors and predicting per cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		sensorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_reads_total",
			Help:      "Sensor reads by result.",
		}, []string{"result"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions by method and source.",
		}, []string{"method", "source"}),
		predictedStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predicted_start_hour",
			Help:      "Adjusted start hour of the latest prediction.",
		}),
		predictedLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predicted_duration_minutes",
			Help:      "Adjusted run duration of the latest prediction.",
		}),
		hoursUntilRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hours_until_run",
			Help:      "Hours until the predicted start, as of the last waiting cycle.",
		}),
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_activations_total",
			Help:      "Completed pump activations.",
		}),
		pumpOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_on",
			Help:      "1 while the pump is running.",
		}),
		usageLogErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_log_errors_total",
			Help:      "Failed usage log writes.",
		}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"name"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Status API requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Status API request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles,
		m.cycleDuration,
		m.sensorReads,
		m.predictions,
		m.predictedStart,
		m.predictedLength,
		m.hoursUntilRun,
		m.activations,
		m.pumpOn,
		m.usageLogErrors,
		m.circuitState,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackDroppedEvents exposes an event bus drop count as a counter.
func (m *Metrics) TrackDroppedEvents(count func() int64) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events lost because a subscriber channel was full.",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) CycleCompleted(outcome string, evaluation time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(evaluation.Seconds())
}

func (m *Metrics) SensorRead(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.sensorReads.WithLabelValues(result).Inc()
}

func (m *Metrics) SensorInvalid() {
	if m == nil {
		return
	}
	m.sensorReads.WithLabelValues("invalid").Inc()
}

func (m *Metrics) Prediction(p *models.PredictionOutcome) {
	if m == nil || p == nil {
		return
	}
	m.predictions.WithLabelValues(string(p.Method), string(p.Source)).Inc()
	m.predictedStart.Set(p.Final.StartHour)
	m.predictedLength.Set(p.Final.DurationMinutes)
}

func (m *Metrics) Waiting(hoursUntil float64) {
	if m == nil {
		return
	}
	m.hoursUntilRun.Set(hoursUntil)
}

func (m *Metrics) PumpState(on bool) {
	if m == nil {
		return
	}
	if on {
		m.pumpOn.Set(1)
		return
	}
	m.pumpOn.Set(0)
}

func (m *Metrics) Activation() {
	if m == nil {
		return
	}
	m.activations.Inc()
}

func (m *Metrics) UsageLogError() {
	if m == nil {
		return
	}
	m.usageLogErrors.Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.circuitState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) HTTPRequest(route string, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
