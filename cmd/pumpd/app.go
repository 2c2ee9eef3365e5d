package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/smart-pump/api"
	"github.com/OldStager01/smart-pump/api/handlers"
	"github.com/OldStager01/smart-pump/internal/actuator"
	"github.com/OldStager01/smart-pump/internal/adjust"
	"github.com/OldStager01/smart-pump/internal/control"
	"github.com/OldStager01/smart-pump/internal/dataset"
	"github.com/OldStager01/smart-pump/internal/events"
	"github.com/OldStager01/smart-pump/internal/holiday"
	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/metrics"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/internal/predictor"
	"github.com/OldStager01/smart-pump/internal/resilience"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/internal/usagelog"
	"github.com/OldStager01/smart-pump/pkg/config"
	"github.com/OldStager01/smart-pump/pkg/database"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

// engine is the prediction side of the system, shared by the daemon and
// the one-shot subcommands.
type engine struct {
	cfg       *config.Config
	data      *dataset.Dataset
	history   *pattern.Store
	holidays  *holiday.Engine
	composer  *adjust.Composer
	predictor *predictor.Orchestrator
	metrics   *metrics.Metrics

	hourModel     predictor.Model
	durationModel predictor.Model
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

func buildEngine(cfg *config.Config, m *metrics.Metrics) *engine {
	data := dataset.Load(cfg.Data)
	history := pattern.NewStore(data.Historical)
	holidays := holiday.NewEngine(data.Holidays, holiday.Config{MaxLookahead: cfg.Holiday.MaxLookahead})
	composer := adjust.NewComposer(holidays).WithLookahead(cfg.Holiday.LookaheadDays)

	var hourModel, durationModel predictor.Model
	if cfg.Predictor.Enabled {
		hourModel = guardedModel("hour_model", cfg.Predictor.HourModelURL, cfg.Predictor, m)
		durationModel = guardedModel("duration_model", cfg.Predictor.DurationModelURL, cfg.Predictor, m)
	}

	eng := &engine{
		cfg:           cfg,
		data:          data,
		history:       history,
		holidays:      holidays,
		composer:      composer,
		metrics:       m,
		hourModel:     hourModel,
		durationModel: durationModel,
	}
	eng.buildPredictor()
	return eng
}

func (e *engine) buildPredictor() {
	e.predictor = predictor.New(predictor.Config{
		Fallback: &models.Window{
			StartHour:       e.cfg.Predictor.FallbackHour,
			DurationMinutes: e.cfg.Predictor.FallbackDuration,
		},
		Ranges: validation.RangesFromConfig(e.cfg.Validation),
	}, e.history, e.composer, e.hourModel, e.durationModel)
}

// withLookahead swaps the holiday lookahead used by predictions.
func (e *engine) withLookahead(days int) {
	e.composer = e.composer.WithLookahead(days)
	e.buildPredictor()
}

func guardedModel(name, url string, cfg config.PredictorConfig, m *metrics.Metrics) predictor.Model {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          name,
		MaxFailures:   cfg.CircuitBreaker.MaxFailures,
		Timeout:       cfg.CircuitBreaker.Timeout,
		OnStateChange: breakerObserver(m),
	})
	return predictor.NewGuardedModel(
		predictor.NewHTTPModel(predictor.HTTPModelConfig{Endpoint: url, Timeout: cfg.Timeout}),
		breaker,
	)
}

func breakerObserver(m *metrics.Metrics) func(name string, from, to resilience.State) {
	return func(name string, from, to resilience.State) {
		logger.WithComponent("resilience").Warnf("Circuit %s: %s -> %s", name, from, to)
		m.SetCircuitBreakerState(name, int(to))
	}
}

func buildSensors(cfg *config.Config, history *pattern.Store, m *metrics.Metrics) sensors.Source {
	var source sensors.Source
	switch cfg.Sensors.Type {
	case "http":
		source = sensors.NewHTTPSource(sensors.HTTPSourceConfig{
			Endpoint: cfg.Sensors.Endpoint,
			Timeout:  cfg.Sensors.Timeout,
		})
	default:
		source = sensors.NewSyntheticSource(sensors.SyntheticConfig{History: history})
	}

	return sensors.NewResilientSource(sensors.ResilientSourceConfig{
		Source:        source,
		MaxFailures:   cfg.Sensors.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Sensors.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Sensors.RetryAttempts,
		RetryDelay:    cfg.Sensors.RetryDelay,
		OnStateChange: breakerObserver(m),
	})
}

func buildPump(cfg config.PumpConfig) (actuator.Pump, error) {
	switch cfg.Type {
	case "mqtt":
		return actuator.NewMQTTPump(actuator.MQTTConfig{
			Broker:   cfg.Broker,
			Topic:    cfg.Topic,
			ClientID: cfg.ClientID,
			QoS:      cfg.QoS,
		})
	default:
		return actuator.NewSimulatedPump(actuator.SimulatedConfig{}), nil
	}
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	if cfg.UsageLog.Driver != "postgres" {
		return nil, nil
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if _, err := database.NewMigrator(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func buildSinks(cfg *config.Config, db *database.DB) []events.Sink {
	var sinks []events.Sink
	if db != nil {
		sinks = append(sinks, events.NewDatabaseSink(db))
	}
	if cfg.Events.Kafka.Enabled {
		sinks = append(sinks, events.NewKafkaSink(events.KafkaConfig{
			Brokers:      cfg.Events.Kafka.Brokers,
			Topic:        cfg.Events.Kafka.Topic,
			WriteTimeout: cfg.Events.Kafka.WriteTimeout,
		}))
	}
	return sinks
}

func runDaemon(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var m *metrics.Metrics
	if cfg.Prometheus.Enabled {
		m = metrics.New()
	}

	eng := buildEngine(cfg, m)
	source := buildSensors(cfg, eng.history, m)
	defer source.Close()

	pump, err := buildPump(cfg.Pump)
	if err != nil {
		return fmt.Errorf("failed to connect pump: %w", err)
	}
	defer pump.Close()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	usage, err := usagelog.Open(cfg.UsageLog, db)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}
	defer usage.Close()

	bus := events.NewEventBus(cfg.Events.BufferSize)
	m.TrackDroppedEvents(bus.Dropped)
	eventLogger := events.NewEventLogger(bus.SubscribeAll(), buildSinks(cfg, db)...)
	eventLogger.Start()

	loop, err := control.New(control.Config{
		Tolerance:       cfg.Loop.Tolerance,
		PollInterval:    cfg.Loop.PollInterval,
		RecheckInterval: cfg.Loop.RecheckInterval,
		MaxRuntime:      cfg.Loop.MaxRuntime,
		ErrorBackoff:    cfg.Loop.ErrorBackoff,
		OncePerDay:      cfg.Loop.OncePerDay,
		Location:        cfg.App.Location(),
		Ranges:          validation.RangesFromConfig(cfg.Validation),
		Sensors:         source,
		Predictor:       eng.predictor,
		Pump:            pump,
		UsageLog:        usage,
		Publisher:       events.NewPublisher(bus),
		Metrics:         m,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *api.Server
	errChan := make(chan error, 1)
	if cfg.API.Enabled {
		checks := map[string]handlers.HealthCheck{"sensors": source.HealthCheck}
		if db != nil {
			checks["database"] = db.HealthCheck
		}
		server = api.NewServer(cfg.API, cfg.WebSocket, cfg.App.Mode, api.Deps{
			Loop:      loop,
			Predictor: eng.predictor,
			Sensors:   source,
			History:   eng.history,
			Holidays:  eng.holidays,
			UsageLog:  usage,
			Metrics:   m,
			Events:    bus.SubscribeAll(),
			Checks:    checks,
			Location:  cfg.App.Location(),
		})
		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	select {
	case err = <-errChan:
		stop()
		err = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown requested")
	}
	<-loopDone

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Errorf("Shutdown error: %v", shutdownErr)
		}
	}

	eventLogger.Stop()
	bus.Close()

	logger.Info("System stopped by user")
	return err
}
