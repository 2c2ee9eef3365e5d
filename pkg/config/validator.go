package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Holiday lookahead beyond 3 days turns the proximity decay negative
	if c.Holiday.LookaheadDays < 0 {
		errs = append(errs, errors.New("holiday.lookahead_days must not be negative"))
	}
	if c.Holiday.MaxLookahead < 0 || c.Holiday.MaxLookahead > 3 {
		errs = append(errs, errors.New("holiday.max_lookahead must be between 0 and 3"))
	}

	if c.Predictor.Enabled {
		if c.Predictor.HourModelURL == "" || c.Predictor.DurationModelURL == "" {
			errs = append(errs, errors.New("predictor.hour_model_url and predictor.duration_model_url are required when predictor is enabled"))
		}
	}
	if c.Predictor.FallbackHour < 0 || c.Predictor.FallbackHour >= 24 {
		errs = append(errs, errors.New("predictor.fallback_start_hour must be between 0 and 24"))
	}
	if c.Predictor.FallbackDuration <= 0 {
		errs = append(errs, errors.New("predictor.fallback_duration must be positive"))
	}

	validSensors := map[string]bool{"synthetic": true, "http": true}
	if !validSensors[c.Sensors.Type] {
		errs = append(errs, errors.New("sensors.type must be one of: synthetic, http"))
	}
	if c.Sensors.Type == "http" && c.Sensors.Endpoint == "" {
		errs = append(errs, errors.New("sensors.endpoint is required for http sensors"))
	}

	if c.Validation.MaxWaterLevel <= c.Validation.MinWaterLevel {
		errs = append(errs, errors.New("validation.max_water_level must be greater than min_water_level"))
	}
	if c.Validation.MaxVoltage <= c.Validation.MinVoltage {
		errs = append(errs, errors.New("validation.max_voltage must be greater than min_voltage"))
	}
	if c.Validation.MaxCurrent <= c.Validation.MinCurrent {
		errs = append(errs, errors.New("validation.max_current must be greater than min_current"))
	}
	if c.Validation.MaxTemperature <= c.Validation.MinTemperature {
		errs = append(errs, errors.New("validation.max_temperature must be greater than min_temperature"))
	}

	if c.Loop.Tolerance <= 0 {
		errs = append(errs, errors.New("loop.tolerance must be positive"))
	}
	if c.Loop.PollInterval <= 0 {
		errs = append(errs, errors.New("loop.poll_interval must be positive"))
	}
	if c.Loop.RecheckInterval <= 0 {
		errs = append(errs, errors.New("loop.recheck_interval must be positive"))
	}
	if c.Loop.MaxRuntime <= 0 {
		errs = append(errs, errors.New("loop.max_runtime must be positive"))
	}
	if c.Loop.ErrorBackoff <= 0 {
		errs = append(errs, errors.New("loop.error_backoff must be positive"))
	}

	validPumps := map[string]bool{"simulated": true, "mqtt": true}
	if !validPumps[c.Pump.Type] {
		errs = append(errs, errors.New("pump.type must be one of: simulated, mqtt"))
	}
	if c.Pump.Type == "mqtt" && (c.Pump.Broker == "" || c.Pump.Topic == "") {
		errs = append(errs, errors.New("pump.broker and pump.topic are required for mqtt pumps"))
	}
	if c.Pump.QoS < 0 || c.Pump.QoS > 2 {
		errs = append(errs, errors.New("pump.qos must be 0, 1 or 2"))
	}

	validDrivers := map[string]bool{"csv": true, "sqlite": true, "postgres": true}
	if !validDrivers[c.UsageLog.Driver] {
		errs = append(errs, errors.New("usage_log.driver must be one of: csv, sqlite, postgres"))
	}
	if c.UsageLog.Driver != "postgres" && c.UsageLog.Path == "" {
		errs = append(errs, errors.New("usage_log.path is required"))
	}

	if c.UsageLog.Driver == "postgres" {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}

	if c.Events.Kafka.Enabled {
		if len(c.Events.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("events.kafka.brokers is required when kafka is enabled"))
		}
		if c.Events.Kafka.Topic == "" {
			errs = append(errs, errors.New("events.kafka.topic is required when kafka is enabled"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
