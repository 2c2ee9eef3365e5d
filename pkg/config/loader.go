package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/smart-pump")
	}

	v.SetEnvPrefix("PUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "smart-pump")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("data.historical_file", "data/raw/synthetic_water_data.csv")
	v.SetDefault("data.holiday_file", "data/raw/Holidays_2020_2030.csv")

	v.SetDefault("holiday.lookahead_days", 2)
	v.SetDefault("holiday.max_lookahead", 3)

	v.SetDefault("predictor.enabled", false)
	v.SetDefault("predictor.timeout", "5s")
	v.SetDefault("predictor.fallback_start_hour", 7.0)
	v.SetDefault("predictor.fallback_duration", 90.0)
	v.SetDefault("predictor.circuit_breaker.max_failures", 3)
	v.SetDefault("predictor.circuit_breaker.timeout", "5m")

	v.SetDefault("sensors.type", "synthetic")
	v.SetDefault("sensors.endpoint", "http://localhost:9100/sensors")
	v.SetDefault("sensors.timeout", "5s")
	v.SetDefault("sensors.retry_attempts", 3)
	v.SetDefault("sensors.retry_delay", "1s")
	v.SetDefault("sensors.circuit_breaker.max_failures", 5)
	v.SetDefault("sensors.circuit_breaker.timeout", "30s")

	v.SetDefault("validation.min_water_level", 0.0)
	v.SetDefault("validation.max_water_level", 100.0)
	v.SetDefault("validation.min_voltage", 200.0)
	v.SetDefault("validation.max_voltage", 250.0)
	v.SetDefault("validation.min_current", 0.0)
	v.SetDefault("validation.max_current", 10.0)
	v.SetDefault("validation.min_temperature", -10.0)
	v.SetDefault("validation.max_temperature", 50.0)

	v.SetDefault("loop.tolerance", 0.08)
	v.SetDefault("loop.poll_interval", "60s")
	v.SetDefault("loop.recheck_interval", "60s")
	v.SetDefault("loop.max_runtime", "300s")
	v.SetDefault("loop.error_backoff", "60s")
	v.SetDefault("loop.once_per_day", true)

	v.SetDefault("pump.type", "simulated")
	v.SetDefault("pump.broker", "tcp://localhost:1883")
	v.SetDefault("pump.topic", "pump/relay")
	v.SetDefault("pump.client_id", "smart-pump")
	v.SetDefault("pump.qos", 1)

	v.SetDefault("usage_log.driver", "csv")
	v.SetDefault("usage_log.path", "logs/pump/pump_usage_log.csv")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "smartpump")
	v.SetDefault("database.user", "pump")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.default_limit", 20)
	v.SetDefault("api.max_limit", 500)

	v.SetDefault("websocket.ping_interval", "54s")
	v.SetDefault("websocket.pong_timeout", "60s")

	v.SetDefault("prometheus.enabled", true)

	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.kafka.enabled", false)
	v.SetDefault("events.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka.topic", "pump.events")
	v.SetDefault("events.kafka.write_timeout", "10s")
}
