package config

import (
	"fmt"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Data       DataConfig       `mapstructure:"data"`
	Holiday    HolidayConfig    `mapstructure:"holiday"`
	Predictor  PredictorConfig  `mapstructure:"predictor"`
	Sensors    SensorsConfig    `mapstructure:"sensors"`
	Validation ValidationConfig `mapstructure:"validation"`
	Loop       LoopConfig       `mapstructure:"loop"`
	Pump       PumpConfig       `mapstructure:"pump"`
	UsageLog   UsageLogConfig   `mapstructure:"usage_log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, falling back to local time.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type DataConfig struct {
	HistoricalFile string `mapstructure:"historical_file"`
	HolidayFile    string `mapstructure:"holiday_file"`
}

type HolidayConfig struct {
	LookaheadDays int `mapstructure:"lookahead_days"`
	MaxLookahead  int `mapstructure:"max_lookahead"`
}

type PredictorConfig struct {
	Enabled          bool                 `mapstructure:"enabled"`
	HourModelURL     string               `mapstructure:"hour_model_url"`
	DurationModelURL string               `mapstructure:"duration_model_url"`
	Timeout          time.Duration        `mapstructure:"timeout"`
	FallbackHour     float64              `mapstructure:"fallback_start_hour"`
	FallbackDuration float64              `mapstructure:"fallback_duration"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type SensorsConfig struct {
	Type           string               `mapstructure:"type"`
	Endpoint       string               `mapstructure:"endpoint"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ValidationConfig struct {
	MinWaterLevel  float64 `mapstructure:"min_water_level"`
	MaxWaterLevel  float64 `mapstructure:"max_water_level"`
	MinVoltage     float64 `mapstructure:"min_voltage"`
	MaxVoltage     float64 `mapstructure:"max_voltage"`
	MinCurrent     float64 `mapstructure:"min_current"`
	MaxCurrent     float64 `mapstructure:"max_current"`
	MinTemperature float64 `mapstructure:"min_temperature"`
	MaxTemperature float64 `mapstructure:"max_temperature"`
}

type LoopConfig struct {
	Tolerance       float64       `mapstructure:"tolerance"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RecheckInterval time.Duration `mapstructure:"recheck_interval"`
	MaxRuntime      time.Duration `mapstructure:"max_runtime"`
	ErrorBackoff    time.Duration `mapstructure:"error_backoff"`
	OncePerDay      bool          `mapstructure:"once_per_day"`
}

type PumpConfig struct {
	Type     string `mapstructure:"type"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	QoS      int    `mapstructure:"qos"`
}

type UsageLogConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type APIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
}

type WebSocketConfig struct {
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EventsConfig struct {
	BufferSize int         `mapstructure:"buffer_size"`
	Kafka      KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}
