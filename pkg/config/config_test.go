package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/smart-pump/pkg/config"
)

func validConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:     "test-pump",
			Mode:     "test",
			LogLevel: "info",
		},
		Holiday: config.HolidayConfig{LookaheadDays: 2, MaxLookahead: 3},
		Predictor: config.PredictorConfig{
			FallbackHour:     7.0,
			FallbackDuration: 90,
		},
		Sensors: config.SensorsConfig{Type: "synthetic"},
		Validation: config.ValidationConfig{
			MinWaterLevel: 0, MaxWaterLevel: 100,
			MinVoltage: 200, MaxVoltage: 250,
			MinCurrent: 0, MaxCurrent: 10,
			MinTemperature: -10, MaxTemperature: 50,
		},
		Loop: config.LoopConfig{
			Tolerance:       0.08,
			PollInterval:    time.Minute,
			RecheckInterval: time.Minute,
			MaxRuntime:      5 * time.Minute,
			ErrorBackoff:    time.Minute,
		},
		Pump:     config.PumpConfig{Type: "simulated", QoS: 1},
		UsageLog: config.UsageLogConfig{Driver: "csv", Path: "usage.csv"},
		API:      config.APIConfig{Enabled: true, Port: 8080},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*config.Config)
		expectErr   bool
		errContains string
	}{
		{
			name:       "valid config",
			modifyFunc: func(c *config.Config) {},
		},
		{
			name:        "invalid mode",
			modifyFunc:  func(c *config.Config) { c.App.Mode = "staging" },
			expectErr:   true,
			errContains: "app.mode",
		},
		{
			name:        "lookahead cap above three days",
			modifyFunc:  func(c *config.Config) { c.Holiday.MaxLookahead = 5 },
			expectErr:   true,
			errContains: "holiday.max_lookahead",
		},
		{
			name:        "inverted voltage range",
			modifyFunc:  func(c *config.Config) { c.Validation.MinVoltage = 260 },
			expectErr:   true,
			errContains: "max_voltage must be greater",
		},
		{
			name:        "zero tolerance",
			modifyFunc:  func(c *config.Config) { c.Loop.Tolerance = 0 },
			expectErr:   true,
			errContains: "loop.tolerance",
		},
		{
			name: "mqtt pump without topic",
			modifyFunc: func(c *config.Config) {
				c.Pump.Type = "mqtt"
				c.Pump.Broker = "tcp://broker:1883"
			},
			expectErr:   true,
			errContains: "pump.broker and pump.topic",
		},
		{
			name:        "unknown usage driver",
			modifyFunc:  func(c *config.Config) { c.UsageLog.Driver = "mongo" },
			expectErr:   true,
			errContains: "usage_log.driver",
		},
		{
			name: "postgres usage log needs database name",
			modifyFunc: func(c *config.Config) {
				c.UsageLog.Driver = "postgres"
				c.Database = config.DatabaseConfig{Host: "localhost", Port: 5432, MaxConnections: 5}
			},
			expectErr:   true,
			errContains: "database.name",
		},
		{
			name: "model enabled without endpoints",
			modifyFunc: func(c *config.Config) {
				c.Predictor.Enabled = true
			},
			expectErr:   true,
			errContains: "hour_model_url",
		},
		{
			name: "kafka enabled without topic",
			modifyFunc: func(c *config.Config) {
				c.Events.Kafka = config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}}
			},
			expectErr:   true,
			errContains: "events.kafka.topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)

			err := cfg.Validate()

			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: pump-test\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pump-test", cfg.App.Name)
	assert.Equal(t, 0.08, cfg.Loop.Tolerance)
	assert.Equal(t, 60*time.Second, cfg.Loop.PollInterval)
	assert.Equal(t, 300*time.Second, cfg.Loop.MaxRuntime)
	assert.True(t, cfg.Loop.OncePerDay)
	assert.Equal(t, 7.0, cfg.Predictor.FallbackHour)
	assert.Equal(t, 90.0, cfg.Predictor.FallbackDuration)
	assert.Equal(t, 200.0, cfg.Validation.MinVoltage)
	assert.Equal(t, "csv", cfg.UsageLog.Driver)
	assert.Equal(t, 2, cfg.Holiday.LookaheadDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loop:\n  tolerance: 0.05\n"), 0o644))
	t.Setenv("PUMP_LOOP_TOLERANCE", "0.1")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.Loop.Tolerance)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "pump"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pump sslmode=disable", d.DSN())
}
