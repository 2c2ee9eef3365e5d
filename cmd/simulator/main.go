package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OldStager01/smart-pump/internal/dataset"
	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9100, "simulator server port")
	logLevel := flag.String("log-level", "info", "log level")
	historical := flag.String("historical", "data/raw/synthetic_water_data.csv", "historical data used to shape readings")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting sensor gateway simulator")

	var history *pattern.Store
	if records, err := dataset.LoadHistorical(*historical); err != nil {
		logger.Warnf("Historical data unavailable, using generic ranges: %v", err)
	} else {
		history = pattern.NewStore(records)
	}

	sim := simulator.New(simulator.Config{
		Port:   *port,
		Source: sensors.NewSyntheticSource(sensors.SyntheticConfig{History: history}),
	})
	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")
	return sim.Stop()
}
