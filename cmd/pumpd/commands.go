package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/smart-pump/internal/adjust"
	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/usagelog"
	"github.com/OldStager01/smart-pump/pkg/database"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return models.DateOnly(time.Now().In(loc)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func predictCmd() *cobra.Command {
	var (
		date       string
		noSensors  bool
		lookahead  int
		showReason bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the pump window for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			loc := cfg.App.Location()
			target, err := parseDay(date, loc)
			if err != nil {
				return err
			}

			eng := buildEngine(cfg, nil)
			if cmd.Flags().Changed("lookahead") {
				if err := validation.ValidateLookahead(lookahead, eng.holidays.MaxLookahead()); err != nil {
					return err
				}
				eng.withLookahead(lookahead)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var snap *models.SensorSnapshot
			if !noSensors {
				source := buildSensors(cfg, eng.history, nil)
				defer source.Close()
				if s, err := source.Read(ctx); err != nil {
					logger.Warnf("Sensor read failed: %v", err)
				} else {
					snap = s
					printSnapshot(snap)
				}
			}

			outcome := eng.predictor.Predict(ctx, target, snap)
			printPrediction(outcome, showReason)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&noSensors, "no-sensors", false, "predict without reading sensors")
	cmd.Flags().IntVar(&lookahead, "lookahead", adjust.DefaultLookahead, "holiday lookahead in days")
	cmd.Flags().BoolVar(&showReason, "verbose", false, "show skipped prediction steps")
	return cmd
}

func patternsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Summarise historical usage patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng := buildEngine(cfg, nil)

			summary, err := eng.history.Summary()
			if err != nil {
				return fmt.Errorf("no patterns: %w", err)
			}
			printPatterns(summary)

			if date != "" {
				day, err := parseDay(date, cfg.App.Location())
				if err != nil {
					return err
				}
				printSimilar(day, eng.history.SimilarConditions(day))
			}

			usage, err := usagelog.Open(cfg.UsageLog, nil)
			if err == nil {
				defer usage.Close()
				printTrend(cmd.Context(), usage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "also list days similar to this date")
	return cmd
}

func holidaysCmd() *cobra.Command {
	var (
		date string
		days int
	)

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Show upcoming holidays and their impact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			from, err := parseDay(date, cfg.App.Location())
			if err != nil {
				return err
			}
			eng := buildEngine(cfg, nil)

			printUpcoming(eng.holidays.Upcoming(from, days))
			printImpact(from, eng.holidays.ImpactForWindow(from, eng.composer.Lookahead()), adjust.Weekend(from))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 30, "number of days to list")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			applied, err := database.NewMigrator(db).Run(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			printMigrations(applied)
			return nil
		},
	}
}
