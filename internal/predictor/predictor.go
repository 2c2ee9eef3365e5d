package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OldStager01/smart-pump/internal/adjust"
	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

var errNoSimilarRuns = errors.New("no similar historical runs")

// DefaultFallback is the static window used when no history is available.
var DefaultFallback = models.Window{StartHour: 7.0, DurationMinutes: 90.0}

type Config struct {
	// Fallback overrides DefaultFallback. A start hour of 0 is a valid
	// midnight run, so only nil selects the default.
	Fallback *models.Window
	Ranges   validation.SensorRanges
}

// Orchestrator produces a daily window by trying, in order, model
// inference, similar historical days, the global average and static
// constants. Whatever base wins is passed through the composer.
type Orchestrator struct {
	config        Config
	fallback      models.Window
	hourModel     Model
	durationModel Model
	history       *pattern.Store
	composer      *adjust.Composer
}

// New builds an orchestrator. Either model may be nil, in which case the
// model step is always skipped.
func New(cfg Config, history *pattern.Store, composer *adjust.Composer, hourModel, durationModel Model) *Orchestrator {
	fallback := DefaultFallback
	if cfg.Fallback != nil {
		fallback = *cfg.Fallback
	}
	if cfg.Ranges == (validation.SensorRanges{}) {
		cfg.Ranges = validation.DefaultSensorRanges()
	}
	if composer == nil {
		composer = adjust.NewComposer(nil)
	}

	return &Orchestrator{
		config:        cfg,
		fallback:      fallback,
		hourModel:     hourModel,
		durationModel: durationModel,
		history:       history,
		composer:      composer,
	}
}

type stepResult struct {
	window     models.Window
	method     models.PredictionMethod
	source     models.PredictionSource
	confidence models.Confidence
	err        error
}

type step func(ctx context.Context, target time.Time, snap *models.SensorSnapshot) stepResult

// Predict never fails; the static step always yields a window.
func (o *Orchestrator) Predict(ctx context.Context, target time.Time, snap *models.SensorSnapshot) *models.PredictionOutcome {
	log := logger.WithComponent("predictor").WithField("date", models.DateKey(target))

	steps := []step{o.fromModel, o.fromSimilarConditions, o.fromGlobalAverage, o.fromStaticDefault}

	var (
		result  stepResult
		skipped []string
	)
	for _, s := range steps {
		result = s(ctx, target, snap)
		if result.err == nil {
			break
		}
		log.Warnf("Prediction step %s skipped: %v", result.source, result.err)
		skipped = append(skipped, fmt.Sprintf("%s: %v", result.source, result.err))
	}

	adjustment := o.composer.Compose(target, result.window.StartHour, result.window.DurationMinutes)

	log.WithFields(map[string]interface{}{
		"method":     result.method,
		"source":     result.source,
		"confidence": result.confidence,
	}).Infof("Predicted start %.2fh for %.1f min (%s)",
		adjustment.Adjusted.StartHour, adjustment.Adjusted.DurationMinutes, adjustment.Explanation)

	return &models.PredictionOutcome{
		TargetDate:     models.DateOnly(target),
		Method:         result.method,
		Source:         result.source,
		Confidence:     result.confidence,
		Base:           result.window,
		Final:          adjustment.Adjusted,
		Adjustment:     adjustment,
		SkippedReasons: skipped,
	}
}

func (o *Orchestrator) fromModel(ctx context.Context, _ time.Time, snap *models.SensorSnapshot) stepResult {
	res := stepResult{
		method:     models.MethodModel,
		source:     models.SourceModel,
		confidence: models.ConfidenceHigh,
	}

	if o.hourModel == nil || o.durationModel == nil {
		res.err = fmt.Errorf("%w: not configured", ErrModelUnavailable)
		return res
	}
	if err := o.config.Ranges.Validate(snap); err != nil {
		res.err = err
		return res
	}

	features := snap.Features()

	hour, err := predictFinite(ctx, o.hourModel, features)
	if err != nil {
		res.err = fmt.Errorf("hour model: %w", err)
		return res
	}
	duration, err := predictFinite(ctx, o.durationModel, features)
	if err != nil {
		res.err = fmt.Errorf("duration model: %w", err)
		return res
	}

	res.window = models.Window{StartHour: hour, DurationMinutes: duration}
	return res
}

func (o *Orchestrator) fromSimilarConditions(_ context.Context, target time.Time, _ *models.SensorSnapshot) stepResult {
	res := stepResult{
		method:     models.MethodHistorical,
		source:     models.SourceSimilarConditions,
		confidence: models.ConfidenceMedium,
	}

	stat, ok := pattern.MeanOf(o.history.SimilarRuns(target, -1))
	if !ok {
		res.err = errNoSimilarRuns
		return res
	}

	res.window = models.Window{StartHour: stat.Hour, DurationMinutes: stat.Duration}
	return res
}

func (o *Orchestrator) fromGlobalAverage(_ context.Context, _ time.Time, _ *models.SensorSnapshot) stepResult {
	res := stepResult{
		method:     models.MethodFallback,
		source:     models.SourceGlobalAverage,
		confidence: models.ConfidenceMedium,
	}

	summary, err := o.history.Summary()
	if err != nil {
		res.err = err
		return res
	}

	res.window = models.Window{StartHour: summary.AvgStartHour, DurationMinutes: summary.AvgDuration}
	return res
}

func (o *Orchestrator) fromStaticDefault(_ context.Context, _ time.Time, _ *models.SensorSnapshot) stepResult {
	return stepResult{
		window: models.Window{
			StartHour:       o.fallback.StartHour,
			DurationMinutes: o.fallback.DurationMinutes,
		},
		method:     models.MethodFallback,
		source:     models.SourceStaticDefault,
		confidence: models.ConfidenceLow,
	}
}

// predictFinite treats any model error or non-finite output as unavailable.
func predictFinite(ctx context.Context, m Model, features models.FeatureVector) (float64, error) {
	v, err := m.Predict(ctx, features)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite output %v", ErrModelUnavailable, v)
	}
	return v, nil
}
