// Package forecast turns a resolved model bundle, or the lack of one, into
// daily forecasts, and exposes the service operations built on them.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

// Engine produces forecasts from a bundle when one is available and from
// the synthetic generator otherwise.
type Engine struct {
	features   *domain.FeatureBuilder
	synthetic  *domain.SyntheticGenerator
	maxHorizon int
	logger     *slog.Logger
}

// NewEngine creates an Engine. A maxHorizon of zero leaves the horizon unbounded.
func NewEngine(features *domain.FeatureBuilder, synthetic *domain.SyntheticGenerator, maxHorizon int, logger *slog.Logger) *Engine {
	return &Engine{
		features:   features,
		synthetic:  synthetic,
		maxHorizon: maxHorizon,
		logger:     logger,
	}
}

// OriginFor reports which path Forecast takes for bundle.
func OriginFor(bundle *domain.ModelBundle) domain.Origin {
	if bundle == nil || bundle.Empty() {
		return domain.OriginSynthetic
	}
	return domain.OriginModel
}

// Forecast returns horizon consecutive days starting today. With a non-empty
// bundle each covered target is predicted by its model; without one the
// whole horizon is synthetic. It never returns an empty slice with a nil error.
func (e *Engine) Forecast(ctx context.Context, bundle *domain.ModelBundle, location string, horizon int) ([]domain.ForecastDay, error) {
	if err := e.validateHorizon(horizon); err != nil {
		return nil, err
	}

	if OriginFor(bundle) == domain.OriginSynthetic {
		days, err := e.synthetic.Generate(location, horizon)
		if err != nil {
			return nil, fmt.Errorf("%w: synthetic: %w", domain.ErrForecastUnavailable, err)
		}
		return days, nil
	}
	return e.predict(ctx, bundle, location, horizon)
}

func (e *Engine) validateHorizon(horizon int) error {
	if horizon <= 0 {
		return fmt.Errorf("%w: %d days", domain.ErrInvalidHorizon, horizon)
	}
	if e.maxHorizon > 0 && horizon > e.maxHorizon {
		return fmt.Errorf("%w: %d days exceeds maximum of %d", domain.ErrInvalidHorizon, horizon, e.maxHorizon)
	}
	return nil
}

func (e *Engine) predict(ctx context.Context, bundle *domain.ModelBundle, location string, horizon int) (days []domain.ForecastDay, err error) {
	// A malformed artefact must not take the process down with it.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("model prediction panicked", "location", location, "panic", r)
			days, err = nil, fmt.Errorf("%w: model panicked: %v", domain.ErrForecastUnavailable, r)
		}
	}()

	targets := bundle.Covered().Slice()
	days = make([]domain.ForecastDay, 0, horizon)
	for _, date := range domain.ForecastDates(domain.Today(), horizon) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fv := e.features.Build(date, location)
		day := domain.ForecastDay{Date: date}
		for _, t := range targets {
			v, err := predictTarget(bundle.Model(t), fv[:])
			if err != nil {
				return nil, fmt.Errorf("%w: %s on %s: %w", domain.ErrForecastUnavailable, t, date.Format(domain.DateLayout), err)
			}
			day.Set(t, postProcess(t, v))
		}
		days = append(days, day)
	}
	return days, nil
}

func predictTarget(m *domain.TargetModel, features []float64) (float64, error) {
	scaled, err := m.Scaler.Transform(features)
	if err != nil {
		return 0, fmt.Errorf("scale: %w", err)
	}
	v, err := m.Regressor.Predict(scaled)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite prediction %v", v)
	}
	return v, nil
}

// postProcess clamps humidity to [0,100] and wind to >= 0, then rounds to
// one decimal. Temperature and pressure are left unclamped.
func postProcess(t domain.Target, v float64) float64 {
	switch t {
	case domain.TargetHumidity:
		v = math.Min(math.Max(v, 0), 100)
	case domain.TargetWindSpeed:
		v = math.Max(v, 0)
	}
	return math.Round(v*10) / 10
}
