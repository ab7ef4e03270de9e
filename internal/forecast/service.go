package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/observability"
	"github.com/couchcryptid/climate-forecast-service/internal/resolver"
)

const (
	minCompare = 2
	maxCompare = 4
)

// BundleResolver finds the model bundle for a location.
type BundleResolver interface {
	Resolve(ctx context.Context, location string) resolver.Resolution
}

// AlertPublisher sends risk alerts downstream.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert domain.RiskAlert) error
}

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Forecast is a resolved forecast for one location.
type Forecast struct {
	Location    string                `json:"location"`
	DisplayName string                `json:"display_name"`
	Origin      domain.Origin         `json:"origin"`
	Source      string                `json:"source,omitempty"`
	Covered     domain.TargetSet      `json:"covered"`
	Days        []domain.ForecastDay  `json:"days"`
	Alerts      []domain.WeatherAlert `json:"alerts"`
}

// Assessment is the risk outlook for one location.
type Assessment struct {
	Location        string                  `json:"location"`
	Origin          domain.Origin           `json:"origin"`
	AssessedAt      time.Time               `json:"assessed_at"`
	Risk            domain.RiskAssessment   `json:"risk"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	AlertPublished  bool                    `json:"alert_published"`
}

// Trends is a trend analysis over a forecast series.
type Trends struct {
	Location string               `json:"location"`
	Origin   domain.Origin        `json:"origin"`
	Analysis domain.TrendAnalysis `json:"analysis"`
}

// ComparisonEntry summarises one location's forecast for side-by-side display.
// An average is nil when the forecast does not cover its target.
type ComparisonEntry struct {
	Location       string                `json:"location"`
	DisplayName    string                `json:"display_name"`
	Origin         domain.Origin         `json:"origin"`
	Profile        domain.ClimateProfile `json:"profile"`
	Covered        domain.TargetSet      `json:"covered"`
	AvgTemperature *float64              `json:"avg_temperature,omitempty"`
	AvgHumidity    *float64              `json:"avg_humidity,omitempty"`
	AvgPressure    *float64              `json:"avg_pressure,omitempty"`
	AvgWindSpeed   *float64              `json:"avg_wind_speed,omitempty"`
}

// Comparison holds one entry per requested location, in request order.
type Comparison struct {
	Days      int               `json:"days"`
	Locations []ComparisonEntry `json:"locations"`
}

// ModelInfo describes what the resolver found for a location.
type ModelInfo struct {
	Location  string                 `json:"location"`
	Available bool                   `json:"available"`
	Source    string                 `json:"source,omitempty"`
	Covered   domain.TargetSet       `json:"covered"`
	Metadata  *domain.BundleMetadata `json:"metadata,omitempty"`
	Attempts  []resolver.Attempt     `json:"attempts"`
}

// Option configures a Service.
type Option func(*Service)

// WithAlertPublisher publishes an alert for every assessment with a HIGH hazard.
func WithAlertPublisher(p AlertPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLookbackDays sets how many days Assess forecasts before taking the
// trailing risk window. Values below the window length are raised to it.
func WithLookbackDays(n int) Option {
	return func(s *Service) { s.lookbackDays = max(n, domain.RiskWindowDays) }
}

// WithReadinessCheck adds a dependency consulted by CheckReadiness.
func WithReadinessCheck(c ReadinessChecker) Option {
	return func(s *Service) { s.checks = append(s.checks, c) }
}

// Service is the entry point the transport layer calls.
type Service struct {
	resolver     BundleResolver
	engine       *Engine
	profiles     *domain.ProfileStore
	publisher    AlertPublisher
	checks       []ReadinessChecker
	lookbackDays int
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewService wires a Service.
func NewService(r BundleResolver, engine *Engine, profiles *domain.ProfileStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		resolver:     r,
		engine:       engine,
		profiles:     profiles,
		lookbackDays: 30,
		logger:       logger,
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// locationID normalises location and rejects anything that is not a
// canonical identifier.
func locationID(location string) (string, error) {
	id := domain.NormalizeLocation(location)
	if !domain.ValidLocationID(id) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidLocation, location)
	}
	return id, nil
}

// Forecast resolves a bundle for location and forecasts days ahead.
func (s *Service) Forecast(ctx context.Context, location string, days int) (Forecast, error) {
	id, err := locationID(location)
	if err != nil {
		return Forecast{}, err
	}
	res, fdays, err := s.run(ctx, id, days)
	if err != nil {
		return Forecast{}, err
	}

	f := Forecast{
		Location:    id,
		DisplayName: domain.DisplayName(id),
		Origin:      OriginFor(res.Bundle),
		Source:      res.Source,
		Covered:     domain.AllTargets,
		Days:        fdays,
		Alerts:      domain.DayAlerts(fdays[0]),
	}
	if res.Bundle != nil {
		f.Covered = res.Bundle.Covered()
	}
	return f, nil
}

// run is the resolve-then-forecast sequence shared by every operation.
func (s *Service) run(ctx context.Context, id string, days int) (resolver.Resolution, []domain.ForecastDay, error) {
	start := time.Now()
	res := s.resolver.Resolve(ctx, id)
	origin := OriginFor(res.Bundle)

	fdays, err := s.engine.Forecast(ctx, res.Bundle, id, days)
	s.metrics.ForecastDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Forecasts.WithLabelValues(string(origin), "error").Inc()
		if errors.Is(err, domain.ErrForecastUnavailable) {
			s.logger.Error("forecast unavailable",
				"location", id,
				"origin", origin,
				"source", res.Source,
				"error", err,
			)
		}
		return res, nil, err
	}
	if len(fdays) == 0 {
		s.metrics.Forecasts.WithLabelValues(string(origin), "error").Inc()
		return res, nil, fmt.Errorf("%w: no days produced", domain.ErrForecastUnavailable)
	}

	s.metrics.Forecasts.WithLabelValues(string(origin), "success").Inc()
	return res, fdays, nil
}

// Assess forecasts the lookback period and classifies its trailing week
// against the location's climate classification.
func (s *Service) Assess(ctx context.Context, location string) (Assessment, error) {
	id, err := locationID(location)
	if err != nil {
		return Assessment{}, err
	}
	res, fdays, err := s.run(ctx, id, s.lookbackDays)
	if err != nil {
		return Assessment{}, err
	}

	profile := s.profiles.ProfileFor(id)
	risk, err := domain.ClassifyRisk(fdays, profile.Classification)
	if err != nil {
		return Assessment{}, fmt.Errorf("classify risk: %w", err)
	}
	for _, h := range domain.Hazards {
		s.metrics.RiskAssessments.WithLabelValues(string(h), string(risk.Level(h))).Inc()
	}

	a := Assessment{
		Location:        id,
		Origin:          OriginFor(res.Bundle),
		AssessedAt:      domain.Now().UTC(),
		Risk:            risk,
		Recommendations: domain.Recommendations(risk),
	}
	a.AlertPublished = s.publish(ctx, id, a)
	return a, nil
}

// publish never fails the assessment; errors are logged and counted.
func (s *Service) publish(ctx context.Context, id string, a Assessment) bool {
	if s.publisher == nil {
		return false
	}
	alert, ok := domain.NewRiskAlert(id, a.Risk, a.AssessedAt)
	if !ok {
		return false
	}
	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		s.metrics.AlertPublishErrors.Inc()
		s.logger.Warn("risk alert publish failed",
			"location", id,
			"hazards", alert.HighHazards,
			"error", err,
		)
		return false
	}
	s.metrics.AlertsPublished.Inc()
	return true
}

// Trends forecasts days ahead and analyses the series.
func (s *Service) Trends(ctx context.Context, location string, days int) (Trends, error) {
	id, err := locationID(location)
	if err != nil {
		return Trends{}, err
	}
	res, fdays, err := s.run(ctx, id, days)
	if err != nil {
		return Trends{}, err
	}
	analysis, err := domain.AnalyzeTrends(fdays)
	if err != nil {
		return Trends{}, fmt.Errorf("analyze trends: %w", err)
	}
	return Trends{Location: id, Origin: OriginFor(res.Bundle), Analysis: analysis}, nil
}

// Compare forecasts 2 to 4 distinct locations concurrently.
func (s *Service) Compare(ctx context.Context, locations []string, days int) (Comparison, error) {
	if len(locations) < minCompare || len(locations) > maxCompare {
		return Comparison{}, fmt.Errorf("%w: got %d", domain.ErrInvalidComparison, len(locations))
	}
	ids := make([]string, len(locations))
	seen := make(map[string]bool, len(locations))
	for i, loc := range locations {
		id, err := locationID(loc)
		if err != nil {
			return Comparison{}, err
		}
		if seen[id] {
			return Comparison{}, fmt.Errorf("%w: %q", domain.ErrSameLocation, loc)
		}
		seen[id] = true
		ids[i] = id
	}

	entries := make([]ComparisonEntry, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCompare)
	for i, id := range ids {
		g.Go(func() error {
			f, err := s.Forecast(gctx, id, days)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			entries[i] = summarizeForecast(f, s.profiles.ProfileFor(id))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	return Comparison{Days: days, Locations: entries}, nil
}

func summarizeForecast(f Forecast, p domain.ClimateProfile) ComparisonEntry {
	e := ComparisonEntry{
		Location:    f.Location,
		DisplayName: f.DisplayName,
		Origin:      f.Origin,
		Profile:     p,
		Covered:     f.Covered,
	}
	var (
		sums   [len(domain.Targets)]float64
		counts [len(domain.Targets)]int
	)
	for _, d := range f.Days {
		for _, t := range d.Covered.Slice() {
			sums[t] += d.Value(t)
			counts[t]++
		}
	}
	mean := func(t domain.Target) *float64 {
		if counts[t] == 0 {
			return nil
		}
		v := sums[t] / float64(counts[t])
		return &v
	}
	e.AvgTemperature = mean(domain.TargetTemperature)
	e.AvgHumidity = mean(domain.TargetHumidity)
	e.AvgPressure = mean(domain.TargetPressure)
	e.AvgWindSpeed = mean(domain.TargetWindSpeed)
	return e
}

// ModelInfo reports which tier, if any, serves the location's bundle.
func (s *Service) ModelInfo(ctx context.Context, location string) ModelInfo {
	id := domain.NormalizeLocation(location)
	res := s.resolver.Resolve(ctx, id)
	info := ModelInfo{Location: id, Attempts: res.Attempts}
	if res.Absent() {
		return info
	}
	md := res.Bundle.Metadata
	info.Available = true
	info.Source = res.Source
	info.Covered = res.Bundle.Covered()
	info.Metadata = &md
	return info
}

// Profile returns the climate profile used for location.
func (s *Service) Profile(location string) domain.ClimateProfile {
	return s.profiles.ProfileFor(location)
}

// Search returns supported cities matching term.
func (s *Service) Search(term string) []string {
	return s.profiles.Search(term)
}

// CheckReadiness reports ready once the profile table is loaded and every
// registered dependency is ready.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if _, err := s.profiles.Profile(domain.DefaultProfileID); err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	for _, c := range s.checks {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
