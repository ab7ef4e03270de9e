package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-forecast-service/internal/artifact/artifacttest"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/observability"
	"github.com/couchcryptid/climate-forecast-service/internal/resolver"
)

// --- fakes ---

type fakeResolver struct {
	mu      sync.Mutex
	bundles map[string]*domain.ModelBundle
	calls   []string
}

func (f *fakeResolver) Resolve(_ context.Context, location string) resolver.Resolution {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, location)

	res := resolver.Resolution{Location: location}
	if b, ok := f.bundles[location]; ok {
		res.Bundle = b
		res.Source = "local"
		res.Attempts = []resolver.Attempt{{Tier: "local", Outcome: resolver.OutcomeHit}}
		return res
	}
	res.Attempts = []resolver.Attempt{{Tier: "local", Outcome: resolver.OutcomeMiss}}
	return res
}

type recordingPublisher struct {
	alerts []domain.RiskAlert
	err    error
}

func (p *recordingPublisher) PublishAlert(_ context.Context, a domain.RiskAlert) error {
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, a)
	return nil
}

type readiness struct{ err error }

func (r readiness) CheckReadiness(context.Context) error { return r.err }

func newTestService(t *testing.T, bundles map[string]*domain.ModelBundle, opts ...Option) (*Service, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	svc := NewService(&fakeResolver{bundles: bundles}, newTestEngine(t), mustProfiles(t), slog.Default(), m, opts...)
	return svc, m
}

// hotDryBundle pushes an arid location into HIGH heatwave and drought.
func hotDryBundle(location string) *domain.ModelBundle {
	return artifacttest.Bundle(location, map[domain.Target]float64{
		domain.TargetTemperature: 45,
		domain.TargetHumidity:    20,
	})
}

// --- Forecast ---

func TestService_ForecastModel(t *testing.T) {
	freezeClock(t)
	svc, m := newTestService(t, map[string]*domain.ModelBundle{
		"pune": artifacttest.Bundle("pune", artifacttest.FullValues()),
	})

	f, err := svc.Forecast(context.Background(), "Pune", 7)
	require.NoError(t, err)

	assert.Equal(t, "pune", f.Location)
	assert.Equal(t, "Pune", f.DisplayName)
	assert.Equal(t, domain.OriginModel, f.Origin)
	assert.Equal(t, "local", f.Source)
	assert.Equal(t, domain.AllTargets, f.Covered)
	assert.Len(t, f.Days, 7)
	assert.Empty(t, f.Alerts)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Forecasts.WithLabelValues("model", "success")), 0)
}

func TestService_ForecastSynthetic(t *testing.T) {
	freezeClock(t)
	svc, m := newTestService(t, nil)

	f, err := svc.Forecast(context.Background(), "jaipur", 5)
	require.NoError(t, err)

	assert.Equal(t, domain.OriginSynthetic, f.Origin)
	assert.Empty(t, f.Source)
	assert.Equal(t, domain.AllTargets, f.Covered)
	assert.Len(t, f.Days, 5)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Forecasts.WithLabelValues("synthetic", "success")), 0)
}

func TestService_ForecastFirstDayAlerts(t *testing.T) {
	freezeClock(t)
	svc, _ := newTestService(t, map[string]*domain.ModelBundle{"jaipur": hotDryBundle("jaipur")})

	f, err := svc.Forecast(context.Background(), "jaipur", 3)
	require.NoError(t, err)
	require.Len(t, f.Alerts, 1)
	assert.Equal(t, "high_temperature", f.Alerts[0].Kind)
}

func TestService_ForecastInvalidHorizon(t *testing.T) {
	svc, m := newTestService(t, nil)

	_, err := svc.Forecast(context.Background(), "pune", 0)
	require.ErrorIs(t, err, domain.ErrInvalidHorizon)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Forecasts.WithLabelValues("synthetic", "error")), 0)
}

func TestService_ForecastUnavailable(t *testing.T) {
	freezeClock(t)
	bundle := artifacttest.Bundle("pune", artifacttest.FullValues())
	bundle.Temperature.Regressor = panicRegressor{}
	svc, _ := newTestService(t, map[string]*domain.ModelBundle{"pune": bundle})

	_, err := svc.Forecast(context.Background(), "pune", 3)
	require.ErrorIs(t, err, domain.ErrForecastUnavailable)
}

// --- Assess ---

func TestService_AssessPublishesHighRisk(t *testing.T) {
	freezeClock(t)
	pub := &recordingPublisher{}
	svc, m := newTestService(t,
		map[string]*domain.ModelBundle{"jaipur": hotDryBundle("jaipur")},
		WithAlertPublisher(pub),
		WithLookbackDays(14),
	)

	a, err := svc.Assess(context.Background(), "jaipur")
	require.NoError(t, err)

	assert.Equal(t, domain.ClassArid, a.Risk.Classification)
	assert.Equal(t, domain.RiskHigh, a.Risk.Heatwave)
	assert.Equal(t, domain.RiskHigh, a.Risk.Drought)
	assert.Equal(t, domain.RiskLow, a.Risk.Storm, "wind is not covered")
	assert.Equal(t, domain.RiskLow, a.Risk.Flood)
	assert.Equal(t, domain.RiskWindowDays, a.Risk.Window.Days)
	assert.Equal(t, "2024-06-17", a.Risk.Window.Start, "trailing week of a 14-day lookback")
	assert.Len(t, a.Recommendations, 2)
	assert.True(t, a.AlertPublished)

	require.Len(t, pub.alerts, 1)
	assert.Equal(t, "jaipur", pub.alerts[0].Location)
	assert.Equal(t, []domain.Hazard{domain.HazardHeatwave, domain.HazardDrought}, pub.alerts[0].HighHazards)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AlertsPublished), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RiskAssessments.WithLabelValues("heatwave", "HIGH")), 0)
}

func TestService_AssessNoAlertWhenNothingHigh(t *testing.T) {
	freezeClock(t)
	pub := &recordingPublisher{}
	svc, _ := newTestService(t,
		map[string]*domain.ModelBundle{"pune": artifacttest.Bundle("pune", map[domain.Target]float64{
			domain.TargetTemperature: 25,
			domain.TargetHumidity:    60,
			domain.TargetWindSpeed:   5,
		})},
		WithAlertPublisher(pub),
	)

	a, err := svc.Assess(context.Background(), "pune")
	require.NoError(t, err)
	assert.Empty(t, a.Risk.HighHazards())
	assert.False(t, a.AlertPublished)
	assert.Empty(t, pub.alerts)
}

func TestService_AssessPublishFailureDoesNotFail(t *testing.T) {
	freezeClock(t)
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	svc, m := newTestService(t,
		map[string]*domain.ModelBundle{"jaipur": hotDryBundle("jaipur")},
		WithAlertPublisher(pub),
	)

	a, err := svc.Assess(context.Background(), "jaipur")
	require.NoError(t, err)
	assert.False(t, a.AlertPublished)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AlertPublishErrors), 0)
}

func TestWithLookbackDays_FloorsAtWindow(t *testing.T) {
	svc, _ := newTestService(t, nil, WithLookbackDays(3))
	assert.Equal(t, domain.RiskWindowDays, svc.lookbackDays)
}

// --- Trends ---

func TestService_Trends(t *testing.T) {
	freezeClock(t)
	bundle := &domain.ModelBundle{Location: "pune"}
	bundle.SetModel(domain.TargetTemperature, artifacttest.MonthModel(20))
	bundle.SetModel(domain.TargetHumidity, artifacttest.ConstantModel(60))
	svc, _ := newTestService(t, map[string]*domain.ModelBundle{"pune": bundle})

	tr, err := svc.Trends(context.Background(), "pune", 60)
	require.NoError(t, err)

	assert.Equal(t, domain.OriginModel, tr.Origin)
	assert.Equal(t, 60, tr.Analysis.Days)
	assert.Equal(t, domain.TrendIncreasing, tr.Analysis.TemperatureDirection)
	assert.Equal(t, domain.TrendStable, tr.Analysis.HumidityDirection)
	assert.Len(t, tr.Analysis.Monthly, 3)
}

// --- Compare ---

func TestService_Compare(t *testing.T) {
	freezeClock(t)
	res := &fakeResolver{bundles: map[string]*domain.ModelBundle{
		"pune": artifacttest.Bundle("pune", artifacttest.FullValues()),
	}}
	svc := NewService(res, newTestEngine(t), mustProfiles(t), slog.Default(), observability.NewMetricsForTesting())

	c, err := svc.Compare(context.Background(), []string{"Pune", "mumbai", "jaipur"}, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Days)
	require.Len(t, c.Locations, 3)
	assert.Equal(t, "pune", c.Locations[0].Location)
	assert.Equal(t, "mumbai", c.Locations[1].Location)
	assert.Equal(t, "jaipur", c.Locations[2].Location)
	assert.Equal(t, domain.OriginModel, c.Locations[0].Origin)
	assert.Equal(t, domain.OriginSynthetic, c.Locations[1].Origin)
	require.NotNil(t, c.Locations[0].AvgTemperature)
	assert.InDelta(t, 31.3, *c.Locations[0].AvgTemperature, 1e-9)
	assert.NotNil(t, c.Locations[1].AvgPressure, "synthetic covers every target")
	assert.Equal(t, domain.ClassTropical, c.Locations[1].Profile.Classification)
	assert.Len(t, res.calls, 3)
}

func TestService_CompareSkipsUncoveredTargets(t *testing.T) {
	freezeClock(t)
	svc, _ := newTestService(t, map[string]*domain.ModelBundle{
		"jaipur": artifacttest.Bundle("jaipur", map[domain.Target]float64{
			domain.TargetTemperature: 34,
			domain.TargetHumidity:    40,
		}),
	})

	c, err := svc.Compare(context.Background(), []string{"jaipur", "mumbai"}, 5)
	require.NoError(t, err)

	e := c.Locations[0]
	require.NotNil(t, e.AvgTemperature)
	require.NotNil(t, e.AvgHumidity)
	assert.InDelta(t, 34.0, *e.AvgTemperature, 1e-9)
	assert.InDelta(t, 40.0, *e.AvgHumidity, 1e-9)
	assert.Nil(t, e.AvgPressure)
	assert.Nil(t, e.AvgWindSpeed)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "avg_pressure")
	assert.NotContains(t, string(data), "avg_wind_speed")
}

func TestService_CompareRejectsInvalidLocation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Compare(context.Background(), []string{"../evil", "pune"}, 5)
	require.ErrorIs(t, err, domain.ErrInvalidLocation)
}

func TestService_RejectsPathLikeLocations(t *testing.T) {
	freezeClock(t)
	res := &fakeResolver{}
	svc := NewService(res, newTestEngine(t), mustProfiles(t), slog.Default(), observability.NewMetricsForTesting())

	_, err := svc.Forecast(context.Background(), "../evil", 3)
	require.ErrorIs(t, err, domain.ErrInvalidLocation)
	_, err = svc.Assess(context.Background(), "a/b")
	require.ErrorIs(t, err, domain.ErrInvalidLocation)
	_, err = svc.Trends(context.Background(), "..", 3)
	require.ErrorIs(t, err, domain.ErrInvalidLocation)
	assert.Empty(t, res.calls, "nothing reaches the resolver")
}

func TestService_CompareRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Compare(context.Background(), []string{"New Delhi", "new_delhi"}, 5)
	require.ErrorIs(t, err, domain.ErrSameLocation)
}

func TestService_CompareLocationCount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	for _, locs := range [][]string{{"pune"}, {"a", "b", "c", "d", "e"}} {
		_, err := svc.Compare(context.Background(), locs, 5)
		require.ErrorIs(t, err, domain.ErrInvalidComparison)
	}
}

func TestService_CompareFailsWhenOneLocationFails(t *testing.T) {
	freezeClock(t)
	broken := artifacttest.Bundle("pune", artifacttest.FullValues())
	broken.Humidity.Regressor = failingRegressor{}
	svc, _ := newTestService(t, map[string]*domain.ModelBundle{"pune": broken})

	_, err := svc.Compare(context.Background(), []string{"pune", "mumbai"}, 5)
	require.ErrorIs(t, err, domain.ErrForecastUnavailable)
	assert.Contains(t, err.Error(), "pune")
}

// --- ModelInfo, Profile, Search, readiness ---

func TestService_ModelInfo(t *testing.T) {
	svc, _ := newTestService(t, map[string]*domain.ModelBundle{
		"jaipur": hotDryBundle("jaipur"),
	})

	info := svc.ModelInfo(context.Background(), "Jaipur")
	assert.True(t, info.Available)
	assert.Equal(t, "local", info.Source)
	assert.Equal(t, domain.TargetSet(0).With(domain.TargetTemperature).With(domain.TargetHumidity), info.Covered)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, "RandomForest", info.Metadata.ModelType)

	absent := svc.ModelInfo(context.Background(), "atlantis")
	assert.False(t, absent.Available)
	assert.Nil(t, absent.Metadata)
	require.Len(t, absent.Attempts, 1)
	assert.Equal(t, resolver.OutcomeMiss, absent.Attempts[0].Outcome)
}

func TestService_ProfileAndSearch(t *testing.T) {
	svc, _ := newTestService(t, nil)

	assert.Equal(t, domain.ClassArid, svc.Profile("Jaipur").Classification)
	assert.Equal(t, domain.DefaultProfileID, svc.Profile("atlantis").ID)
	assert.Contains(t, svc.Search("delhi"), "new_delhi")
}

func TestService_CheckReadiness(t *testing.T) {
	svc, _ := newTestService(t, nil, WithReadinessCheck(readiness{}))
	require.NoError(t, svc.CheckReadiness(context.Background()))

	svc, _ = newTestService(t, nil, WithReadinessCheck(readiness{err: errors.New("model dir missing")}))
	require.EqualError(t, svc.CheckReadiness(context.Background()), "model dir missing")

	empty := NewService(&fakeResolver{}, newTestEngine(t), nil, slog.Default(), observability.NewMetricsForTesting())
	require.Error(t, empty.CheckReadiness(context.Background()))
}
