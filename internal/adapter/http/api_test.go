package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/climate-forecast-service/internal/adapter/http"
	"github.com/couchcryptid/climate-forecast-service/internal/adapter/localfs"
	"github.com/couchcryptid/climate-forecast-service/internal/artifact/artifacttest"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/forecast"
	"github.com/couchcryptid/climate-forecast-service/internal/observability"
	"github.com/couchcryptid/climate-forecast-service/internal/resolver"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// --- routing and parameter handling against the mock ---

func TestForecastRoute_DefaultsAndParams(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc)

	rec := get(t, srv, "/v1/locations/new%20delhi/forecast")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new delhi", svc.gotLocation)
	assert.Equal(t, 7, svc.gotDays)

	rec = get(t, srv, "/v1/locations/pune/forecast?days=14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, svc.gotDays)
}

func TestTrendsRoute_DefaultDays(t *testing.T) {
	svc := &mockService{}
	rec := get(t, newTestServer(svc), "/v1/locations/pune/trends")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, svc.gotDays)
}

func TestCompareRoute_SplitsLocations(t *testing.T) {
	svc := &mockService{}
	rec := get(t, newTestServer(svc), "/v1/compare?locations=pune,%20mumbai,,jaipur&days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pune", "mumbai", "jaipur"}, svc.gotLocations)
	assert.Equal(t, 3, svc.gotDays)
}

func TestSearchRoute(t *testing.T) {
	rec := get(t, newTestServer(&mockService{}), "/v1/locations?q=del")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"locations":[{"id":"new_delhi","name":"New Delhi"}]}`, rec.Body.String())
}

func TestProfileRoute(t *testing.T) {
	rec := get(t, newTestServer(&mockService{}), "/v1/locations/jaipur/profile")
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.ClimateProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "jaipur", p.ID)
	assert.Equal(t, domain.ClassArid, p.Classification)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		want   int
	}{
		{"non-integer days", nil, "/v1/locations/pune/forecast?days=week", http.StatusBadRequest},
		{"blank location", nil, "/v1/locations/%20/forecast", http.StatusBadRequest},
		{"invalid horizon", fmt.Errorf("%w: 0 days", domain.ErrInvalidHorizon), "/v1/locations/pune/forecast?days=0", http.StatusBadRequest},
		{"duplicate compare", domain.ErrSameLocation, "/v1/compare?locations=pune,pune", http.StatusBadRequest},
		{"compare count", domain.ErrInvalidComparison, "/v1/compare?locations=pune", http.StatusBadRequest},
		{"punctuated location", nil, "/v1/locations/pune%3B/risk", http.StatusBadRequest},
		{"invalid location", domain.ErrInvalidLocation, "/v1/locations/pune/trends", http.StatusBadRequest},
		{"unavailable", fmt.Errorf("%w: model panicked", domain.ErrForecastUnavailable), "/v1/locations/pune/risk", http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), "/v1/locations/pune/trends", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(&mockService{err: tt.err}), tt.target)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCompareRoute_RejectsTraversal(t *testing.T) {
	svc := &mockService{}
	rec := get(t, newTestServer(svc), "/v1/compare?locations=..%2Fevil,pune")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid location")
	assert.Nil(t, svc.gotLocations, "service is not called")
}

// --- end to end through the real service and local tier ---

func newRealServer(t *testing.T) http.Handler {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	root := t.TempDir()
	require.NoError(t, localfs.WriteBundle(root, artifacttest.Bundle("pune", artifacttest.FullValues())))
	require.NoError(t, localfs.WriteBundle(root, artifacttest.Bundle("jaipur", map[domain.Target]float64{
		domain.TargetTemperature: 43,
		domain.TargetHumidity:    35,
	})))

	profiles, err := domain.LoadProfiles()
	require.NoError(t, err)
	logger := slog.Default()
	metrics := observability.NewMetricsForTesting()

	local := localfs.NewStore(root, logger)
	res := resolver.New([]resolver.Tier{local}, logger, metrics)
	engine := forecast.NewEngine(
		domain.NewFeatureBuilder(profiles, logger),
		domain.NewSyntheticGenerator(profiles, domain.NewSource(1)),
		365,
		logger,
	)
	svc := forecast.NewService(res, engine, profiles, logger, metrics, forecast.WithReadinessCheck(local))
	return httpadapter.NewServer(":0", svc, logger)
}

func TestAPI_ModelForecast(t *testing.T) {
	srv := newRealServer(t)

	rec := get(t, srv, "/v1/locations/pune/forecast?days=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var f struct {
		Origin  string   `json:"origin"`
		Source  string   `json:"source"`
		Covered []string `json:"covered"`
		Days    []struct {
			Date        string  `json:"date"`
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"wind_speed"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, "model", f.Origin)
	assert.Equal(t, "local", f.Source)
	assert.Len(t, f.Covered, 4)
	require.Len(t, f.Days, 3)
	assert.Equal(t, "2024-06-10", f.Days[0].Date)
	assert.Equal(t, "2024-06-12", f.Days[2].Date)
	assert.InDelta(t, 31.3, f.Days[0].Temperature, 1e-9)
	assert.InDelta(t, 11.6, f.Days[0].WindSpeed, 1e-9)
}

func TestAPI_RiskForPartialAridBundle(t *testing.T) {
	srv := newRealServer(t)

	rec := get(t, srv, "/v1/locations/jaipur/risk")
	require.Equal(t, http.StatusOK, rec.Code)

	var a struct {
		Risk struct {
			Heatwave       string `json:"heatwave"`
			Storm          string `json:"storm"`
			Classification string `json:"classification"`
		} `json:"risk"`
		Recommendations []struct {
			Hazard string `json:"hazard"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "arid", a.Risk.Classification)
	assert.Equal(t, "HIGH", a.Risk.Heatwave, "43 exceeds the arid 42 threshold")
	assert.Equal(t, "LOW", a.Risk.Storm)
	require.Len(t, a.Recommendations, 1)
	assert.Equal(t, "heatwave", a.Recommendations[0].Hazard)
}

func TestAPI_SyntheticFallbackAndModelInfo(t *testing.T) {
	srv := newRealServer(t)

	rec := get(t, srv, "/v1/locations/mumbai/forecast?days=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"origin":"synthetic"`)

	rec = get(t, srv, "/v1/locations/mumbai/model")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)

	rec = get(t, srv, "/v1/locations/pune/model")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":true`)
	assert.Contains(t, rec.Body.String(), `"source":"local"`)
}

func TestAPI_Readyz(t *testing.T) {
	rec := get(t, newRealServer(t), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
