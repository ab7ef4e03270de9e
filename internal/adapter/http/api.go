package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/forecast"
)

const (
	defaultForecastDays = 7
	defaultTrendDays    = 30
)

// ForecastService is what the API routes call into.
type ForecastService interface {
	ReadinessChecker
	Forecast(ctx context.Context, location string, days int) (forecast.Forecast, error)
	Assess(ctx context.Context, location string) (forecast.Assessment, error)
	Trends(ctx context.Context, location string, days int) (forecast.Trends, error)
	Compare(ctx context.Context, locations []string, days int) (forecast.Comparison, error)
	ModelInfo(ctx context.Context, location string) forecast.ModelInfo
	Profile(location string) domain.ClimateProfile
	Search(term string) []string
}

var errBadRequest = errors.New("bad request")

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/locations", s.handleSearch)
	mux.HandleFunc("GET /v1/locations/{location}/profile", s.handleProfile)
	mux.HandleFunc("GET /v1/locations/{location}/forecast", s.handleForecast)
	mux.HandleFunc("GET /v1/locations/{location}/risk", s.handleRisk)
	mux.HandleFunc("GET /v1/locations/{location}/trends", s.handleTrends)
	mux.HandleFunc("GET /v1/locations/{location}/model", s.handleModel)
	mux.HandleFunc("GET /v1/compare", s.handleCompare)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ids := s.svc.Search(r.URL.Query().Get("q"))
	type location struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]location, len(ids))
	for i, id := range ids {
		out[i] = location{ID: id, Name: domain.DisplayName(id)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	loc, err := pathLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Profile(loc))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	loc, err := pathLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	days, err := queryDays(r, defaultForecastDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.Forecast(r.Context(), loc, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	loc, err := pathLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.svc.Assess(r.Context(), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	loc, err := pathLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	days, err := queryDays(r, defaultTrendDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tr, err := s.svc.Trends(r.Context(), loc, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	loc, err := pathLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ModelInfo(r.Context(), loc))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var locations []string
	for _, l := range strings.Split(r.URL.Query().Get("locations"), ",") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		loc, err := checkLocation(l)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		locations = append(locations, loc)
	}
	days, err := queryDays(r, defaultForecastDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.svc.Compare(r.Context(), locations, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func pathLocation(r *http.Request) (string, error) {
	return checkLocation(r.PathValue("location"))
}

// checkLocation rejects names that cannot be used as a bundle path segment.
func checkLocation(raw string) (string, error) {
	loc := strings.TrimSpace(raw)
	if domain.NormalizeLocation(loc) == "" {
		return "", fmt.Errorf("%w: location is required", errBadRequest)
	}
	if !domain.ValidLocationID(domain.NormalizeLocation(loc)) {
		return "", fmt.Errorf("%w: invalid location %q", errBadRequest, loc)
	}
	return loc, nil
}

func queryDays(r *http.Request, fallback int) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: days must be an integer", errBadRequest)
	}
	return n, nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidHorizon),
		errors.Is(err, domain.ErrSameLocation),
		errors.Is(err, domain.ErrInvalidComparison),
		errors.Is(err, domain.ErrInvalidLocation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForecastUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
