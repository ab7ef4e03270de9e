// Package resolver finds the trained model bundle for a location by trying
// each configured tier in order and stopping at the first usable bundle.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/observability"
)

// Tier is one place bundles can be loaded from.
type Tier interface {
	Name() string
	Load(ctx context.Context, location string) (*domain.ModelBundle, error)
}

// Outcome is the result of asking one tier for a bundle.
type Outcome string

const (
	OutcomeHit   Outcome = "hit"
	OutcomeMiss  Outcome = "miss"
	OutcomeError Outcome = "error"
)

// Attempt records what a single tier returned.
type Attempt struct {
	Tier     string        `json:"tier"`
	Outcome  Outcome       `json:"outcome"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"-"`
}

// Resolution is the outcome of a resolve call. Bundle is nil when no tier
// produced a usable bundle; it is never an empty bundle.
type Resolution struct {
	Location string
	Bundle   *domain.ModelBundle
	Source   string
	Attempts []Attempt
	Cached   bool
}

// Absent reports whether no bundle could be resolved.
func (r Resolution) Absent() bool { return r.Bundle == nil }

// BundleCache memoizes resolutions per location. Implementations must be
// safe for concurrent use.
type BundleCache interface {
	Get(location string) (Resolution, bool)
	Put(location string, res Resolution)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache layers a cache above the tiers.
func WithCache(c BundleCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// Resolver walks its tiers in order.
type Resolver struct {
	tiers   []Tier
	cache   BundleCache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Resolver trying tiers in the order given.
func New(tiers []Tier, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Resolver {
	r := &Resolver{tiers: tiers, logger: logger, metrics: metrics}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tiers returns the tier names in resolution order.
func (r *Resolver) Tiers() []string {
	names := make([]string, len(r.tiers))
	for i, t := range r.tiers {
		names[i] = t.Name()
	}
	return names
}

// Resolve returns the first non-empty bundle any tier can load. Tier
// failures are recorded in the resolution and never returned as errors. An
// identifier that is not canonical resolves absent without touching the
// tiers or the cache.
func (r *Resolver) Resolve(ctx context.Context, location string) Resolution {
	id := domain.NormalizeLocation(location)
	if !domain.ValidLocationID(id) {
		return Resolution{Location: id}
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(id); ok {
			r.metrics.BundleCache.WithLabelValues("hit").Inc()
			res.Cached = true
			return res
		}
		r.metrics.BundleCache.WithLabelValues("miss").Inc()
	}

	res := Resolution{Location: id}
	for _, tier := range r.tiers {
		a, bundle := r.try(ctx, tier, id)
		res.Attempts = append(res.Attempts, a)
		if a.Outcome == OutcomeHit {
			res.Bundle = bundle
			res.Source = tier.Name()
			break
		}
	}

	if res.Absent() {
		r.logger.Debug("no model bundle resolved", "location", id, "tiers", len(r.tiers))
	}

	// A cancelled caller says nothing about what the tiers hold.
	if r.cache != nil && ctx.Err() == nil {
		r.cache.Put(id, res)
	}
	return res
}

func (r *Resolver) try(ctx context.Context, tier Tier, location string) (Attempt, *domain.ModelBundle) {
	start := time.Now()
	bundle, err := tier.Load(ctx, location)
	a := Attempt{Tier: tier.Name(), Err: err, Duration: time.Since(start)}

	switch {
	case err == nil && bundle != nil && !bundle.Empty():
		a.Outcome = OutcomeHit
	case err == nil, errors.Is(err, domain.ErrBundleNotFound):
		a.Outcome = OutcomeMiss
		bundle = nil
	default:
		a.Outcome = OutcomeError
		bundle = nil
		r.logger.Warn("bundle tier failed",
			"location", location,
			"tier", tier.Name(),
			"error", err,
		)
	}

	r.metrics.BundleResolutions.WithLabelValues(a.Tier, string(a.Outcome)).Inc()
	r.metrics.BundleResolveDuration.WithLabelValues(a.Tier).Observe(a.Duration.Seconds())
	return a, bundle
}
