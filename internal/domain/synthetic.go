package domain

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// ProfileLookup resolves a location to a profile without failing.
type ProfileLookup interface {
	ProfileFor(location string) ClimateProfile
}

// SyntheticGenerator fabricates plausible daily weather from a location's
// climate baseline when no trained model is available.
type SyntheticGenerator struct {
	profiles ProfileLookup

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator drawing noise from src. Pass a
// fixed-seed source for reproducible output.
func NewSyntheticGenerator(profiles ProfileLookup, src rand.Source) *SyntheticGenerator {
	return &SyntheticGenerator{profiles: profiles, rng: rand.New(src)}
}

// NewSource returns a PCG source for seed, or a time-seeded one when seed is zero.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Generate returns horizon days starting today. Every call draws fresh noise.
func (g *SyntheticGenerator) Generate(location string, horizon int) ([]ForecastDay, error) {
	if horizon <= 0 {
		return nil, ErrInvalidHorizon
	}
	p := g.profiles.ProfileFor(location)

	g.mu.Lock()
	defer g.mu.Unlock()

	days := make([]ForecastDay, 0, horizon)
	for _, date := range ForecastDates(Today(), horizon) {
		days = append(days, g.day(date, p))
	}
	return days, nil
}

func (g *SyntheticGenerator) day(date time.Time, p ClimateProfile) ForecastDay {
	seasonal := math.Sin(2 * math.Pi * float64(date.YearDay()) / 365.25)

	temp := p.AvgTemp + 8*seasonal + g.noise(2)
	humidity := p.AvgHumidity - 10*seasonal + g.noise(5)
	pressure := p.AvgPressure + g.noise(3)
	wind := p.WindSpeed + g.noise(2)

	switch p.Classification {
	case ClassTropical:
		humidity = math.Max(humidity, 60)
		temp = clamp(temp, 22, 38)
	case ClassArid:
		humidity = math.Min(humidity, 50)
		temp = clamp(temp, 25, 45)
	case ClassTemperate:
		temp = clamp(temp, 15, 35)
		humidity = clamp(humidity, 40, 80)
	}

	return ForecastDay{
		Date:        date,
		Temperature: round1(clamp(temp, 15, 45)),
		Humidity:    round1(clamp(humidity, 20, 95)),
		Pressure:    round1(clamp(pressure, 980, 1020)),
		WindSpeed:   round1(clamp(wind, 0, 20)),
		Covered:     AllTargets,
	}
}

func (g *SyntheticGenerator) noise(stddev float64) float64 {
	return g.rng.NormFloat64() * stddev
}
