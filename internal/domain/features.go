package domain

import (
	"log/slog"
	"math"
	"time"
)

// FeatureCount is the length of every model input vector.
const FeatureCount = 21

// forecastHour pins the hour features to midday for daily forecasts.
const forecastHour = 12

// FeatureNames lists the vector positions in training order. Reordering this
// silently corrupts every prediction.
var FeatureNames = [FeatureCount]string{
	"month",
	"day",
	"weekday",
	"seasonal_sin",
	"seasonal_cos",
	"seasonal_sin_2",
	"seasonal_cos_2",
	"hour_sin",
	"hour_cos",
	"temp_humidity_interaction",
	"pressure_temp_ratio",
	"cloud_cover",
	"visibility",
	"wind_direction",
	"feels_like",
	"pressure",
	"wind_speed",
	"day_of_year",
	"hour",
	"latitude",
	"longitude",
}

// FeatureVector is one model input row.
type FeatureVector [FeatureCount]float64

// FeatureBuilder turns a (date, location) pair into a FeatureVector.
type FeatureBuilder struct {
	profiles ProfileSource
	logger   *slog.Logger
}

// NewFeatureBuilder creates a builder that reads baselines from profiles.
func NewFeatureBuilder(profiles ProfileSource, logger *slog.Logger) *FeatureBuilder {
	return &FeatureBuilder{profiles: profiles, logger: logger}
}

// Build never fails: a baseline that cannot be looked up, or one whose
// temperature would zero the pressure ratio, is replaced by DefaultBaseline.
func (b *FeatureBuilder) Build(date time.Time, location string) FeatureVector {
	return FeaturesFor(date, b.baseline(location))
}

func (b *FeatureBuilder) baseline(location string) ClimateProfile {
	if b.profiles == nil {
		return DefaultBaseline()
	}
	p, err := b.profiles.Profile(location)
	if err != nil {
		b.logger.Warn("profile lookup failed, using default baseline",
			"location", location,
			"error", err,
		)
		return DefaultBaseline()
	}
	if p.AvgTemp == 0 {
		b.logger.Warn("profile has zero avg_temp, using default baseline", "location", location)
		return DefaultBaseline()
	}
	return p
}

// FeaturesFor computes the vector for date from a resolved baseline.
func FeaturesFor(date time.Time, p ClimateProfile) FeatureVector {
	doy := float64(date.YearDay())
	annual := 2 * math.Pi * doy / 365.25
	semiAnnual := 4 * math.Pi * doy / 365.25
	hourAngle := 2 * math.Pi * forecastHour / 24

	return FeatureVector{
		float64(date.Month()),
		float64(date.Day()),
		float64(mondayWeekday(date.Weekday())),
		math.Sin(annual),
		math.Cos(annual),
		math.Sin(semiAnnual),
		math.Cos(semiAnnual),
		math.Sin(hourAngle),
		math.Cos(hourAngle),
		p.AvgTemp * p.AvgHumidity / 100,
		p.AvgPressure / p.AvgTemp,
		p.CloudCover,
		p.Visibility,
		p.WindDirection,
		p.AvgTemp,
		p.AvgPressure,
		p.WindSpeed,
		doy,
		forecastHour,
		p.Latitude,
		p.Longitude,
	}
}

// mondayWeekday numbers days Monday=0 through Sunday=6, matching the
// encoding the models were trained with.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}
