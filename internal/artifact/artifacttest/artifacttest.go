// Package artifacttest builds small, valid model bundles for tests.
package artifacttest

import (
	"github.com/couchcryptid/climate-forecast-service/internal/artifact"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

// ConstantModel returns a target model that predicts v for every input.
func ConstantModel(v float64) *domain.TargetModel {
	scale := make([]float64, domain.FeatureCount)
	for i := range scale {
		scale[i] = 1
	}
	return &domain.TargetModel{
		Regressor: &artifact.Linear{Coefficients: make([]float64, domain.FeatureCount), Intercept: v},
		Scaler:    &artifact.StandardScaler{Mean: make([]float64, domain.FeatureCount), Scale: scale},
	}
}

// MonthModel predicts base + month, so predictions vary across the year.
func MonthModel(base float64) *domain.TargetModel {
	m := ConstantModel(base)
	coef := make([]float64, domain.FeatureCount)
	coef[0] = 1
	m.Regressor = &artifact.Linear{Coefficients: coef, Intercept: base}
	return m
}

// Bundle returns a bundle for location with a constant model per entry in values.
func Bundle(location string, values map[domain.Target]float64) *domain.ModelBundle {
	b := &domain.ModelBundle{
		Location: location,
		Metadata: domain.BundleMetadata{
			ModelType:    "RandomForest",
			TrainingDate: "2024-06-01",
			Performance: map[string]domain.Performance{
				"temperature": {R2: 0.92, MAE: 1.1, RMSE: 1.5},
			},
		},
	}
	for t, v := range values {
		b.SetModel(t, ConstantModel(v))
	}
	return b
}

// FullValues is a plausible reading for every target.
func FullValues() map[domain.Target]float64 {
	return map[domain.Target]float64{
		domain.TargetTemperature: 31.26,
		domain.TargetHumidity:    68.4,
		domain.TargetPressure:    1008.44,
		domain.TargetWindSpeed:   11.6,
	}
}
