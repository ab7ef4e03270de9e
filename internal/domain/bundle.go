package domain

// Regressor predicts one target from a scaled feature row.
type Regressor interface {
	Predict(x []float64) (float64, error)
	NumFeatures() int
}

// Scaler standardises a feature row before it reaches a Regressor.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
	NumFeatures() int
}

// TargetModel is the regressor/scaler pair trained for one target.
type TargetModel struct {
	Regressor Regressor
	Scaler    Scaler
}

// Performance holds held-out evaluation scores recorded at training time.
type Performance struct {
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// BundleMetadata is the model_info document stored next to a bundle's artefacts.
type BundleMetadata struct {
	Location       string                 `json:"location,omitempty"`
	ModelType      string                 `json:"model_type"`
	TrainingDate   string                 `json:"training_date"`
	LastUpdated    string                 `json:"last_updated,omitempty"`
	TrainingScript string                 `json:"training_script,omitempty"`
	Targets        []string               `json:"targets,omitempty"`
	Performance    map[string]Performance `json:"model_performance,omitempty"`
}

// ModelBundle holds the trained models for one location. A target field is
// non-nil only when both its regressor and scaler loaded.
type ModelBundle struct {
	Location    string
	Metadata    BundleMetadata
	Temperature *TargetModel
	Humidity    *TargetModel
	Pressure    *TargetModel
	WindSpeed   *TargetModel
}

// Model returns the pair for t, or nil when the bundle does not cover it.
func (b *ModelBundle) Model(t Target) *TargetModel {
	if b == nil {
		return nil
	}
	switch t {
	case TargetTemperature:
		return b.Temperature
	case TargetHumidity:
		return b.Humidity
	case TargetPressure:
		return b.Pressure
	case TargetWindSpeed:
		return b.WindSpeed
	}
	return nil
}

// SetModel stores m as the pair for t.
func (b *ModelBundle) SetModel(t Target, m *TargetModel) {
	switch t {
	case TargetTemperature:
		b.Temperature = m
	case TargetHumidity:
		b.Humidity = m
	case TargetPressure:
		b.Pressure = m
	case TargetWindSpeed:
		b.WindSpeed = m
	}
}

// Covered returns the set of targets the bundle can predict.
func (b *ModelBundle) Covered() TargetSet {
	var s TargetSet
	for _, t := range Targets {
		if b.Model(t) != nil {
			s = s.With(t)
		}
	}
	return s
}

// Empty reports whether the bundle is nil or covers no targets. Empty bundles
// are treated as absent.
func (b *ModelBundle) Empty() bool {
	return b.Covered() == 0
}
