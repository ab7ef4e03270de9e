package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

// StandardScaler applies z-score standardisation with per-feature mean and scale,
// matching a fitted scikit-learn StandardScaler exported to JSON.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type scalerDoc struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// DecodeScaler parses a scaler artefact.
func DecodeScaler(data []byte) (*StandardScaler, error) {
	var doc scalerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode scaler: %v", domain.ErrInvalidArtifact, err)
	}
	if doc.Kind != "" && doc.Kind != "standard" {
		return nil, fmt.Errorf("%w: unsupported scaler kind %q", domain.ErrInvalidArtifact, doc.Kind)
	}
	if len(doc.Mean) == 0 {
		return nil, fmt.Errorf("%w: scaler has no features", domain.ErrInvalidArtifact)
	}
	if len(doc.Scale) != len(doc.Mean) {
		return nil, fmt.Errorf("%w: scaler mean has %d values, scale has %d",
			domain.ErrInvalidArtifact, len(doc.Mean), len(doc.Scale))
	}
	return &StandardScaler{Mean: doc.Mean, Scale: doc.Scale}, nil
}

// NumFeatures returns the row width the scaler was fitted on.
func (s *StandardScaler) NumFeatures() int { return len(s.Mean) }

// Transform returns (x-mean)/scale. A zero scale is treated as 1, since a
// constant training column carries no variance to divide out.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// MarshalJSON writes the artefact form, including its kind tag.
func (s *StandardScaler) MarshalJSON() ([]byte, error) {
	return json.Marshal(scalerDoc{Kind: "standard", Mean: s.Mean, Scale: s.Scale})
}

// EncodeScaler writes s in artefact form.
func EncodeScaler(s domain.Scaler) ([]byte, error) {
	ss, ok := s.(*StandardScaler)
	if !ok {
		return nil, fmt.Errorf("encode scaler: unsupported type %T", s)
	}
	return json.Marshal(ss)
}
