package domain

import "time"

// RiskAlert is the event published when an assessment finds at least one HIGH hazard.
type RiskAlert struct {
	Location        string           `json:"location"`
	DisplayName     string           `json:"display_name"`
	Classification  Classification   `json:"classification"`
	AssessedAt      time.Time        `json:"assessed_at"`
	HighHazards     []Hazard         `json:"high_hazards"`
	Assessment      RiskAssessment   `json:"assessment"`
	Recommendations []Recommendation `json:"recommendations"`
}

// NewRiskAlert builds the alert for a, or reports false when nothing is HIGH.
func NewRiskAlert(location string, a RiskAssessment, at time.Time) (RiskAlert, bool) {
	high := a.HighHazards()
	if len(high) == 0 {
		return RiskAlert{}, false
	}
	id := NormalizeLocation(location)
	return RiskAlert{
		Location:        id,
		DisplayName:     DisplayName(id),
		Classification:  a.Classification,
		AssessedAt:      at.UTC(),
		HighHazards:     high,
		Assessment:      a,
		Recommendations: Recommendations(a),
	}, true
}
