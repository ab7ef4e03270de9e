package domain

import "math"

// RiskWindowDays is the length of the trailing window risk is assessed over.
const RiskWindowDays = 7

// RiskLevel is the categorical severity of one hazard.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Hazard names a disaster category.
type Hazard string

const (
	HazardHeatwave Hazard = "heatwave"
	HazardDrought  Hazard = "drought"
	HazardStorm    Hazard = "storm"
	HazardFlood    Hazard = "flood"
)

// Hazards lists every hazard in reporting order.
var Hazards = [...]Hazard{HazardHeatwave, HazardDrought, HazardStorm, HazardFlood}

// Thresholds is one classification's risk table.
type Thresholds struct {
	HeatwaveHigh   float64 `json:"heatwave_high"`
	HeatwaveMedium float64 `json:"heatwave_medium"`
	DroughtLow     float64 `json:"drought_low"`
	DroughtMedium  float64 `json:"drought_medium"`
	FloodHigh      float64 `json:"flood_high"`
	FloodMedium    float64 `json:"flood_medium"`
	StormHigh      float64 `json:"storm_high"`
	StormMedium    float64 `json:"storm_medium"`
}

var thresholdTables = map[Classification]Thresholds{
	ClassTropical: {
		HeatwaveHigh: 38, HeatwaveMedium: 33,
		DroughtLow: 60, DroughtMedium: 50,
		FloodHigh: 90, FloodMedium: 80,
		StormHigh: 25, StormMedium: 18,
	},
	ClassTemperate: {
		HeatwaveHigh: 40, HeatwaveMedium: 35,
		DroughtLow: 45, DroughtMedium: 35,
		FloodHigh: 85, FloodMedium: 75,
		StormHigh: 20, StormMedium: 15,
	},
	ClassArid: {
		HeatwaveHigh: 42, HeatwaveMedium: 37,
		DroughtLow: 30, DroughtMedium: 20,
		FloodHigh: 80, FloodMedium: 70,
		StormHigh: 22, StormMedium: 16,
	},
	ClassDefault: {
		HeatwaveHigh: 40, HeatwaveMedium: 35,
		DroughtLow: 40, DroughtMedium: 30,
		FloodHigh: 85, FloodMedium: 75,
		StormHigh: 20, StormMedium: 15,
	},
}

// ThresholdsFor returns the table for c, using the default table for any
// unrecognised classification.
func ThresholdsFor(c Classification) Thresholds {
	if t, ok := thresholdTables[c]; ok {
		return t
	}
	return thresholdTables[ClassDefault]
}

// WindowStats summarises the days a RiskAssessment was computed from.
// Statistics for a target are taken only over days that cover it.
type WindowStats struct {
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Days        int       `json:"days"`
	AvgTemp     float64   `json:"avg_temperature"`
	MaxTemp     float64   `json:"max_temperature"`
	AvgHumidity float64   `json:"avg_humidity"`
	MaxWind     float64   `json:"max_wind_speed"`
	AvgWind     float64   `json:"avg_wind_speed"`
	Covered     TargetSet `json:"covered"`
}

// RiskAssessment holds one level per hazard plus the inputs that produced them.
type RiskAssessment struct {
	Heatwave       RiskLevel      `json:"heatwave"`
	Drought        RiskLevel      `json:"drought"`
	Storm          RiskLevel      `json:"storm"`
	Flood          RiskLevel      `json:"flood"`
	Classification Classification `json:"classification"`
	Thresholds     Thresholds     `json:"thresholds"`
	Window         WindowStats    `json:"window"`
}

// Level returns the level for h.
func (a RiskAssessment) Level(h Hazard) RiskLevel {
	switch h {
	case HazardHeatwave:
		return a.Heatwave
	case HazardDrought:
		return a.Drought
	case HazardStorm:
		return a.Storm
	case HazardFlood:
		return a.Flood
	}
	return RiskLow
}

// HighHazards returns the hazards assessed HIGH, in reporting order.
func (a RiskAssessment) HighHazards() []Hazard {
	var out []Hazard
	for _, h := range Hazards {
		if a.Level(h) == RiskHigh {
			out = append(out, h)
		}
	}
	return out
}

// TrailingWindow returns the last RiskWindowDays days, or all of them if fewer.
func TrailingWindow(days []ForecastDay) []ForecastDay {
	if len(days) <= RiskWindowDays {
		return days
	}
	return days[len(days)-RiskWindowDays:]
}

// ClassifyRisk assesses the trailing window of days against the table for c.
// It is a pure function of its inputs. A hazard whose target is not covered by
// any day in the window is reported LOW; Window.Covered records which targets
// contributed.
func ClassifyRisk(days []ForecastDay, c Classification) (RiskAssessment, error) {
	window := TrailingWindow(days)
	if len(window) == 0 {
		return RiskAssessment{}, ErrEmptyWindow
	}

	th := ThresholdsFor(c)
	stats := summarize(window)

	a := RiskAssessment{
		Heatwave:       RiskLow,
		Drought:        RiskLow,
		Storm:          RiskLow,
		Flood:          RiskLow,
		Classification: c,
		Thresholds:     th,
		Window:         stats,
	}

	if stats.Covered.Has(TargetTemperature) {
		switch {
		case stats.MaxTemp > th.HeatwaveHigh || stats.AvgTemp > th.HeatwaveHigh-2:
			a.Heatwave = RiskHigh
		case stats.MaxTemp > th.HeatwaveMedium || stats.AvgTemp > th.HeatwaveMedium-2:
			a.Heatwave = RiskMedium
		}
	}

	if stats.Covered.Has(TargetHumidity) {
		switch {
		case stats.AvgHumidity < th.DroughtLow:
			a.Drought = RiskHigh
		case stats.AvgHumidity < th.DroughtMedium:
			a.Drought = RiskMedium
		}
		switch {
		case stats.AvgHumidity > th.FloodHigh:
			a.Flood = RiskHigh
		case stats.AvgHumidity > th.FloodMedium:
			a.Flood = RiskMedium
		}
	}

	if stats.Covered.Has(TargetWindSpeed) {
		switch {
		case stats.MaxWind > th.StormHigh:
			a.Storm = RiskHigh
		case stats.MaxWind > th.StormMedium:
			a.Storm = RiskMedium
		}
	}

	return a, nil
}

func summarize(window []ForecastDay) WindowStats {
	stats := WindowStats{
		Start:   window[0].Date.Format(DateLayout),
		End:     window[len(window)-1].Date.Format(DateLayout),
		Days:    len(window),
		MaxTemp: math.Inf(-1),
		MaxWind: math.Inf(-1),
	}

	var tempSum, humSum, windSum float64
	var tempN, humN, windN int
	for _, d := range window {
		if d.Covered.Has(TargetTemperature) {
			tempSum += d.Temperature
			tempN++
			stats.MaxTemp = math.Max(stats.MaxTemp, d.Temperature)
		}
		if d.Covered.Has(TargetHumidity) {
			humSum += d.Humidity
			humN++
		}
		if d.Covered.Has(TargetWindSpeed) {
			windSum += d.WindSpeed
			windN++
			stats.MaxWind = math.Max(stats.MaxWind, d.WindSpeed)
		}
	}

	if tempN > 0 {
		stats.AvgTemp = tempSum / float64(tempN)
		stats.Covered = stats.Covered.With(TargetTemperature)
	} else {
		stats.MaxTemp = 0
	}
	if humN > 0 {
		stats.AvgHumidity = humSum / float64(humN)
		stats.Covered = stats.Covered.With(TargetHumidity)
	}
	if windN > 0 {
		stats.AvgWind = windSum / float64(windN)
		stats.Covered = stats.Covered.With(TargetWindSpeed)
	} else {
		stats.MaxWind = 0
	}
	return stats
}

// Recommendation is mitigation advice for one HIGH hazard.
type Recommendation struct {
	Hazard  Hazard   `json:"hazard"`
	Title   string   `json:"title"`
	Actions []string `json:"actions"`
}

var mitigation = map[Hazard]Recommendation{
	HazardHeatwave: {
		Hazard: HazardHeatwave,
		Title:  "High heatwave risk",
		Actions: []string{
			"Stay hydrated and drink plenty of water",
			"Avoid outdoor activities during peak hours (10 AM - 4 PM)",
			"Use air conditioning or fans to stay cool",
			"Check on elderly and vulnerable individuals",
			"Wear light, loose-fitting clothing",
		},
	},
	HazardDrought: {
		Hazard: HazardDrought,
		Title:  "High drought risk",
		Actions: []string{
			"Conserve water usage in daily activities",
			"Monitor crop conditions and irrigation needs",
			"Implement water-saving measures",
			"Be prepared for water restrictions",
			"Store emergency water supplies",
		},
	},
	HazardStorm: {
		Hazard: HazardStorm,
		Title:  "High storm risk",
		Actions: []string{
			"Secure loose objects and outdoor furniture",
			"Monitor weather updates and alerts",
			"Prepare for potential power outages",
			"Avoid outdoor activities during storms",
			"Have emergency supplies ready",
		},
	},
	HazardFlood: {
		Hazard: HazardFlood,
		Title:  "High flood risk",
		Actions: []string{
			"Avoid low-lying areas and flood-prone zones",
			"Monitor local weather alerts and flood warnings",
			"Prepare emergency evacuation plan",
			"Keep important documents in waterproof containers",
			"Have emergency supplies and first aid kit ready",
		},
	},
}

// Recommendations returns mitigation advice for every HIGH hazard in a.
// An empty result means no significant risk.
func Recommendations(a RiskAssessment) []Recommendation {
	var out []Recommendation
	for _, h := range a.HighHazards() {
		out = append(out, mitigation[h])
	}
	return out
}
