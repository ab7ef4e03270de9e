package domain

import (
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// Slopes within these bands are reported as stable.
const (
	temperatureSlopeBand = 0.01 // °C per day
	humiditySlopeBand    = 0.1  // % per day
)

// TrendDirection classifies a fitted slope.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

func directionOf(slope, band float64) TrendDirection {
	switch {
	case slope > band:
		return TrendIncreasing
	case slope < -band:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// MetricSummary is the mean and range of one target over covered days.
type MetricSummary struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Days int     `json:"days"`
}

// MonthlyAverage is the per-calendar-month mean of each covered target.
type MonthlyAverage struct {
	Month       string  `json:"month"`
	Days        int     `json:"days"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
}

// TrendAnalysis summarises a forecast series.
type TrendAnalysis struct {
	Days                 int              `json:"days"`
	Temperature          MetricSummary    `json:"temperature"`
	Humidity             MetricSummary    `json:"humidity"`
	Pressure             MetricSummary    `json:"pressure"`
	WindSpeed            MetricSummary    `json:"wind_speed"`
	TemperatureSlope     float64          `json:"temperature_slope"`
	TemperatureDirection TrendDirection   `json:"temperature_direction"`
	HumiditySlope        float64          `json:"humidity_slope"`
	HumidityDirection    TrendDirection   `json:"humidity_direction"`
	Monthly              []MonthlyAverage `json:"monthly"`
}

// AnalyzeTrends fits least-squares slopes to temperature and humidity and
// aggregates summary and monthly statistics.
func AnalyzeTrends(days []ForecastDay) (TrendAnalysis, error) {
	if len(days) == 0 {
		return TrendAnalysis{}, ErrEmptyWindow
	}

	series := make(map[Target][]float64, len(Targets))
	for _, d := range days {
		for _, t := range d.Covered.Slice() {
			series[t] = append(series[t], d.Value(t))
		}
	}

	tempSlope, err := fitSlope("temperature", series[TargetTemperature])
	if err != nil {
		return TrendAnalysis{}, err
	}
	humSlope, err := fitSlope("humidity", series[TargetHumidity])
	if err != nil {
		return TrendAnalysis{}, err
	}

	return TrendAnalysis{
		Days:                 len(days),
		Temperature:          summarizeSeries(series[TargetTemperature]),
		Humidity:             summarizeSeries(series[TargetHumidity]),
		Pressure:             summarizeSeries(series[TargetPressure]),
		WindSpeed:            summarizeSeries(series[TargetWindSpeed]),
		TemperatureSlope:     tempSlope,
		TemperatureDirection: directionOf(tempSlope, temperatureSlopeBand),
		HumiditySlope:        humSlope,
		HumidityDirection:    directionOf(humSlope, humiditySlopeBand),
		Monthly:              monthlyAverages(days),
	}, nil
}

// fitSlope regresses ys on the day index. Fewer than three points or a flat
// series yield a zero slope.
func fitSlope(name string, ys []float64) (float64, error) {
	if len(ys) < 3 || isConstant(ys) {
		return 0, nil
	}

	var r regression.Regression
	r.SetObserved(name)
	r.SetVar(0, "day")
	for i, y := range ys {
		r.Train(regression.DataPoint(y, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return 0, fmt.Errorf("fit %s trend: %w", name, err)
	}
	return r.Coeff(1), nil
}

func isConstant(ys []float64) bool {
	for _, y := range ys[1:] {
		if y != ys[0] {
			return false
		}
	}
	return true
}

func summarizeSeries(vs []float64) MetricSummary {
	if len(vs) == 0 {
		return MetricSummary{}
	}
	s := MetricSummary{Min: math.Inf(1), Max: math.Inf(-1), Days: len(vs)}
	var sum float64
	for _, v := range vs {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(vs))
	return s
}

func monthlyAverages(days []ForecastDay) []MonthlyAverage {
	type acc struct {
		sums   [len(Targets)]float64
		counts [len(Targets)]int
		days   int
	}
	var order []string
	buckets := make(map[string]*acc)
	for _, d := range days {
		key := d.Date.Format("2006-01")
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
			order = append(order, key)
		}
		a.days++
		for _, t := range d.Covered.Slice() {
			a.sums[t] += d.Value(t)
			a.counts[t]++
		}
	}

	out := make([]MonthlyAverage, 0, len(order))
	for _, key := range order {
		a := buckets[key]
		mean := func(t Target) float64 {
			if a.counts[t] == 0 {
				return 0
			}
			return round1(a.sums[t] / float64(a.counts[t]))
		}
		out = append(out, MonthlyAverage{
			Month:       key,
			Days:        a.days,
			Temperature: mean(TargetTemperature),
			Humidity:    mean(TargetHumidity),
			Pressure:    mean(TargetPressure),
			WindSpeed:   mean(TargetWindSpeed),
		})
	}
	return out
}
