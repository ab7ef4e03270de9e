package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DateLayout is the ISO calendar-date format used for forecast days.
const DateLayout = "2006-01-02"

// Target is one predicted weather quantity.
type Target int

const (
	TargetTemperature Target = iota
	TargetHumidity
	TargetPressure
	TargetWindSpeed
)

// Targets lists every target in bundle order.
var Targets = [...]Target{TargetTemperature, TargetHumidity, TargetPressure, TargetWindSpeed}

var targetNames = [...]string{"temperature", "humidity", "pressure", "wind_speed"}

func (t Target) String() string {
	if t < 0 || int(t) >= len(targetNames) {
		return fmt.Sprintf("target(%d)", int(t))
	}
	return targetNames[t]
}

// ParseTarget converts an artefact or JSON name into a Target.
func ParseTarget(name string) (Target, error) {
	for i, n := range targetNames {
		if n == name {
			return Target(i), nil
		}
	}
	return 0, fmt.Errorf("unknown target %q", name)
}

// TargetSet is a bitset of targets.
type TargetSet uint8

// AllTargets has every target set.
const AllTargets TargetSet = 1<<len(Targets) - 1

// Has reports whether t is in the set.
func (s TargetSet) Has(t Target) bool { return s&(1<<t) != 0 }

// With returns the set with t added.
func (s TargetSet) With(t Target) TargetSet { return s | 1<<t }

// Slice returns the members in bundle order.
func (s TargetSet) Slice() []Target {
	out := make([]Target, 0, len(Targets))
	for _, t := range Targets {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TargetSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(Targets))
	for _, t := range s.Slice() {
		names = append(names, t.String())
	}
	return json.Marshal(names)
}

func (s *TargetSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set TargetSet
	for _, n := range names {
		t, err := ParseTarget(n)
		if err != nil {
			return err
		}
		set = set.With(t)
	}
	*s = set
	return nil
}

// Origin identifies which path produced a forecast.
type Origin string

const (
	OriginModel     Origin = "model"
	OriginSynthetic Origin = "synthetic"
)

// ForecastDay is one day of predicted weather. Fields for targets outside
// Covered are zero and carry no information.
type ForecastDay struct {
	Date        time.Time
	Temperature float64
	Humidity    float64
	Pressure    float64
	WindSpeed   float64
	Covered     TargetSet
}

type forecastDayJSON struct {
	Date        string    `json:"date"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
	Covered     TargetSet `json:"covered"`
}

func (d ForecastDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastDayJSON{
		Date:        d.Date.Format(DateLayout),
		Temperature: d.Temperature,
		Humidity:    d.Humidity,
		Pressure:    d.Pressure,
		WindSpeed:   d.WindSpeed,
		Covered:     d.Covered,
	})
}

func (d *ForecastDay) UnmarshalJSON(data []byte) error {
	var v forecastDayJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, v.Date)
	if err != nil {
		return fmt.Errorf("parse forecast date: %w", err)
	}
	*d = ForecastDay{
		Date:        date,
		Temperature: v.Temperature,
		Humidity:    v.Humidity,
		Pressure:    v.Pressure,
		WindSpeed:   v.WindSpeed,
		Covered:     v.Covered,
	}
	return nil
}

// Value returns the field for target t.
func (d ForecastDay) Value(t Target) float64 {
	switch t {
	case TargetTemperature:
		return d.Temperature
	case TargetHumidity:
		return d.Humidity
	case TargetPressure:
		return d.Pressure
	case TargetWindSpeed:
		return d.WindSpeed
	}
	return 0
}

// Set writes v into the field for t and marks t as covered.
func (d *ForecastDay) Set(t Target, v float64) {
	switch t {
	case TargetTemperature:
		d.Temperature = v
	case TargetHumidity:
		d.Humidity = v
	case TargetPressure:
		d.Pressure = v
	case TargetWindSpeed:
		d.WindSpeed = v
	default:
		return
	}
	d.Covered = d.Covered.With(t)
}

// ForecastDates returns horizon consecutive dates starting at start.
func ForecastDates(start time.Time, horizon int) []time.Time {
	dates := make([]time.Time, horizon)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// WeatherAlert is a simple threshold notice for a single day.
type WeatherAlert struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DayAlerts returns threshold alerts for a day, checking only covered fields.
func DayAlerts(d ForecastDay) []WeatherAlert {
	var alerts []WeatherAlert
	if d.Covered.Has(TargetTemperature) && d.Temperature > 35 {
		alerts = append(alerts, WeatherAlert{Kind: "high_temperature", Message: "High temperature, stay hydrated"})
	}
	if d.Covered.Has(TargetHumidity) && d.Humidity > 80 {
		alerts = append(alerts, WeatherAlert{Kind: "high_humidity", Message: "High humidity, consider a dehumidifier"})
	}
	if d.Covered.Has(TargetWindSpeed) && d.WindSpeed > 15 {
		alerts = append(alerts, WeatherAlert{Kind: "strong_wind", Message: "Strong winds, secure loose objects"})
	}
	if d.Covered.Has(TargetPressure) && d.Pressure < 1000 {
		alerts = append(alerts, WeatherAlert{Kind: "low_pressure", Message: "Low pressure, weather changes likely"})
	}
	return alerts
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
