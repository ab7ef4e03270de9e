// Package domain models regional climate baselines, model bundles, daily
// forecasts and the disaster-risk rules derived from them.
//
// # Climate Profiles
//
// Profiles are loaded once from the embedded profiles.yaml table and never
// mutated. Keys are canonical location identifiers: lowercase with words
// joined by underscores, so "New Delhi" and "new_delhi" address the same entry.
// Unknown identifiers resolve to the "default" entry, which keeps feature
// construction and synthetic generation total.
//
// Climate classification is derived from the free-text climate type by
// case-insensitive substring match:
//
//	"Tropical Monsoon", "Tropical Wet and Dry"  →  tropical
//	"Temperate"                                 →  temperate
//	"Semi-arid", "Arid"                         →  arid
//	anything else                               →  default
//
// # Feature Vector
//
// Models are trained on a fixed 21-element vector. The order is part of the
// contract with the artefacts on disk; see [FeatureNames]. All baseline-derived
// features come from the same profile, including the two interaction terms
// (temp*humidity/100 and pressure/temp). Hour features are pinned to midday
// because forecasts have daily resolution.
//
// # Forecast Days
//
// A [ForecastDay] records which targets were actually produced in Covered.
// A model bundle that lacks a target leaves that field at zero, so consumers
// must consult Covered before reading a zero as a real observation.
//
// Units:
//
//	temperature  °C
//	humidity     %, clamped to [0, 100]
//	pressure     hPa
//	wind_speed   km/h, never negative
//
// # Synthetic Weather
//
// When no bundle resolves, [SyntheticGenerator] fabricates plausible weather
// around the profile baseline with an annual sine swing and gaussian noise:
//
//	temperature = avg_temp + 8·s + N(0, 2)
//	humidity    = avg_humidity − 10·s + N(0, 5)
//	pressure    = avg_pressure + N(0, 3)
//	wind_speed  = wind_speed + N(0, 2)
//	where s = sin(2π·day_of_year / 365.25)
//
// Classification clamps are applied first, then global clamps:
//
//	tropical   humidity ≥ 60, temperature [22, 38]
//	arid       humidity ≤ 50, temperature [25, 45]
//	temperate  humidity [40, 80], temperature [15, 35]
//	global     temperature [15, 45], humidity [20, 95], pressure [980, 1020], wind [0, 20]
//
// # Risk Classification
//
// Risk is computed over the trailing seven days of a forecast using a
// per-classification threshold table (see [ThresholdsFor]). Each hazard checks
// HIGH before MEDIUM, so a value that meets both lands in HIGH:
//
//	heatwave  max(temp) > high  or avg(temp) > high − 2
//	drought   avg(humidity) < low
//	flood     avg(humidity) > high
//	storm     max(wind) > high
package domain
