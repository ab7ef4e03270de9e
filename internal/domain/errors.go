package domain

import "errors"

var (
	// ErrInvalidHorizon is returned when a forecast horizon is not a positive day count
	// or exceeds the configured maximum.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrEmptyWindow is returned when risk classification receives no forecast days.
	ErrEmptyWindow = errors.New("empty forecast window")

	// ErrForecastUnavailable means neither the model path nor the synthetic path
	// produced a forecast for the call.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrBundleNotFound is returned by a bundle tier that has no usable artefacts
	// for a location.
	ErrBundleNotFound = errors.New("model bundle not found")

	// ErrInvalidArtifact wraps structural problems found while decoding a
	// regressor, scaler, or metadata document.
	ErrInvalidArtifact = errors.New("invalid model artifact")

	// ErrSameLocation is returned when a comparison names the same location twice.
	ErrSameLocation = errors.New("comparison requires distinct locations")

	// ErrInvalidLocation is returned for a location that does not normalise to
	// a canonical identifier.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidComparison is returned when a comparison names too few or too many locations.
	ErrInvalidComparison = errors.New("comparison requires 2 to 4 locations")
)
