// Package artifact decodes model bundles stored as JSON artefacts and
// assembles them into domain.ModelBundle values.
//
// A bundle directory (or object-store prefix) holds:
//
//	model_info_<name>.json     metadata
//	<target>_rf.json           regressor, one per target
//	<target>_scaler.json       scaler, one per target
//
// A target is included only when both of its artefacts exist. A missing
// artefact is not an error; a missing metadata document is.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

// ErrNotFound is returned by a Source when the named artefact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Source fetches raw artefact bytes by name within one location's bundle.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// MetadataName returns the metadata document name for a bundle.
func MetadataName(name string) string {
	return "model_info_" + name + ".json"
}

// RegressorName returns the regressor artefact name for t.
func RegressorName(t domain.Target) string {
	return t.String() + "_rf.json"
}

// ScalerName returns the scaler artefact name for t.
func ScalerName(t domain.Target) string {
	return t.String() + "_scaler.json"
}

// DecodeMetadata parses a model_info document.
func DecodeMetadata(data []byte) (domain.BundleMetadata, error) {
	var md domain.BundleMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return domain.BundleMetadata{}, fmt.Errorf("%w: decode metadata: %v", domain.ErrInvalidArtifact, err)
	}
	return md, nil
}

// LoadBundle reads the metadata document named metadataName from src, then
// every target's regressor and scaler. It returns domain.ErrBundleNotFound
// when the metadata is missing or no target has both artefacts.
func LoadBundle(ctx context.Context, src Source, location, metadataName string, logger *slog.Logger) (*domain.ModelBundle, error) {
	raw, err := src.Fetch(ctx, metadataName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no metadata %s", domain.ErrBundleNotFound, metadataName)
		}
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	md, err := DecodeMetadata(raw)
	if err != nil {
		return nil, err
	}

	bundle := &domain.ModelBundle{Location: location, Metadata: md}
	for _, t := range domain.Targets {
		m, err := loadTarget(ctx, src, t)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t, err)
		}
		if m == nil {
			logger.Debug("target artefacts missing, skipping", "location", location, "target", t.String())
			continue
		}
		bundle.SetModel(t, m)
	}

	if bundle.Empty() {
		return nil, fmt.Errorf("%w: no usable targets for %s", domain.ErrBundleNotFound, location)
	}
	return bundle, nil
}

// loadTarget returns nil, nil when either artefact is missing.
func loadTarget(ctx context.Context, src Source, t domain.Target) (*domain.TargetModel, error) {
	regRaw, err := src.Fetch(ctx, RegressorName(t))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	scRaw, err := src.Fetch(ctx, ScalerName(t))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reg, err := DecodeRegressor(regRaw)
	if err != nil {
		return nil, err
	}
	sc, err := DecodeScaler(scRaw)
	if err != nil {
		return nil, err
	}
	return &domain.TargetModel{Regressor: reg, Scaler: sc}, nil
}
