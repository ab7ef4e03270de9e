// Package localfs serves model bundles from a directory tree laid out as
// <root>/<location>/{model_info_<location>.json,<target>_rf.json,<target>_scaler.json}.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/climate-forecast-service/internal/artifact"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

// Store is the local bundle tier.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a tier rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{root: dir, logger: logger}
}

// Name identifies the tier in logs and metrics.
func (s *Store) Name() string { return "local" }

// Root returns the directory the store reads from.
func (s *Store) Root() string { return s.root }

// Load reads the bundle for location. A missing directory or metadata file
// yields domain.ErrBundleNotFound.
func (s *Store) Load(ctx context.Context, location string) (*domain.ModelBundle, error) {
	id := domain.NormalizeLocation(location)
	if !domain.ValidLocationID(id) {
		return nil, fmt.Errorf("%w: invalid location %q", domain.ErrBundleNotFound, location)
	}
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no directory %s", domain.ErrBundleNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat bundle dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrBundleNotFound, dir)
	}

	return artifact.LoadBundle(ctx, dirSource(dir), id, artifact.MetadataName(id), s.logger)
}

// CheckReadiness reports whether the model root can be read.
func (s *Store) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("model dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("model dir %s is not a directory", s.root)
	}
	return nil
}

// dirSource reads artefacts from a single bundle directory.
type dirSource string

func (d dirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(string(d), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, artifact.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// WriteBundle stores b under root/<location> in the layout Load expects.
// Targets the bundle does not cover are not written.
func WriteBundle(root string, b *domain.ModelBundle) error {
	id := domain.NormalizeLocation(b.Location)
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	md := b.Metadata
	if md.Location == "" {
		md.Location = id
	}
	if len(md.Targets) == 0 {
		for _, t := range b.Covered().Slice() {
			md.Targets = append(md.Targets, t.String())
		}
	}
	if err := writeJSON(filepath.Join(dir, artifact.MetadataName(id)), md); err != nil {
		return err
	}

	for _, t := range b.Covered().Slice() {
		m := b.Model(t)
		reg, err := artifact.EncodeRegressor(m.Regressor)
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		sc, err := artifact.EncodeScaler(m.Scaler)
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		if err := os.WriteFile(filepath.Join(dir, artifact.RegressorName(t)), reg, 0o644); err != nil {
			return fmt.Errorf("write %s regressor: %w", t, err)
		}
		if err := os.WriteFile(filepath.Join(dir, artifact.ScalerName(t)), sc, 0o644); err != nil {
			return fmt.Errorf("write %s scaler: %w", t, err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
