// Command checkbundle validates a local model bundle before it is deployed:
// the metadata document, every target's regressor and scaler, the feature
// width the models expect, and a full 7-day forecast through the engine.
//
// Usage:
//
//	go run ./cmd/checkbundle -dir models -location new_delhi
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/climate-forecast-service/internal/adapter/localfs"
	"github.com/couchcryptid/climate-forecast-service/internal/artifact"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/forecast"
	"github.com/jonboulle/clockwork"
)

const checkHorizon = 7

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "models", "model root directory")
	location := flag.String("location", "", "location whose bundle to check")
	flag.Parse()

	if *location == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *dir, *location); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, root, location string) int {
	id := domain.NormalizeLocation(location)
	if !domain.ValidLocationID(id) {
		fmt.Fprintf(out, "invalid location %q\n", location)
		return 1
	}
	dir := filepath.Join(root, id)

	fmt.Fprintf(out, "=== Model Bundle Check: %s ===\n\n", dir)

	md, mdPhase := checkMetadata(dir, id)
	models, artefactPhase := checkArtefacts(dir, md)
	phases := []*phase{
		mdPhase,
		artefactPhase,
		checkFeatureWidth(models),
		checkForecast(root, id),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintf(out, "\nTargets: %d decoded\n", len(models))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nBundle OK.")
		return 0
	}
	fmt.Fprintln(out, "\nBundle check FAILED.")
	return 1
}

// ── Phase 1: Metadata ──

func checkMetadata(dir, id string) (domain.BundleMetadata, *phase) {
	p := &phase{name: "Phase 1: Metadata"}

	data, err := os.ReadFile(filepath.Join(dir, artifact.MetadataName(id)))
	if err != nil {
		p.errorf("read metadata: %v", err)
		return domain.BundleMetadata{}, p
	}
	md, err := artifact.DecodeMetadata(data)
	if err != nil {
		p.errorf("%v", err)
		return domain.BundleMetadata{}, p
	}
	if md.ModelType == "" {
		p.errorf("model_type is empty")
	}
	if md.TrainingDate != "" {
		if _, err := time.Parse(domain.DateLayout, md.TrainingDate); err != nil {
			p.errorf("training_date %q is not YYYY-MM-DD", md.TrainingDate)
		}
	}
	for _, name := range md.Targets {
		if _, err := domain.ParseTarget(name); err != nil {
			p.errorf("targets: %v", err)
		}
	}
	return md, p
}

// ── Phase 2: Artefacts ──
// Targets named in the metadata must have both artefacts; when the metadata
// names none, at least one target must be complete.

func checkArtefacts(dir string, md domain.BundleMetadata) (map[domain.Target]*domain.TargetModel, *phase) {
	p := &phase{name: "Phase 2: Artefacts decode"}
	models := make(map[domain.Target]*domain.TargetModel)

	required := make(map[domain.Target]bool)
	for _, name := range md.Targets {
		if t, err := domain.ParseTarget(name); err == nil {
			required[t] = true
		}
	}

	for _, t := range domain.Targets {
		regData, regErr := os.ReadFile(filepath.Join(dir, artifact.RegressorName(t)))
		scData, scErr := os.ReadFile(filepath.Join(dir, artifact.ScalerName(t)))
		regMissing := errors.Is(regErr, fs.ErrNotExist)
		scMissing := errors.Is(scErr, fs.ErrNotExist)

		switch {
		case regMissing && scMissing:
			if required[t] {
				p.errorf("%s: listed in metadata but has no artefacts", t)
			}
			continue
		case regMissing:
			p.errorf("%s: scaler present without regressor", t)
			continue
		case scMissing:
			p.errorf("%s: regressor present without scaler", t)
			continue
		case regErr != nil || scErr != nil:
			p.errorf("%s: read: %v", t, errors.Join(regErr, scErr))
			continue
		}

		reg, err := artifact.DecodeRegressor(regData)
		if err != nil {
			p.errorf("%s regressor: %v", t, err)
			continue
		}
		sc, err := artifact.DecodeScaler(scData)
		if err != nil {
			p.errorf("%s scaler: %v", t, err)
			continue
		}
		models[t] = &domain.TargetModel{Regressor: reg, Scaler: sc}
	}

	if len(models) == 0 && p.passed() {
		p.errorf("no target has both a regressor and a scaler")
	}
	return models, p
}

// ── Phase 3: Feature width ──

func checkFeatureWidth(models map[domain.Target]*domain.TargetModel) *phase {
	p := &phase{name: fmt.Sprintf("Phase 3: Feature width (%d)", domain.FeatureCount)}
	for _, t := range domain.Targets {
		m, ok := models[t]
		if !ok {
			continue
		}
		if n := m.Regressor.NumFeatures(); n != domain.FeatureCount {
			p.errorf("%s regressor expects %d features", t, n)
		}
		if n := m.Scaler.NumFeatures(); n != domain.FeatureCount {
			p.errorf("%s scaler expects %d features", t, n)
		}
	}
	return p
}

// ── Phase 4: Forecast ──
// Loads the bundle the way the service does and runs it through the engine.

func checkForecast(root, id string) *phase {
	p := &phase{name: fmt.Sprintf("Phase 4: %d-day forecast", checkHorizon)}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bundle, err := localfs.NewStore(root, logger).Load(context.Background(), id)
	if err != nil {
		p.errorf("load bundle: %v", err)
		return p
	}

	profiles, err := domain.LoadProfiles()
	if err != nil {
		p.errorf("load profiles: %v", err)
		return p
	}

	// Check across the year boundary so seasonal features take extreme values.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.December, 28, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	engine := forecast.NewEngine(
		domain.NewFeatureBuilder(profiles, logger),
		domain.NewSyntheticGenerator(profiles, domain.NewSource(1)),
		checkHorizon,
		logger,
	)
	days, err := engine.Forecast(context.Background(), bundle, id, checkHorizon)
	if err != nil {
		p.errorf("forecast: %v", err)
		return p
	}
	if len(days) != checkHorizon {
		p.errorf("expected %d days, got %d", checkHorizon, len(days))
	}
	for _, d := range days {
		if d.Covered != bundle.Covered() {
			p.errorf("%s: covered %v, bundle covers %v", d.Date.Format(domain.DateLayout), d.Covered.Slice(), bundle.Covered().Slice())
		}
		for _, t := range d.Covered.Slice() {
			if v := d.Value(t); math.IsNaN(v) || math.IsInf(v, 0) {
				p.errorf("%s %s: non-finite value", d.Date.Format(domain.DateLayout), t)
			}
		}
	}
	return p
}
