// Command genbundle writes model bundles fitted on a year of synthetic
// history for each location. The output loads through the local tier, so
// it seeds development environments and integration tests without a
// training pipeline.
//
// Usage:
//
//	go run ./cmd/genbundle -out models -locations new_delhi,jaipur
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sajari/regression"

	"github.com/couchcryptid/climate-forecast-service/internal/adapter/localfs"
	"github.com/couchcryptid/climate-forecast-service/internal/artifact"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

const historyDays = 365

func main() {
	out := flag.String("out", "models", "model root directory to write bundles under")
	locations := flag.String("locations", "", "comma-separated locations (default: every known city)")
	year := flag.Int("year", 2023, "calendar year of synthetic history to fit on")
	seed := flag.Uint64("seed", 7, "noise seed for reproducible bundles")
	flag.Parse()

	if err := run(*out, splitLocations(*locations), *year, *seed); err != nil {
		log.Fatal(err)
	}
}

func splitLocations(v string) []string {
	var out []string
	for _, l := range strings.Split(v, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func run(out string, locations []string, year int, seed uint64) error {
	profiles, err := domain.LoadProfiles()
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	if len(locations) == 0 {
		locations = profiles.Cities()
	}

	// History starts on January 1st so every season is represented.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	gen := domain.NewSyntheticGenerator(profiles, domain.NewSource(seed))
	trainedOn := fmt.Sprintf("%d-12-31", year)

	for _, loc := range locations {
		id := domain.NormalizeLocation(loc)
		b, err := fitBundle(gen, profiles.ProfileFor(id), id)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		b.Metadata.TrainingDate = trainedOn
		if err := localfs.WriteBundle(out, b); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		log.Printf("%s: temperature r2=%.3f", id, b.Metadata.Performance["temperature"].R2)
	}
	log.Printf("wrote %d bundles to %s", len(locations), out)
	return nil
}

func fitBundle(gen *domain.SyntheticGenerator, p domain.ClimateProfile, id string) (*domain.ModelBundle, error) {
	history, err := gen.Generate(id, historyDays)
	if err != nil {
		return nil, fmt.Errorf("generate history: %w", err)
	}

	rows := make([][]float64, len(history))
	for i, d := range history {
		fv := domain.FeaturesFor(d.Date, p)
		rows[i] = fv[:]
	}
	scaler, cols := fitScaler(rows)
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		if scaled[i], err = scaler.Transform(row); err != nil {
			return nil, err
		}
	}

	b := &domain.ModelBundle{
		Location: id,
		Metadata: domain.BundleMetadata{
			ModelType:      "LinearRegression",
			TrainingScript: "genbundle",
			Performance:    make(map[string]domain.Performance, len(domain.Targets)),
		},
	}
	for _, t := range domain.Targets {
		ys := make([]float64, len(history))
		for i, d := range history {
			ys[i] = d.Value(t)
		}
		reg, perf, err := fitLinear(t.String(), scaled, ys, cols)
		if err != nil {
			return nil, err
		}
		b.SetModel(t, &domain.TargetModel{Regressor: reg, Scaler: scaler})
		b.Metadata.Performance[t.String()] = perf
	}
	return b, nil
}

// fitScaler computes per-column mean and population standard deviation and
// returns the columns that vary. Constant columns get a scale of 1; they
// scale to zero and would make the least-squares system singular.
func fitScaler(rows [][]float64) (*artifact.StandardScaler, []int) {
	n := float64(len(rows))
	s := &artifact.StandardScaler{
		Mean:  make([]float64, domain.FeatureCount),
		Scale: make([]float64, domain.FeatureCount),
	}
	for _, row := range rows {
		for j, v := range row {
			s.Mean[j] += v / n
		}
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d / n
		}
	}
	var cols []int
	for j, v := range s.Scale {
		s.Scale[j] = math.Sqrt(v)
		if s.Scale[j] < 1e-9 {
			s.Scale[j] = 1
			s.Mean[j] = rows[0][j]
			continue
		}
		cols = append(cols, j)
	}
	return s, cols
}

func fitLinear(name string, xs [][]float64, ys []float64, cols []int) (*artifact.Linear, domain.Performance, error) {
	var r regression.Regression
	r.SetObserved(name)
	for k, j := range cols {
		r.SetVar(k, domain.FeatureNames[j])
	}
	for i, row := range xs {
		vars := make([]float64, len(cols))
		for k, j := range cols {
			vars[k] = row[j]
		}
		r.Train(regression.DataPoint(ys[i], vars))
	}
	if err := r.Run(); err != nil {
		return nil, domain.Performance{}, fmt.Errorf("fit %s: %w", name, err)
	}

	lin := &artifact.Linear{Coefficients: make([]float64, domain.FeatureCount), Intercept: r.Coeff(0)}
	for k, j := range cols {
		lin.Coefficients[j] = r.Coeff(k + 1)
	}

	var absSum, sqSum float64
	for i, row := range xs {
		pred, err := lin.Predict(row)
		if err != nil {
			return nil, domain.Performance{}, err
		}
		d := pred - ys[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(ys))
	return lin, domain.Performance{R2: r.R2, MAE: absSum / n, RMSE: math.Sqrt(sqSum / n)}, nil
}
