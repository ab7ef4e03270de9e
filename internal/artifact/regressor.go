package artifact

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

const (
	kindRandomForest = "random_forest"
	kindLinear       = "linear"

	// leaf marks a node without children in the tree arrays.
	leaf = -1
)

// Tree is a fitted regression tree in scikit-learn's parallel-array layout.
// Node i splits on Feature[i] at Threshold[i]; rows with x <= threshold go to
// ChildrenLeft[i]. Leaves have ChildrenLeft[i] == -1 and predict Value[i].
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("tree arrays have mismatched lengths")
	}
	for i := range n {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leaf {
			if right != leaf {
				return fmt.Errorf("node %d has only a right child", i)
			}
			continue
		}
		// Children always follow their parent in the arrays, which also rules out cycles.
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has out-of-range children %d/%d", i, left, right)
		}
		if f := t.Feature[i]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, f, nFeatures)
		}
	}
	return nil
}

func (t *Tree) predict(x []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// RandomForest averages the predictions of its trees.
type RandomForest struct {
	Features int
	Trees    []Tree
}

// NumFeatures returns the expected row width.
func (f *RandomForest) NumFeatures() int { return f.Features }

// Predict returns the mean tree prediction for x.
func (f *RandomForest) Predict(x []float64) (float64, error) {
	if len(x) != f.Features {
		return 0, fmt.Errorf("forest expects %d features, got %d", f.Features, len(x))
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// Linear is an ordinary least-squares model: intercept + coefficients·x.
type Linear struct {
	Coefficients []float64
	Intercept    float64
}

// NumFeatures returns the expected row width.
func (l *Linear) NumFeatures() int { return len(l.Coefficients) }

// Predict returns the linear response for x.
func (l *Linear) Predict(x []float64) (float64, error) {
	if len(x) != len(l.Coefficients) {
		return 0, fmt.Errorf("linear model expects %d features, got %d", len(l.Coefficients), len(x))
	}
	y := l.Intercept
	for i, c := range l.Coefficients {
		y += c * x[i]
	}
	return y, nil
}

type regressorDoc struct {
	Kind         string    `json:"kind"`
	NFeatures    int       `json:"n_features,omitempty"`
	Trees        []Tree    `json:"trees,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`
}

// DecodeRegressor parses a regressor artefact. Structural problems are
// reported here so prediction never indexes outside the arrays.
func DecodeRegressor(data []byte) (domain.Regressor, error) {
	var doc regressorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode regressor: %v", domain.ErrInvalidArtifact, err)
	}

	switch doc.Kind {
	case kindRandomForest:
		if doc.NFeatures <= 0 {
			return nil, fmt.Errorf("%w: random forest needs n_features", domain.ErrInvalidArtifact)
		}
		if len(doc.Trees) == 0 {
			return nil, fmt.Errorf("%w: random forest has no trees", domain.ErrInvalidArtifact)
		}
		for i := range doc.Trees {
			if err := doc.Trees[i].validate(doc.NFeatures); err != nil {
				return nil, fmt.Errorf("%w: tree %d: %v", domain.ErrInvalidArtifact, i, err)
			}
		}
		return &RandomForest{Features: doc.NFeatures, Trees: doc.Trees}, nil
	case kindLinear:
		if len(doc.Coefficients) == 0 {
			return nil, fmt.Errorf("%w: linear model has no coefficients", domain.ErrInvalidArtifact)
		}
		return &Linear{Coefficients: doc.Coefficients, Intercept: doc.Intercept}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported regressor kind %q", domain.ErrInvalidArtifact, doc.Kind)
	}
}

// EncodeRegressor writes r in artefact form.
func EncodeRegressor(r domain.Regressor) ([]byte, error) {
	switch m := r.(type) {
	case *RandomForest:
		return json.Marshal(regressorDoc{Kind: kindRandomForest, NFeatures: m.Features, Trees: m.Trees})
	case *Linear:
		return json.Marshal(regressorDoc{Kind: kindLinear, Coefficients: m.Coefficients, Intercept: m.Intercept})
	default:
		return nil, fmt.Errorf("encode regressor: unsupported type %T", r)
	}
}
