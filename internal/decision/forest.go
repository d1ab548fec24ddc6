package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

// SupportedFormatMajor is the artifact format major version this build reads.
const SupportedFormatMajor = "v1"

// ErrUnsupportedFormat is returned when an artifact's format_version has a
// different major version.
var ErrUnsupportedFormat = errors.New("unsupported model format version")

// Tree is one decision tree in array form: node i splits on Feature[i] at
// Threshold[i] and is a leaf when ChildrenLeft[i] is -1.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is an averaged-probability tree ensemble exported from training.
type Forest struct {
	FormatVersion string   `json:"format_version"`
	Features      []string `json:"features"`
	Classes       []int    `json:"classes"`
	Trees         []Tree   `json:"trees"`
}

var artifactSchema = map[string]any{
	"type":     "object",
	"required": []string{"format_version", "features", "classes", "trees"},
	"properties": map[string]any{
		"format_version": map[string]any{"type": "string", "minLength": 1},
		"features": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 1,
		},
		"classes": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "integer"},
			"minItems": 1,
		},
		"trees": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []string{"children_left", "children_right", "feature", "threshold", "value"},
				"properties": map[string]any{
					"children_left":  map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					"children_right": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					"feature":        map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					"threshold":      map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
					"value": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
					},
				},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func artifactValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(artifactSchema)
		if err != nil {
			compileErr = err
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://difficulty-model.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// ParseForest decodes and validates a model artifact.
func ParseForest(data []byte) (*Forest, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	validator, err := artifactValidator()
	if err != nil {
		return nil, fmt.Errorf("compile model schema: %w", err)
	}
	if err := validator.Validate(parsed); err != nil {
		return nil, fmt.Errorf("model schema validation failed: %w", err)
	}

	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	v := f.FormatVersion
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.FormatVersion)
	}
	if semver.Major(v) != SupportedFormatMajor {
		return nil, fmt.Errorf("%w: %s (want %s.x)", ErrUnsupportedFormat, f.FormatVersion, SupportedFormatMajor)
	}

	if len(f.Features) != len(FeatureNames) {
		return nil, fmt.Errorf("model expects %d features, have %d", len(f.Features), len(FeatureNames))
	}
	for i, tree := range f.Trees {
		if err := tree.check(len(f.Features), len(f.Classes)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &f, nil
}

func (t Tree) check(features, classes int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == -1 {
			if len(t.Value[i]) != classes {
				return fmt.Errorf("leaf %d has %d class weights, want %d", i, len(t.Value[i]), classes)
			}
			continue
		}
		// Children always come after their parent in exported trees, which
		// also rules out cycles.
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has out-of-range children", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= features {
			return fmt.Errorf("node %d splits on unknown feature %d", i, t.Feature[i])
		}
	}
	return nil
}

func (t Tree) leaf(x []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// Available is always true for a parsed forest.
func (f *Forest) Available() bool { return true }

// Predict averages per-tree class probabilities and returns the most
// probable class. Ties go to the lower class index.
func (f *Forest) Predict(fv FeatureVector) (int, error) {
	x := fv.Values()
	probs := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		weights := t.leaf(x)
		var total float64
		for _, w := range weights {
			total += w
		}
		if total <= 0 {
			continue
		}
		for i, w := range weights {
			probs[i] += w / total
		}
	}

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return f.Classes[best], nil
}

// Load reads a model artifact from path. It never fails: a missing or
// malformed artifact yields an Unavailable classifier and a logged warning,
// so the engine runs on the fallback rule.
func Load(path string, logger *slog.Logger) Classifier {
	if path == "" {
		return Unavailable{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("difficulty model not loaded", "path", path, "error", err)
		}
		return Unavailable{Reason: err}
	}
	f, err := ParseForest(data)
	if err != nil {
		if logger != nil {
			logger.Warn("difficulty model rejected", "path", path, "error", err)
		}
		return Unavailable{Reason: err}
	}
	if logger != nil {
		logger.Info("difficulty model loaded", "path", path, "trees", len(f.Trees), "format", f.FormatVersion)
	}
	return f
}
