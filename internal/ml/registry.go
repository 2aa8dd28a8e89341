package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"churn-predictor/internal/common"

	"github.com/rs/zerolog/log"
)

// ArtifactSource supplies the feature schema and classifier of a model.
type ArtifactSource interface {
	Schema(id common.ModelID) ([]string, error)
	Classifier(id common.ModelID) (Classifier, error)
}

// RegistryConfig locates the model artifacts. It is created once at startup and not
// modified afterwards.
type RegistryConfig struct {
	StoreDir string
}

type artifactFiles struct {
	schema     string
	classifier string
}

var artifactNames = map[common.ModelID]artifactFiles{
	common.RandomForest:       {schema: "rf_features.json", classifier: "random_forest.json"},
	common.DecisionTree:       {schema: "dt_features.json", classifier: "decision_tree.json"},
	common.LogisticRegression: {schema: "logreg_features.json", classifier: "logistic_regression.json"},
}

// SchemaPath returns where the feature schema of id is read from.
func (c RegistryConfig) SchemaPath(id common.ModelID) string {
	return filepath.Join(c.StoreDir, artifactNames[id].schema)
}

// ClassifierPath returns where the classifier artifact of id is read from.
func (c RegistryConfig) ClassifierPath(id common.ModelID) string {
	return filepath.Join(c.StoreDir, artifactNames[id].classifier)
}

// Registry loads each model's schema and classifier once and shares them read-only.
// Concurrent callers for the same model wait on a single load. A failed load is not
// remembered, so artifacts provisioned later are picked up by the next call.
type Registry struct {
	cfg     RegistryConfig
	mu      sync.Mutex
	entries map[common.ModelID]*registryEntry
}

type registryEntry struct {
	once       sync.Once
	schema     []string
	classifier Classifier
	info       ArtifactInfo
	err        error
}

// NewRegistry creates a registry reading artifacts under cfg.StoreDir.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.StoreDir == "" {
		return nil, &ConfigurationError{Op: "new registry", Err: fmt.Errorf("model store directory is empty")}
	}
	return &Registry{
		cfg:     cfg,
		entries: make(map[common.ModelID]*registryEntry),
	}, nil
}

// Schema returns a copy of the ordered feature columns the model was trained on.
func (r *Registry) Schema(id common.ModelID) ([]string, error) {
	e, err := r.load(id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), e.schema...), nil
}

// Classifier returns the shared, read-only classifier of the model.
func (r *Registry) Classifier(id common.ModelID) (Classifier, error) {
	e, err := r.load(id)
	if err != nil {
		return nil, err
	}
	return e.classifier, nil
}

// Info returns metadata of the model's classifier artifact.
func (r *Registry) Info(id common.ModelID) (ArtifactInfo, error) {
	e, err := r.load(id)
	if err != nil {
		return ArtifactInfo{}, err
	}
	return e.info, nil
}

// Preload tries to load every model. It returns how many loaded and the joined
// failures of the rest; failed models are retried on their next use.
func (r *Registry) Preload() (int, error) {
	loaded := 0
	var errs []error
	for _, id := range common.ModelIDs {
		if _, err := r.load(id); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

func (r *Registry) load(id common.ModelID) (*registryEntry, error) {
	if !id.Valid() {
		return nil, &ConfigurationError{ModelID: id, Op: "lookup", Err: fmt.Errorf("unknown model identifier")}
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &registryEntry{}
		r.entries[id] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.schema, e.classifier, e.info, e.err = r.read(id)
	})

	if e.err != nil {
		r.mu.Lock()
		if r.entries[id] == e {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e, nil
}

func (r *Registry) read(id common.ModelID) ([]string, Classifier, ArtifactInfo, error) {
	schemaPath := r.cfg.SchemaPath(id)
	schema, err := readSchema(schemaPath)
	if err != nil {
		return nil, nil, ArtifactInfo{}, &ConfigurationError{ModelID: id, Op: "load schema " + schemaPath, Err: err}
	}

	clfPath := r.cfg.ClassifierPath(id)
	data, err := os.ReadFile(clfPath)
	if err != nil {
		return nil, nil, ArtifactInfo{}, &ConfigurationError{ModelID: id, Op: "load classifier " + clfPath, Err: err}
	}
	clf, info, err := ParseClassifier(data)
	if err != nil {
		return nil, nil, ArtifactInfo{}, &ConfigurationError{ModelID: id, Op: "load classifier " + clfPath, Err: err}
	}

	if info.NFeatures != len(schema) {
		return nil, nil, ArtifactInfo{}, &ConfigurationError{
			ModelID: id,
			Op:      "check artifacts",
			Err:     fmt.Errorf("classifier expects %d features but schema lists %d", info.NFeatures, len(schema)),
		}
	}

	info.LoadedAt = time.Now()
	log.Info().
		Str("model", id.String()).
		Str("kind", info.Kind).
		Str("version", info.Version).
		Int("features", len(schema)).
		Str("classifier_path", clfPath).
		Msg("model artifacts loaded")

	return schema, clf, info, nil
}

func readSchema(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema []string
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode feature list: %w", err)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("feature list is empty")
	}
	for i, name := range schema {
		if name == "" {
			return nil, fmt.Errorf("feature %d has an empty name", i)
		}
	}
	return schema, nil
}
