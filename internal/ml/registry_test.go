package ml

import (
	"errors"
	"os"
	"sync"
	"testing"

	"churn-predictor/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_EmptyStoreDir(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRegistry_LoadsAllModels(t *testing.T) {
	reg, err := NewRegistry(RegistryConfig{StoreDir: writeArtifacts(t)})
	require.NoError(t, err)
	loaded, err := reg.Preload()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)

	schema, err := reg.Schema(common.RandomForest)
	require.NoError(t, err)
	assert.Equal(t, treeSchema, schema)

	schema, err = reg.Schema(common.LogisticRegression)
	require.NoError(t, err)
	assert.Equal(t, linearSchema, schema)

	info, err := reg.Info(common.RandomForest)
	require.NoError(t, err)
	assert.Equal(t, KindRandomForest, info.Kind)
	assert.Equal(t, "test-1", info.Version)
	assert.Equal(t, 2, info.Trees)
	assert.False(t, info.LoadedAt.IsZero())

	clf, err := reg.Classifier(common.DecisionTree)
	require.NoError(t, err)
	assert.IsType(t, &DecisionTree{}, clf)
}

func TestRegistry_SchemaIsImmutable(t *testing.T) {
	reg, err := NewRegistry(RegistryConfig{StoreDir: writeArtifacts(t)})
	require.NoError(t, err)

	schema, err := reg.Schema(common.RandomForest)
	require.NoError(t, err)
	schema[0] = "changed"

	again, err := reg.Schema(common.RandomForest)
	require.NoError(t, err)
	assert.Equal(t, "Edad", again[0])
}

func TestRegistry_ConcurrentLoadSharesOneClassifier(t *testing.T) {
	reg, err := NewRegistry(RegistryConfig{StoreDir: writeArtifacts(t)})
	require.NoError(t, err)

	const goroutines = 32
	results := make([]Classifier, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clf, err := reg.Classifier(common.RandomForest)
			assert.NoError(t, err)
			results[i] = clf
		}(i)
	}
	wg.Wait()

	for _, clf := range results {
		assert.Same(t, results[0], clf)
	}
}

func TestRegistry_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(RegistryConfig{StoreDir: dir})
	require.NoError(t, err)

	_, err = reg.Classifier(common.RandomForest)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, common.RandomForest, cfgErr.ModelID)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	loaded, err := reg.Preload()
	assert.Equal(t, 0, loaded)
	assert.True(t, errors.As(err, &cfgErr), "joined failures keep their type")
}

func TestRegistry_FailedLoadIsRetried(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(RegistryConfig{StoreDir: dir})
	require.NoError(t, err)

	_, err = reg.Schema(common.DecisionTree)
	require.Error(t, err)

	// provision the artifacts after the first failure
	cfg := RegistryConfig{StoreDir: dir}
	writeJSON(t, cfg.SchemaPath(common.DecisionTree), treeSchema)
	writeJSON(t, cfg.ClassifierPath(common.DecisionTree), map[string]any{
		"kind": KindDecisionTree, "classes": []int{0, 1}, "n_features": len(treeSchema),
		"tree": satisfactionTree(),
	})

	schema, err := reg.Schema(common.DecisionTree)
	require.NoError(t, err)
	assert.Len(t, schema, len(treeSchema))
}

func TestRegistry_CorruptArtifacts(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(t *testing.T, cfg RegistryConfig)
	}{
		{"schema not json", func(t *testing.T, cfg RegistryConfig) {
			require.NoError(t, os.WriteFile(cfg.SchemaPath(common.RandomForest), []byte("{"), 0o600))
		}},
		{"empty schema", func(t *testing.T, cfg RegistryConfig) {
			writeJSON(t, cfg.SchemaPath(common.RandomForest), []string{})
		}},
		{"blank feature name", func(t *testing.T, cfg RegistryConfig) {
			writeJSON(t, cfg.SchemaPath(common.RandomForest), []string{"Edad", ""})
		}},
		{"classifier not json", func(t *testing.T, cfg RegistryConfig) {
			require.NoError(t, os.WriteFile(cfg.ClassifierPath(common.RandomForest), []byte("pickle"), 0o600))
		}},
		{"schema and classifier disagree", func(t *testing.T, cfg RegistryConfig) {
			writeJSON(t, cfg.SchemaPath(common.RandomForest), treeSchema[:5])
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := RegistryConfig{StoreDir: writeArtifacts(t)}
			tc.mutate(t, cfg)

			reg, err := NewRegistry(cfg)
			require.NoError(t, err)
			_, err = reg.Classifier(common.RandomForest)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
			loaded, err := reg.Preload()
			assert.Error(t, err)
			assert.Equal(t, 2, loaded, "only the random forest is broken")
		})
	}
}

func TestRegistry_UnknownModel(t *testing.T) {
	reg, err := NewRegistry(RegistryConfig{StoreDir: writeArtifacts(t)})
	require.NoError(t, err)

	_, err = reg.Schema(common.ModelID("SVM"))
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
