package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"churn-predictor/internal/common"

	"github.com/stretchr/testify/require"
)

var treeSchema = []string{
	"Edad", "Sexo",
	"Frec_Mes1", "Frec_Mes2", "Frec_Mes3", "Frec_Mes4", "Frec_Mes5",
	"Variación_Frecuencia_Visitas", "Variación_porcentual (%)", "Satisfacción_Servicio",
	"Zona_Recidencial_Norte", "Zona_Recidencial_Sur",
	"Metodo_Pago_Efectivo", "Metodo_Pago_Tarjeta",
}

var linearSchema = []string{
	"Edad",
	"Frec_Mes1", "Frec_Mes2", "Frec_Mes3", "Frec_Mes4", "Frec_Mes5",
	"Tendencia_1_5", "Volatilidad_1_5", "Pct_M5_vs_Prom_M1_4",
	"Sexo_F", "Sexo_M",
	"Zona_Recidencial_Norte", "Zona_Recidencial_Sur",
	"Metodo_Pago_Efectivo", "Metodo_Pago_Tarjeta",
}

// satisfactionTree churns customers whose satisfaction (feature 9) is 2 or lower.
func satisfactionTree() map[string]any {
	return map[string]any{
		"children_left":  []int{1, -1, -1},
		"children_right": []int{2, -1, -1},
		"feature":        []int{9, -2, -2},
		"threshold":      []float64{2.5, -2, -2},
		"value":          [][]float64{{10, 10}, {1, 9}, {9, 1}},
	}
}

// month5Tree churns customers with no visits in the fifth month (feature 6).
func month5Tree() map[string]any {
	return map[string]any{
		"children_left":  []int{1, -1, -1},
		"children_right": []int{2, -1, -1},
		"feature":        []int{6, -2, -2},
		"threshold":      []float64{0.5, -2, -2},
		"value":          [][]float64{{5, 5}, {0, 4}, {3, 1}},
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// writeArtifacts provisions all three models under a temp store directory.
func writeArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := RegistryConfig{StoreDir: dir}

	writeJSON(t, cfg.SchemaPath(common.RandomForest), treeSchema)
	writeJSON(t, cfg.ClassifierPath(common.RandomForest), map[string]any{
		"kind":       KindRandomForest,
		"version":    "test-1",
		"classes":    []int{0, 1},
		"n_features": len(treeSchema),
		"trees":      []any{satisfactionTree(), month5Tree()},
	})

	writeJSON(t, cfg.SchemaPath(common.DecisionTree), treeSchema)
	writeJSON(t, cfg.ClassifierPath(common.DecisionTree), map[string]any{
		"kind":       KindDecisionTree,
		"classes":    []int{0, 1},
		"n_features": len(treeSchema),
		"tree":       satisfactionTree(),
	})

	coef := make([]float64, len(linearSchema))
	coef[6] = -1.5 // Tendencia_1_5
	writeJSON(t, cfg.SchemaPath(common.LogisticRegression), linearSchema)
	writeJSON(t, cfg.ClassifierPath(common.LogisticRegression), map[string]any{
		"kind":       KindLogisticRegression,
		"classes":    []int{0, 1},
		"n_features": len(linearSchema),
		"coef":       coef,
		"intercept":  0.0,
	})

	return filepath.Clean(dir)
}
