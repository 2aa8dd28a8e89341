package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersCSV = "\xEF\xBB\xBFID_Cliente,Apellido_Nombre,Edad,Sexo,Frec_Mes1,Frec_Mes5,Satisfacción_Servicio\n" +
	"101,\"Perez, Ana\",41,F,4,0,1\n" +
	"102,Gomez Luis,,M,3,3,5\n" +
	"\n" +
	"103,Diaz Eva,29\n"

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(customersCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ID_Cliente", "Apellido_Nombre", "Edad", "Sexo", "Frec_Mes1", "Frec_Mes5", "Satisfacción_Servicio",
	}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())

	assert.Equal(t, "Perez, Ana", tbl.Text(0, common.ColCustomerName))
	assert.Equal(t, "41", tbl.Records[0][common.ColAge])
	assert.Nil(t, tbl.Records[1][common.ColAge], "empty cell is missing")
	assert.Nil(t, tbl.Records[2][common.ColSex], "short row is padded")
	assert.Equal(t, "103", tbl.Text(2, common.ColCustomerID))
}

func TestReadCSV_FeedsFeatureBuilding(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(customersCSV))
	require.NoError(t, err)

	m, err := features.Build(tbl, common.RandomForest)
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	sat, ok := m.Column(common.ColSatisfaction)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 5, 0}, sat)

	age, ok := m.Column(common.ColAge)
	require.True(t, ok)
	assert.Equal(t, []float64{41, 0, 29}, age)
}

func TestReadCSV_Errors(t *testing.T) {
	testCases := map[string]string{
		"empty":            "",
		"blank header":     "ID_Cliente,,Edad\n1,2,3\n",
		"duplicate header": "Edad,Edad\n1,2\n",
		"long row":         "Edad\n1,2\n",
		"bad quoting":      "Edad,Sexo\n\"41,F\n",
	}

	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(input))
			var inErr *ml.InputError
			assert.True(t, errors.As(err, &inErr), "got %v", err)
		})
	}
}

func TestReadCSV_ErrorReportsPhysicalLine(t *testing.T) {
	data := "ID_Cliente,Apellido_Nombre\n" +
		"101,\"Perez\nAna\"\n" +
		"\n" +
		"102,Gomez,extra\n"

	_, err := ReadCSV(strings.NewReader(data))
	var inErr *ml.InputError
	require.True(t, errors.As(err, &inErr))
	assert.Contains(t, inErr.Reason, "line 5 has 3 fields")
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Edad,Sexo\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.True(t, tbl.HasColumn(common.ColSex))
}

func TestReadJSON(t *testing.T) {
	tbl, err := ReadJSON(strings.NewReader(`[{"ID_Cliente": 7, "Edad": 30, "Sexo": null}, {"Edad": 51}]`))
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"Edad", "ID_Cliente", "Sexo"}, tbl.Columns)
	assert.Equal(t, "7", tbl.Text(0, common.ColCustomerID))
	assert.Equal(t, "", tbl.Text(1, common.ColCustomerID))

	_, err = ReadJSON(strings.NewReader(`{"Edad": 1}`))
	var inErr *ml.InputError
	assert.True(t, errors.As(err, &inErr))

	_, err = ReadJSON(strings.NewReader(""))
	assert.True(t, errors.As(err, &inErr))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "clientes.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(customersCSV), 0o600))
	tbl, err := Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	jsonPath := filepath.Join(dir, "clientes.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"Edad": 30}]`), 0o600))
	tbl, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	xlsxPath := filepath.Join(dir, "clientes.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, []byte("PK"), 0o600))
	_, err = Load(xlsxPath)
	var inErr *ml.InputError
	assert.True(t, errors.As(err, &inErr))

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
	assert.False(t, errors.As(err, &inErr))
}
