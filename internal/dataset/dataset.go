// Package dataset reads uploaded customer datasets into raw tables.
//
// Cells are kept as text; numeric parsing happens during feature building so a
// malformed number degrades to a default instead of rejecting the file.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads a .csv or .json file. JSON files hold an array of record objects.
func Load(path string) (*features.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	var t *features.Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		t, err = ReadCSV(file)
	case ".json":
		t, err = ReadJSON(file)
	default:
		return nil, &ml.InputError{Reason: fmt.Sprintf("unsupported dataset format %q", ext)}
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", path).
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Msg("Dataset loaded successfully")

	return t, nil
}

// ReadCSV parses a comma separated file whose first row is the header. Empty cells
// become missing values. Rows shorter than the header are padded with missing values.
func ReadCSV(r io.Reader) (*features.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ml.InputError{Reason: "dataset is empty"}
	}
	if err != nil {
		return nil, &ml.InputError{Reason: fmt.Sprintf("failed to read CSV header: %v", err)}
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, &ml.InputError{Reason: fmt.Sprintf("CSV header column %d is empty", i+1)}
		}
		if seen[col] {
			return nil, &ml.InputError{Reason: fmt.Sprintf("CSV header repeats column %q", col)}
		}
		seen[col] = true
		columns[i] = col
	}

	var records []features.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ml.InputError{Reason: fmt.Sprintf("malformed CSV: %v", err)}
		}
		if len(row) > len(columns) {
			line, _ := reader.FieldPos(0)
			return nil, &ml.InputError{Reason: fmt.Sprintf("line %d has %d fields, header has %d", line, len(row), len(columns))}
		}
		if blank(row) {
			continue
		}

		rec := make(features.Record, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				rec[col] = v
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}

	return features.NewTable(columns, records), nil
}

// ReadJSON parses an array of record objects.
func ReadJSON(r io.Reader) (*features.Table, error) {
	var records []features.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ml.InputError{Reason: "dataset is empty"}
		}
		return nil, &ml.InputError{Reason: fmt.Sprintf("malformed JSON dataset: %v", err)}
	}
	return features.TableFromRecords(records), nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
