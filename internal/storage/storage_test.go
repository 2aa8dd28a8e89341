package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/ml"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func prob(p float64) *float64 { return &p }

func testRun(id string, created time.Time, n int) *ml.RunResult {
	preds := make([]ml.Prediction, n)
	for i := range preds {
		preds[i] = ml.Prediction{
			CustomerID:   fmt.Sprintf("C%03d", i),
			CustomerName: fmt.Sprintf("Cliente %d", i),
			Label:        i % 2,
			Probability:  prob(float64(i%10) / 10),
		}
	}
	return &ml.RunResult{
		ID:               id,
		Model:            common.RandomForest,
		Source:           "clientes.csv",
		CreatedAt:        created,
		Duration:         15 * time.Millisecond,
		TotalRows:        n,
		HasProbabilities: true,
		Predictions:      preds,
	}
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, "churn-data.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	invalidPath := filepath.Join(t.TempDir(), "missing", "dir")

	_, err := New(invalidPath)
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	run := testRun("run-1", time.Now().UTC(), 25)

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Model != common.RandomForest || got.Source != "clientes.csv" || got.TotalRows != 25 {
		t.Errorf("Unexpected run header: %+v", got)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if len(got.Predictions) != 25 {
		t.Fatalf("Expected 25 predictions, got %d", len(got.Predictions))
	}
	for i, p := range got.Predictions {
		want := run.Predictions[i]
		if p.CustomerID != want.CustomerID || p.Label != want.Label {
			t.Errorf("Prediction %d = %+v, want %+v", i, p, want)
		}
		if p.Probability == nil || *p.Probability != *want.Probability {
			t.Errorf("Prediction %d probability mismatch", i)
		}
	}
}

func TestSaveRun_WithoutProbabilities(t *testing.T) {
	store := newTestStore(t)
	run := testRun("run-1", time.Now(), 3)
	run.HasProbabilities = false
	for i := range run.Predictions {
		run.Predictions[i].Probability = nil
	}

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	for i, p := range got.Predictions {
		if p.Probability != nil {
			t.Errorf("Prediction %d should have no probability", i)
		}
	}
}

func TestSaveRun_DuplicateIsRejected(t *testing.T) {
	store := newTestStore(t)
	run := testRun("run-1", time.Now(), 2)

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if err := store.SaveRun(testRun("run-1", time.Now(), 5)); err == nil {
		t.Fatal("Expected error for duplicate run id")
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if len(got.Predictions) != 2 {
		t.Errorf("Duplicate save modified the stored run: %d predictions", len(got.Predictions))
	}
}

func TestSaveRun_Invalid(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveRun(nil); err == nil {
		t.Error("Expected error for nil run")
	}
	if err := store.SaveRun(&ml.RunResult{}); err == nil {
		t.Error("Expected error for run without id")
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetRun("missing"); !errors.Is(err, ml.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// saved out of order
	for _, i := range []int{2, 0, 3, 1} {
		run := testRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute), 4)
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("Expected 4 runs, got %d", len(runs))
	}
	for i, run := range runs {
		want := fmt.Sprintf("run-%d", 3-i)
		if run.ID != want {
			t.Errorf("runs[%d] = %s, want %s", i, run.ID, want)
		}
		if run.Predictions != nil {
			t.Errorf("runs[%d] should not load predictions", i)
		}
		if run.TotalRows != 4 {
			t.Errorf("runs[%d] total rows = %d", i, run.TotalRows)
		}
	}

	limited, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "run-3" || limited[1].ID != "run-2" {
		t.Errorf("Unexpected limited listing: %+v", limited)
	}
}

func TestDeleteRun(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveRun(testRun("run-1", time.Now(), 3)); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	if err := store.DeleteRun("run-1"); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}
	if _, err := store.GetRun("run-1"); !errors.Is(err, ml.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound after delete, got %v", err)
	}
	if err := store.DeleteRun("run-1"); !errors.Is(err, ml.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound deleting twice, got %v", err)
	}

	// the id can be reused once deleted
	if err := store.SaveRun(testRun("run-1", time.Now(), 1)); err != nil {
		t.Errorf("Failed to save run after delete: %v", err)
	}
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.SaveRun(testRun("run-1", time.Now(), 3)); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	store.Close()

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	run, err := reopened.GetRun("run-1")
	if err != nil {
		t.Fatalf("Failed to get run after reopen: %v", err)
	}
	if len(run.Predictions) != 3 {
		t.Errorf("Expected 3 predictions after reopen, got %d", len(run.Predictions))
	}
}

func TestStore_ImplementsRunStore(t *testing.T) {
	var _ ml.RunStore = newTestStore(t)
}
