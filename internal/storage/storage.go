// Package storage persists prediction runs and their per-customer results.
// It uses BoltDB as the underlying storage engine.
//
// A run and all of its results are written in one transaction, so a run is either
// stored completely or not at all.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"churn-predictor/internal/ml"

	"go.etcd.io/bbolt"
)

const (
	runsBucket    = "runs"    // Run headers keyed by creation time and id
	runIDsBucket  = "run_ids" // Run id to runs bucket key
	resultsBucket = "results" // One nested bucket of predictions per run id
)

// Store provides persistent storage for prediction runs using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "churn-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{runsBucket, runIDsBucket, resultsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores the run header and every prediction of the run.
// The header is stored with a key format of "timestamp_id" so runs list in creation order.
func (s *Store) SaveRun(run *ml.RunResult) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run has no id")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ids := tx.Bucket([]byte(runIDsBucket))
		if ids.Get([]byte(run.ID)) != nil {
			return fmt.Errorf("run %s already stored", run.ID)
		}

		header := *run
		header.Predictions = nil
		data, err := json.Marshal(header)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}

		key := runKey(run)
		if err := tx.Bucket([]byte(runsBucket)).Put(key, data); err != nil {
			return err
		}
		if err := ids.Put([]byte(run.ID), key); err != nil {
			return err
		}

		results, err := tx.Bucket([]byte(resultsBucket)).CreateBucket([]byte(run.ID))
		if err != nil {
			return fmt.Errorf("create results bucket: %w", err)
		}
		for i, p := range run.Predictions {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal prediction %d: %w", i, err)
			}
			if err := results.Put(rowKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun returns the run with all of its predictions in upload order.
// Returns ml.ErrRunNotFound for an unknown id.
func (s *Store) GetRun(id string) (*ml.RunResult, error) {
	var run ml.RunResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(runIDsBucket)).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: %s", ml.ErrRunNotFound, id)
		}
		data := tx.Bucket([]byte(runsBucket)).Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ml.ErrRunNotFound, id)
		}
		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("unmarshal run: %w", err)
		}

		preds, err := readResults(tx, id)
		if err != nil {
			return err
		}
		run.Predictions = preds
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns up to limit run headers, newest first. Predictions are not loaded.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(limit int) ([]ml.RunResult, error) {
	var runs []ml.RunResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run ml.RunResult
			if err := json.Unmarshal(v, &run); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}

// DeleteRun removes a run and its predictions.
func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		ids := tx.Bucket([]byte(runIDsBucket))
		key := ids.Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: %s", ml.ErrRunNotFound, id)
		}
		if err := tx.Bucket([]byte(runsBucket)).Delete(key); err != nil {
			return err
		}
		if err := ids.Delete([]byte(id)); err != nil {
			return err
		}
		err := tx.Bucket([]byte(resultsBucket)).DeleteBucket([]byte(id))
		if err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

func readResults(tx *bbolt.Tx, id string) ([]ml.Prediction, error) {
	b := tx.Bucket([]byte(resultsBucket)).Bucket([]byte(id))
	if b == nil {
		return nil, nil
	}

	var preds []ml.Prediction
	err := b.ForEach(func(k, v []byte) error {
		var p ml.Prediction
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("unmarshal prediction %s: %w", k, err)
		}
		preds = append(preds, p)
		return nil
	})
	return preds, err
}

func runKey(run *ml.RunResult) []byte {
	return []byte(fmt.Sprintf("%020d_%s", run.CreatedAt.UnixNano(), run.ID))
}

func rowKey(i int) []byte {
	return []byte(fmt.Sprintf("%010d", i))
}
