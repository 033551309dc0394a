// Package boltstore persists batch jobs in a bbolt file so the API server
// can report them after a restart.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dvloznov/fatura-itau/internal/jobs"
)

const bucketName = "jobs"

// Store implements jobs.JobStore on top of bbolt. Values are JSON.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob implements jobs.JobStore.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ConvertBatchJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(job.JobID), data)
	})
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ConvertBatchJob, error) {
	var job *jobs.ConvertBatchJob
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(jobID))
		if data == nil {
			return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs implements jobs.JobStore.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ConvertBatchJob, error) {
	list := make([]*jobs.ConvertBatchJob, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var job jobs.ConvertBatchJob
			if err := json.Unmarshal(v, &job); err != nil {
				return fmt.Errorf("unmarshaling job %s: %w", k, err)
			}
			if filter.Match(&job) {
				list = append(list, &job)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return filter.Page(list), nil
}

// UpdateJobStatus implements jobs.JobStore.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(jobID))
		if data == nil {
			return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}

		var job jobs.ConvertBatchJob
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("unmarshaling job: %w", err)
		}
		job.ApplyStatus(status, errorMsg, time.Now())

		updated, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshaling job: %w", err)
		}
		return bucket.Put([]byte(jobID), updated)
	})
}

var _ jobs.JobStore = (*Store)(nil)
