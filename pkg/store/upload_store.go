package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"bookvault/pkg/domain"
)

// RedisUploadStore is the Job Status Store for CSV imports. Each job is a
// JSON document keyed by upload ID, overwritten in place, no TTL.
type RedisUploadStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisUploadStore connects the store to redis.
func NewRedisUploadStore(addr, password string) (*RedisUploadStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("upload store redis addr is required")
	}
	return &RedisUploadStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: "bookvault:upload",
	}, nil
}

// Set overwrites the status document for the job.
func (s *RedisUploadStore) Set(job domain.UploadJob) error {
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("upload job id required")
	}
	if job.Errors == nil {
		job.Errors = []string{}
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal upload job: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.jobKey(job.ID), raw, 0).Err()
}

// Get returns the current status snapshot for the job.
func (s *RedisUploadStore) Get(id string) (domain.UploadJob, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.UploadJob{}, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UploadJob{}, false, nil
	}
	if err != nil {
		return domain.UploadJob{}, false, err
	}
	var job domain.UploadJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return domain.UploadJob{}, false, fmt.Errorf("unmarshal upload job: %w", err)
	}
	return job, true, nil
}

func (s *RedisUploadStore) jobKey(id string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, id)
}

var _ UploadJobStore = (*RedisUploadStore)(nil)
