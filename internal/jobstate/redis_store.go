package jobstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/artshield/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

func NewRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "artshield:job"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (s *RedisStore) key(jobID string) string {
	return s.keyPrefix + ":" + jobID
}

func (s *RedisStore) Create(ctx context.Context, rec domain.JobRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}

	// SET NX doubles as the creation guard: an existing record, terminal
	// or not, is never overwritten.
	if err := s.client.SetNX(ctx, s.key(rec.JobID), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("create job record %s: %w", rec.JobID, err)
	}
	return nil
}

func (s *RedisStore) UpdateProgress(ctx context.Context, jobID string, p domain.Progress) error {
	rec, ok, err := s.Get(ctx, jobID)
	if err != nil || !ok {
		return err
	}
	if !rec.ApplyProgress(p, s.now().UTC()) {
		return nil
	}
	return s.write(ctx, rec)
}

func (s *RedisStore) RecordStep(ctx context.Context, jobID, step, status string) error {
	rec, ok, err := s.Get(ctx, jobID)
	if err != nil || !ok {
		return err
	}
	if !rec.ApplyStep(step, status, s.now().UTC()) {
		return nil
	}
	return s.write(ctx, rec)
}

func (s *RedisStore) Complete(ctx context.Context, jobID, status, artifactID string, jerr *domain.JobError) (bool, error) {
	rec, ok, err := s.Get(ctx, jobID)
	if err != nil || !ok {
		return false, err
	}
	if !rec.ApplyCompletion(status, artifactID, jerr, s.now().UTC()) {
		return false, nil
	}
	if err := s.write(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (domain.JobRecord, bool, error) {
	body, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.JobRecord{}, false, nil
		}
		return domain.JobRecord{}, false, fmt.Errorf("read job record %s: %w", jobID, err)
	}

	var rec domain.JobRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.JobRecord{}, false, fmt.Errorf("unmarshal job record %s: %w", jobID, err)
	}
	return rec, true, nil
}

// write replaces the record while keeping the TTL set at creation; the
// expiry window is fixed from submission, terminal state included.
func (s *RedisStore) write(ctx context.Context, rec domain.JobRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.JobID), body, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("write job record %s: %w", rec.JobID, err)
	}
	return nil
}
