package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
)

const (
	runKeyPrefix      = "arc:run:"    // Key prefix for run data: arc:run:{run_id}
	plantRunSetPrefix = "arc:plant:"  // Set of run IDs for a plant: arc:plant:{ppid}:runs
	latestRunPrefix   = "arc:latest:" // Latest run of a plant day: arc:latest:{ppid}:{date}:{use_case} -> run_id
)

// DefaultRunTTL is the TTL for run data (7 days)
const DefaultRunTTL = 7 * 24 * time.Hour

// RunRepository handles Redis operations for analysis runs
type RunRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunRepository creates a new RunRepository. A non-positive ttl uses DefaultRunTTL.
func NewRunRepository(client *redis.Client, ttl time.Duration) *RunRepository {
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	return &RunRepository{client: client, ttl: ttl}
}

// Create stores a new run and makes it the latest of its plant day
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}
	if run.Status == "" {
		run.Status = domain.StatusPending
	}

	runData, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run data: %w", err)
	}

	plantKey := r.plantRunSetKey(run.PPID)

	// Use pipeline for atomic operations
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.runKey(run.RunID), runData, r.ttl)
	pipe.SAdd(ctx, plantKey, run.RunID)
	pipe.Expire(ctx, plantKey, r.ttl)
	pipe.Set(ctx, r.latestRunKey(run.PPID, run.Date, run.UseCase), run.RunID, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run by its ID
func (r *RunRepository) GetByRunID(ctx context.Context, runID string) (*domain.Run, error) {
	data, err := r.client.Get(ctx, r.runKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run data: %w", err)
	}
	return &run, nil
}

// Latest retrieves the most recently created run of a plant day and use case
func (r *RunRepository) Latest(ctx context.Context, ppid, date string, useCase domain.UseCase) (*domain.Run, error) {
	runID, err := r.client.Get(ctx, r.latestRunKey(ppid, date, useCase)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run ID: %w", err)
	}
	return r.GetByRunID(ctx, runID)
}

// Update applies req to an existing run
func (r *RunRepository) Update(ctx context.Context, runID string, req domain.UpdateRunRequest) (*domain.Run, error) {
	run, err := r.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, fmt.Errorf("invalid run status %q", *req.Status)
		}
		run.Status = *req.Status
	}
	if req.Processed != nil {
		run.Processed = *req.Processed
	}
	if req.Error != nil {
		run.Error = *req.Error
	}
	run.UpdatedAt = time.Now().UTC()
	if run.Status == domain.StatusSucceeded || run.Status == domain.StatusFailed {
		done := run.UpdatedAt
		run.CompletedAt = &done
	}

	runData, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run data: %w", err)
	}
	if err := r.client.Set(ctx, r.runKey(runID), runData, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	return run, nil
}

// ListByPlant retrieves all run IDs for a plant
func (r *RunRepository) ListByPlant(ctx context.Context, ppid string) ([]string, error) {
	runIDs, err := r.client.SMembers(ctx, r.plantRunSetKey(ppid)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for plant: %w", err)
	}
	return runIDs, nil
}

// Helper methods for key generation
func (r *RunRepository) runKey(runID string) string {
	return fmt.Sprintf("%s%s", runKeyPrefix, runID)
}

func (r *RunRepository) plantRunSetKey(ppid string) string {
	return fmt.Sprintf("%s%s:runs", plantRunSetPrefix, ppid)
}

func (r *RunRepository) latestRunKey(ppid, date string, useCase domain.UseCase) string {
	return fmt.Sprintf("%s%s:%s:%s", latestRunPrefix, ppid, date, useCase)
}
