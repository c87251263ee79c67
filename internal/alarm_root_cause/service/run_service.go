package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// Runner executes one analysis.
type Runner interface {
	Run(ctx context.Context, params domain.Params, useCase domain.UseCase) (*domain.Result, error)
}

// RunLedger stores the status of analysis runs.
type RunLedger interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByRunID(ctx context.Context, runID string) (*domain.Run, error)
	Latest(ctx context.Context, ppid, date string, useCase domain.UseCase) (*domain.Run, error)
	Update(ctx context.Context, runID string, req domain.UpdateRunRequest) (*domain.Run, error)
	ListByPlant(ctx context.Context, ppid string) ([]string, error)
}

// ResultReader reads stored records.
type ResultReader interface {
	Get(ctx context.Context, ppid string, useCase domain.UseCase, tagname, date string) (*records.Record, error)
}

// RunService handles business logic for analysis runs
type RunService struct {
	runner  Runner
	ledger  RunLedger
	results ResultReader
}

// NewRunService creates a new RunService
func NewRunService(runner Runner, ledger RunLedger, results ResultReader) *RunService {
	return &RunService{runner: runner, ledger: ledger, results: results}
}

// Start records a run, executes it and stores its outcome. The returned run
// reflects the final status even when the analysis failed.
func (s *RunService) Start(ctx context.Context, params domain.Params, useCase domain.UseCase) (*domain.Run, *domain.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	run := &domain.Run{
		PPID:    params.PPID,
		Date:    params.Date(),
		UseCase: useCase,
		Status:  domain.StatusPending,
	}
	if err := s.ledger.Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to record run: %w", err)
	}

	ctx = logging.WithRunID(ctx, run.RunID)
	logger := logging.FromContext(ctx, "run_service")

	running := domain.StatusRunning
	if _, err := s.ledger.Update(ctx, run.RunID, domain.UpdateRunRequest{Status: &running}); err != nil {
		return run, nil, fmt.Errorf("failed to mark run running: %w", err)
	}

	result, runErr := s.runner.Run(ctx, params, useCase)

	req := domain.UpdateRunRequest{}
	status := domain.StatusSucceeded
	if runErr != nil {
		status = domain.StatusFailed
		msg := runErr.Error()
		req.Error = &msg
		logger.Error("run", runErr)
	} else {
		processed := 0
		for _, n := range result.Processed {
			processed += n
		}
		req.Processed = &processed
		logger.Infof("run", "%s", result)
	}
	req.Status = &status

	// the outcome is stored even if the caller went away
	updated, err := s.ledger.Update(context.WithoutCancel(ctx), run.RunID, req)
	if err != nil {
		logger.Error("update_run", err)
		updated = run
	}
	return updated, result, runErr
}

// GetRun retrieves a run by its ID
func (s *RunService) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return s.ledger.GetByRunID(ctx, runID)
}

// LatestRun retrieves the latest run of a plant day and use case
func (s *RunService) LatestRun(ctx context.Context, ppid, date string, useCase domain.UseCase) (*domain.Run, error) {
	return s.ledger.Latest(ctx, ppid, date, useCase)
}

// ListRuns returns the runs of a plant still held by the ledger, newest first.
func (s *RunService) ListRuns(ctx context.Context, ppid string) ([]*domain.Run, error) {
	ids, err := s.ledger.ListByPlant(ctx, ppid)
	if err != nil {
		return nil, err
	}
	runs := make([]*domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.ledger.GetByRunID(ctx, id)
		if errors.Is(err, domain.ErrRunNotFound) {
			// expired, the plant set outlives single runs
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// GetResult retrieves the stored record of an alarmed tag on one day
func (s *RunService) GetResult(ctx context.Context, ppid string, useCase domain.UseCase, tagname, date string) (*records.Record, error) {
	return s.results.Get(ctx, ppid, useCase, tagname, date)
}
