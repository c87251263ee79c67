package cronjob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// Starter runs one analysis and records it.
type Starter interface {
	Start(ctx context.Context, params domain.Params, useCase domain.UseCase) (*domain.Run, *domain.Result, error)
}

// Options configure the daily analysis of a set of plants.
type Options struct {
	// Schedule is a cron expression with a seconds field.
	Schedule string
	Plants   []string
	Bucket   string
	// EngineeringRoot and ArchiveRoot hold one folder per plant; the archive
	// folder of a plant has one folder per day.
	EngineeringRoot string
	ArchiveRoot     string
	UseCases        []domain.UseCase
}

type Scheduler struct {
	cron   *cron.Cron
	runs   Starter
	opts   Options
	now    func() time.Time
	logger *logging.Logger
}

func NewScheduler(runs Starter, opts Options) *Scheduler {
	if len(opts.UseCases) == 0 {
		opts.UseCases = domain.UseCases
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		runs:   runs,
		opts:   opts,
		now:    time.Now,
		logger: logging.New("scheduler"),
	}
}

// PlantPaths returns the export locations of a plant day.
func PlantPaths(engineeringRoot, archiveRoot, ppid, date string) loader.Paths {
	return loader.Paths{
		Engineering: path.Join(engineeringRoot, ppid),
		Archive:     path.Join(archiveRoot, ppid, date),
	}
}

// Start schedules the analysis of the previous day for every plant.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.opts.Schedule, func() {
		if err := s.RunDay(ctx, s.now().AddDate(0, 0, -1)); err != nil {
			s.logger.Error("nightly", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create cron job: %w", err)
	}

	s.logger.Infof("start", "cron scheduler started (%q) for %d plants", s.opts.Schedule, len(s.opts.Plants))
	s.cron.Start()
	return nil
}

// Stop stops scheduling and returns a context done when running jobs finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunDay analyzes day for every plant and use case. A failing analysis does
// not stop the others; all failures are returned together.
func (s *Scheduler) RunDay(ctx context.Context, day time.Time) error {
	date := day.Format(domain.DateLayout)
	s.logger.Infof("run_day", "analyzing %s for %d plants", date, len(s.opts.Plants))

	var errs []error
	for _, ppid := range s.opts.Plants {
		params := domain.Params{
			PPID:   ppid,
			Dates:  []string{date},
			Bucket: s.opts.Bucket,
			Paths:  PlantPaths(s.opts.EngineeringRoot, s.opts.ArchiveRoot, ppid, date),
		}
		for _, uc := range s.opts.UseCases {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			run, res, err := s.runs.Start(ctx, params, uc)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %s %s: %w", ppid, date, uc, err))
				continue
			}
			s.logger.Infof("run_day", "%s %s %s run=%s %s", ppid, date, uc, run.RunID, res)
		}
	}
	return errors.Join(errs...)
}
