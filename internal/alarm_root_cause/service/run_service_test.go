package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/repository"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

type fakeRunner struct {
	result *domain.Result
	err    error
	runID  string
}

func (f *fakeRunner) Run(ctx context.Context, _ domain.Params, _ domain.UseCase) (*domain.Result, error) {
	f.runID = logging.RunID(ctx)
	return f.result, f.err
}

type fakeResults struct {
	rec *records.Record
}

func (f fakeResults) Get(_ context.Context, _ string, _ domain.UseCase, tagname, date string) (*records.Record, error) {
	if f.rec == nil || f.rec.TagnameAlert != tagname || f.rec.Date != date {
		return nil, domain.ErrResultNotFound
	}
	return f.rec, nil
}

func setupLedger(t *testing.T) *repository.RunRepository {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewRunRepository(client, 0)
}

func TestRunService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("records success", func(t *testing.T) {
		ledger := setupLedger(t)
		runner := &fakeRunner{result: &domain.Result{Success: true, Processed: []int{12}}}
		svc := NewRunService(runner, ledger, fakeResults{})

		run, res, err := svc.Start(ctx, testParams(), domain.UseCaseAlarmNot)
		require.NoError(t, err)
		assert.Equal(t, []int{12}, res.Processed)
		assert.Equal(t, domain.StatusSucceeded, run.Status)
		assert.Equal(t, 12, run.Processed)
		assert.NotNil(t, run.CompletedAt)
		assert.Equal(t, run.RunID, runner.runID, "run id travels with the context")

		latest, err := svc.LatestRun(ctx, "P1", "2017-11-27", domain.UseCaseAlarmNot)
		require.NoError(t, err)
		assert.Equal(t, run.RunID, latest.RunID)
	})

	t.Run("records failure", func(t *testing.T) {
		ledger := setupLedger(t)
		boom := errors.New("bucket not reachable")
		svc := NewRunService(&fakeRunner{err: boom}, ledger, fakeResults{})

		run, res, err := svc.Start(ctx, testParams(), domain.UseCaseAlarmOr)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, res)
		require.NotNil(t, run)
		assert.Equal(t, domain.StatusFailed, run.Status)
		assert.Equal(t, "bucket not reachable", run.Error)

		stored, err := svc.GetRun(ctx, run.RunID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, stored.Status)
	})

	t.Run("rejects invalid params before recording", func(t *testing.T) {
		ledger := setupLedger(t)
		svc := NewRunService(&fakeRunner{}, ledger, fakeResults{})
		params := testParams()
		params.PPID = ""

		run, _, err := svc.Start(ctx, params, domain.UseCaseAlarmNot)
		assert.ErrorIs(t, err, domain.ErrInvalidParams)
		assert.Nil(t, run)

		_, err = svc.LatestRun(ctx, "", "2017-11-27", domain.UseCaseAlarmNot)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})
}

func TestRunService_GetResult(t *testing.T) {
	rec := &records.Record{TagnameAlert: "P||inv||Q", Date: "2017-11-27"}
	svc := NewRunService(&fakeRunner{}, setupLedger(t), fakeResults{rec: rec})

	got, err := svc.GetResult(context.Background(), "P1", domain.UseCaseAlarmNot, "P||inv||Q", "2017-11-27")
	require.NoError(t, err)
	assert.Same(t, rec, got)

	_, err = svc.GetResult(context.Background(), "P1", domain.UseCaseAlarmNot, "P||inv||Q", "2017-11-28")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestRunService_ListRuns(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ledger := repository.NewRunRepository(client, 0)
	svc := NewRunService(&fakeRunner{}, ledger, fakeResults{})
	ctx := context.Background()

	day := time.Date(2017, 11, 27, 2, 30, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "gone"} {
		require.NoError(t, ledger.Create(ctx, &domain.Run{
			RunID:     id,
			PPID:      "P1",
			Date:      "2017-11-27",
			UseCase:   domain.UseCaseAlarmNot,
			CreatedAt: day.Add(time.Duration(i) * time.Hour),
		}))
	}
	mr.Del("arc:run:gone")

	runs, err := svc.ListRuns(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].RunID)
	assert.Equal(t, "first", runs[1].RunID)

	runs, err = svc.ListRuns(ctx, "P2")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
