package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
	"github.com/noah-isme/sma-daily-scheduler/pkg/jobs"
)

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type rangeGeneratorStub struct {
	calls int
	fn    func(ctx context.Context, start time.Time, days int, onDay DayCallback) error
}

func (g *rangeGeneratorStub) GenerateRange(ctx context.Context, start time.Time, days int, onDay DayCallback) error {
	g.calls++
	return g.fn(ctx, start, days, onDay)
}

func emptyDay(date time.Time) *scheduler.DaySchedule {
	return scheduler.NewDaySchedule(date, scheduler.DefaultTimeGrid())
}

func newRunFixture(gen *rangeGeneratorStub) (*ScheduleRunService, *dispatcherStub, *MetricsService) {
	queue := &dispatcherStub{}
	metrics := NewMetricsService()
	svc := NewScheduleRunService(gen, queue, metrics, nil, nil, ScheduleRunConfig{RunTTL: time.Hour})
	return svc, queue, metrics
}

func TestScheduleRunServiceCompletesRun(t *testing.T) {
	gen := &rangeGeneratorStub{fn: func(ctx context.Context, start time.Time, days int, onDay DayCallback) error {
		onDay(emptyDay(start), nil)
		onDay(emptyDay(start.AddDate(0, 0, 1)), errors.New("write failed"))
		onDay(emptyDay(start.AddDate(0, 0, 2)), nil)
		return nil
	}}
	svc, queue, _ := newRunFixture(gen)

	run, err := svc.Start(context.Background(), dto.StartRunRequest{StartDate: "2025-09-29", Days: 3})
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusQueued, run.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, ScheduleRunJobType, queue.jobs[0].Type)

	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))

	status, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusCompleted, status.Status)
	assert.Equal(t, 2, status.Stored)
	assert.Equal(t, 1, status.Failed)
	assert.Len(t, status.Summaries, 3)
	assert.Contains(t, status.Failures, "2025-09-30")
}

func TestScheduleRunServiceStartValidation(t *testing.T) {
	svc, _, _ := newRunFixture(&rangeGeneratorStub{})

	_, err := svc.Start(context.Background(), dto.StartRunRequest{StartDate: "2025-09-29"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleRunServiceEnqueueFailure(t *testing.T) {
	svc, queue, _ := newRunFixture(&rangeGeneratorStub{})
	queue.err = errors.New("queue stopped")

	_, err := svc.Start(context.Background(), dto.StartRunRequest{StartDate: "2025-09-29", Days: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
}

func TestScheduleRunServiceCancelQueuedRun(t *testing.T) {
	gen := &rangeGeneratorStub{fn: func(context.Context, time.Time, int, DayCallback) error { return nil }}
	svc, queue, _ := newRunFixture(gen)

	run, err := svc.Start(context.Background(), dto.StartRunRequest{StartDate: "2025-09-29", Days: 2})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusCancelled, cancelled.Status)

	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))
	assert.Zero(t, gen.calls, "cancelled runs never reach the generator")

	_, err = svc.Cancel(context.Background(), run.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleRunServiceCancelRunningRun(t *testing.T) {
	gen := &rangeGeneratorStub{}
	svc, queue, metrics := newRunFixture(gen)
	gen.fn = func(ctx context.Context, start time.Time, days int, onDay DayCallback) error {
		onDay(emptyDay(start), nil)
		_, err := svc.Cancel(context.Background(), queue.jobs[0].ID)
		require.NoError(t, err)
		<-ctx.Done()
		return ctx.Err()
	}

	run, err := svc.Start(context.Background(), dto.StartRunRequest{StartDate: "2025-09-29", Days: 5})
	require.NoError(t, err)
	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))

	status, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusCancelled, status.Status)
	assert.Equal(t, 1, status.Stored)
	assert.NotNil(t, metrics.Registry())
}

func TestScheduleRunServiceFailureIsRetriedThenGivenUp(t *testing.T) {
	gen := &rangeGeneratorStub{fn: func(context.Context, time.Time, int, DayCallback) error {
		return appErrors.Clone(appErrors.ErrInternal, "failed to load teachers and classes")
	}}
	svc, queue, _ := newRunFixture(gen)

	run, err := svc.Start(context.Background(), dto.StartRunRequest{StartDate: "2025-09-29", Days: 1})
	require.NoError(t, err)

	handleErr := svc.Handle(context.Background(), queue.jobs[0])
	require.Error(t, handleErr)
	status, _ := svc.Get(context.Background(), run.ID)
	assert.Equal(t, dto.RunStatusQueued, status.Status)
	assert.Equal(t, "failed to load teachers and classes", status.Error)

	svc.GiveUp(queue.jobs[0], handleErr)
	status, _ = svc.Get(context.Background(), run.ID)
	assert.Equal(t, dto.RunStatusFailed, status.Status)
	assert.True(t, status.Terminal())
}

func TestScheduleRunServiceUnknownRun(t *testing.T) {
	svc, _, _ := newRunFixture(&rangeGeneratorStub{})

	_, err := svc.Get(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	_, err = svc.Cancel(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Handle(context.Background(), jobs.Job{ID: "missing", Type: ScheduleRunJobType})
	assert.True(t, jobs.IsPermanent(err))
}

func TestRunStoreExpiresTerminalRuns(t *testing.T) {
	store := newRunStore(time.Minute)
	store.Save(&scheduleRun{status: dto.RunStatus{ID: "old", Status: dto.RunStatusCompleted, UpdatedAt: time.Now().Add(-2 * time.Minute)}})
	store.Save(&scheduleRun{status: dto.RunStatus{ID: "live", Status: dto.RunStatusRunning, UpdatedAt: time.Now().Add(-2 * time.Minute)}})

	_, ok := store.Snapshot("old")
	assert.False(t, ok)
	_, ok = store.Snapshot("live")
	assert.True(t, ok, "active runs never expire")
}
