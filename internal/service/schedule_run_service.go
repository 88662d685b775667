package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
	"github.com/noah-isme/sma-daily-scheduler/pkg/jobs"
)

// ScheduleRunJobType tags queue jobs that generate a range of days.
const ScheduleRunJobType = "schedule_run"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type rangeGenerator interface {
	GenerateRange(ctx context.Context, start time.Time, days int, onDay DayCallback) error
}

// ScheduleRunConfig governs background runs.
type ScheduleRunConfig struct {
	RunTTL time.Duration
}

// ScheduleRunService tracks background multi-day generations. Runs live in memory and
// expire RunTTL after their last update.
type ScheduleRunService struct {
	generator rangeGenerator
	queue     jobDispatcher
	store     *runStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleRunConfig
}

// NewScheduleRunService constructs the service. The queue is usually attached afterwards
// with SetQueue because the queue needs Handle as its handler.
func NewScheduleRunService(generator rangeGenerator, queue jobDispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ScheduleRunConfig) *ScheduleRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	return &ScheduleRunService{
		generator: generator,
		queue:     queue,
		store:     newRunStore(cfg.RunTTL),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetQueue attaches the dispatcher runs are enqueued on.
func (s *ScheduleRunService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Start validates the request and queues a run.
func (s *ScheduleRunService) Start(ctx context.Context, req dto.StartRunRequest) (*dto.RunStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule run payload")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "schedule runner not started")
	}

	now := time.Now().UTC()
	run := &scheduleRun{
		status: dto.RunStatus{
			ID:        uuid.NewString(),
			Status:    dto.RunStatusQueued,
			StartDate: req.StartDate,
			Days:      req.Days,
			Failures:  map[string]string{},
			CreatedAt: now,
			UpdatedAt: now,
		},
		start: start,
	}
	s.store.Save(run)

	if err := s.queue.Enqueue(jobs.Job{ID: run.status.ID, Type: ScheduleRunJobType}); err != nil {
		s.store.Update(run.status.ID, func(r *scheduleRun) {
			r.status.Status = dto.RunStatusFailed
			r.status.Error = "failed to enqueue run"
		})
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to enqueue schedule run")
	}
	s.logger.Sugar().Infow("schedule run queued", "run_id", run.status.ID, "start_date", req.StartDate, "days", req.Days)
	status, _ := s.store.Snapshot(run.status.ID)
	return &status, nil
}

// Get returns the current state of a run.
func (s *ScheduleRunService) Get(_ context.Context, id string) (*dto.RunStatus, error) {
	status, ok := s.store.Snapshot(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
	}
	return &status, nil
}

// Cancel stops a run. A queued run is cancelled immediately; a running one stops after
// the day it is generating.
func (s *ScheduleRunService) Cancel(_ context.Context, id string) (*dto.RunStatus, error) {
	var conflict bool
	found := s.store.Update(id, func(r *scheduleRun) {
		if r.status.Terminal() {
			conflict = true
			return
		}
		r.cancelRequested = true
		if r.cancel != nil {
			r.cancel()
			return
		}
		r.status.Status = dto.RunStatusCancelled
	})
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
	}
	status, _ := s.store.Snapshot(id)
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule run already "+status.Status)
	}
	return &status, nil
}

// Handle executes a queued run. It is the queue handler.
func (s *ScheduleRunService) Handle(ctx context.Context, job jobs.Job) (err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		start time.Time
		days  int
		skip  bool
	)
	found := s.store.Update(job.ID, func(r *scheduleRun) {
		if r.cancelRequested || r.status.Terminal() {
			skip = true
			return
		}
		r.cancel = cancel
		r.status.Status = dto.RunStatusRunning
		r.status.Error = ""
		r.status.Stored, r.status.Failed = 0, 0
		r.status.Summaries = nil
		r.status.Failures = map[string]string{}
		start, days = r.start, r.status.Days
	})
	if !found {
		return jobs.Permanent(errors.New("schedule run expired before it started"))
	}
	if skip {
		return nil
	}

	s.metrics.RunStarted()
	started := time.Now()
	outcome := dto.RunStatusFailed
	defer func() {
		s.metrics.RunFinished(outcome)
		s.metrics.ObserveGeneration("run", time.Since(started))
	}()

	err = s.generator.GenerateRange(runCtx, start, days, func(day *scheduler.DaySchedule, storeErr error) {
		s.store.Update(job.ID, func(r *scheduleRun) {
			r.status.Summaries = append(r.status.Summaries, day.Summary())
			if storeErr != nil {
				r.status.Failed++
				r.status.Failures[day.Key()] = appErrors.FromError(storeErr).Message
				return
			}
			r.status.Stored++
		})
	})

	switch {
	case err == nil:
		outcome = dto.RunStatusCompleted
		s.finish(job.ID, dto.RunStatusCompleted, "")
		s.logger.Sugar().Infow("schedule run completed", "run_id", job.ID)
		return nil
	case errors.Is(err, context.Canceled):
		outcome = dto.RunStatusCancelled
		s.finish(job.ID, dto.RunStatusCancelled, "")
		s.logger.Sugar().Infow("schedule run cancelled", "run_id", job.ID)
		return nil
	default:
		s.store.Update(job.ID, func(r *scheduleRun) {
			r.cancel = nil
			r.status.Status = dto.RunStatusQueued
			r.status.Error = appErrors.FromError(err).Message
		})
		return err
	}
}

// GiveUp marks a run failed once the queue stops retrying it.
func (s *ScheduleRunService) GiveUp(job jobs.Job, err error) {
	if job.Type != ScheduleRunJobType {
		return
	}
	s.finish(job.ID, dto.RunStatusFailed, appErrors.FromError(err).Message)
}

func (s *ScheduleRunService) finish(id, status, message string) {
	s.store.Update(id, func(r *scheduleRun) {
		r.cancel = nil
		r.status.Status = status
		if message != "" {
			r.status.Error = message
		}
	})
}

type scheduleRun struct {
	status          dto.RunStatus
	start           time.Time
	cancel          context.CancelFunc
	cancelRequested bool
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*scheduleRun
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]*scheduleRun),
	}
}

func (s *runStore) Save(run *scheduleRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(time.Now().UTC())
	s.items[run.status.ID] = run
}

// Snapshot returns a copy safe to hand to callers.
func (s *runStore) Snapshot(id string) (dto.RunStatus, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	if !ok {
		s.mu.RUnlock()
		return dto.RunStatus{}, false
	}
	status := run.status
	status.Summaries = append([]scheduler.DaySummary(nil), run.status.Summaries...)
	status.Failures = make(map[string]string, len(run.status.Failures))
	for k, v := range run.status.Failures {
		status.Failures[k] = v
	}
	s.mu.RUnlock()

	if status.Terminal() && time.Since(status.UpdatedAt) > s.ttl {
		s.Delete(id)
		return dto.RunStatus{}, false
	}
	return status, true
}

// Update applies fn under the write lock and stamps UpdatedAt.
func (s *runStore) Update(id string, fn func(*scheduleRun)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.items[id]
	if !ok {
		return false
	}
	fn(run)
	run.status.UpdatedAt = time.Now().UTC()
	return true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *runStore) sweepLocked(now time.Time) {
	for id, run := range s.items {
		if run.status.Terminal() && now.Sub(run.status.UpdatedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
