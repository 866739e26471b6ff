package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/signal-comb/app/cfg"
	"github.com/lysyi3m/signal-comb/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrSchedulerStopped = errors.New("scheduler stopped")

// job is the recurring timer of one active source.
type job struct {
	frequency database.Frequency
	cancel    context.CancelFunc
}

// runHandle tracks an executing run so it can be cancelled and awaited.
type runHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Scheduler struct {
	sourceRepo   database.SourceRepository
	dispatcher   Dispatcher
	normalizer   Normalizer
	gate         ContentGate
	tracker      *RunTracker
	syncInterval time.Duration
	runTimeout   time.Duration
	intervalFor  func(database.Frequency) time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	mu       sync.Mutex
	jobs     map[string]*job
	inFlight map[string]*runHandle
}

func NewScheduler(sourceRepo database.SourceRepository, dispatcher Dispatcher, normalizer Normalizer,
	gate ContentGate, tracker *RunTracker) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceRepo:   sourceRepo,
		dispatcher:   dispatcher,
		normalizer:   normalizer,
		gate:         gate,
		tracker:      tracker,
		syncInterval: cfg.SyncIntervalDuration(),
		runTimeout:   cfg.RunTimeoutDuration(),
		intervalFor:  database.Frequency.Interval,
		ctx:          ctx,
		cancel:       cancel,
		jobs:         make(map[string]*job),
		inFlight:     make(map[string]*runHandle),
	}
}

// Start performs the initial synchronization and then resynchronizes every
// sync interval until Stop is called.
func (s *Scheduler) Start() error {
	if err := s.Synchronize(s.ctx); err != nil {
		return fmt.Errorf("failed to schedule sources: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.syncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.Synchronize(s.ctx); err != nil {
					slog.Error("Source resynchronization failed", "error", err)
				}
			}
		}
	}()

	slog.Info("Scheduler started",
		"sources", len(s.ScheduledSourceIDs()),
		"sync_interval", s.syncInterval.String(),
		"run_timeout", s.runTimeout.String())

	return nil
}

// Stop cancels every job and in-flight run and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	for id, j := range s.jobs {
		j.cancel()
		delete(s.jobs, id)
	}
	handles := make([]*runHandle, 0, len(s.inFlight))
	for _, h := range s.inFlight {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	s.wg.Wait()
	for _, h := range handles {
		<-h.done
	}

	slog.Info("Scheduler stopped")
}

// Synchronize reconciles the job set with the stored sources. Jobs of deleted or
// inactive sources are cancelled, new active sources get a job and an immediate
// run, and a changed frequency rebuilds the job without an immediate run.
func (s *Scheduler) Synchronize(ctx context.Context) error {
	sources, err := s.sourceRepo.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	active := make(map[string]database.Source, len(sources))
	for _, source := range sources {
		if source.Active {
			active[source.ID] = source
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return ErrSchedulerStopped
	}

	started, stopped, rebuilt := 0, 0, 0
	for id, j := range s.jobs {
		source, ok := active[id]
		switch {
		case !ok:
			j.cancel()
			delete(s.jobs, id)
			stopped++
		case source.Frequency != j.frequency:
			j.cancel()
			s.startJob(source, false)
			rebuilt++
		}
	}

	for id, source := range active {
		if _, ok := s.jobs[id]; !ok {
			s.startJob(source, true)
			started++
		}
	}

	if started+stopped+rebuilt > 0 {
		slog.Debug("Sources synchronized",
			"scheduled", len(s.jobs),
			"started", started,
			"stopped", stopped,
			"rebuilt", rebuilt)
	}

	return nil
}

// startJob must be called with s.mu held.
func (s *Scheduler) startJob(source database.Source, immediate bool) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.jobs[source.ID] = &job{frequency: source.Frequency, cancel: cancel}

	interval := s.intervalFor(source.Frequency)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if immediate {
			s.trigger(source.ID)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.trigger(source.ID)
			}
		}
	}()
}

// trigger starts a run without blocking the job's timer; the in-flight guard
// turns fires that land during a slow run into no-ops. Runs are bound to the
// scheduler rather than the job so a rebuilt job does not cancel them.
func (s *Scheduler) trigger(sourceID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunSource(s.ctx, sourceID); err != nil && !errors.Is(err, ErrSchedulerStopped) {
			slog.Debug("Scheduled run ended with error", "source_id", sourceID, "error", err)
		}
	}()
}

// RunSource executes one run for the source unless a run for it is already in
// flight, in which case it returns false without doing anything.
func (s *Scheduler) RunSource(ctx context.Context, sourceID string) (bool, error) {
	runCtx, handle, err := s.acquire(ctx, sourceID)
	if err != nil {
		return false, err
	}
	if handle == nil {
		slog.Debug("Run already in flight, skipping", "source_id", sourceID)
		return false, nil
	}
	defer s.release(sourceID, handle)

	task := NewPollSourceTask(sourceID, s.sourceRepo, s.dispatcher, s.normalizer, s.gate, s.tracker)
	return true, s.executeTask(runCtx, task)
}

func (s *Scheduler) executeTask(ctx context.Context, task TaskInterface) error {
	task.Start()

	if err := task.Execute(ctx); err != nil {
		slog.Error("Task execution failed",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"source_id", task.GetSourceID(),
			"duration", task.GetDuration(),
			"error", err)
		return err
	}

	return nil
}

func (s *Scheduler) acquire(ctx context.Context, sourceID string) (context.Context, *runHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, nil, ErrSchedulerStopped
	}
	if _, busy := s.inFlight[sourceID]; busy {
		return nil, nil, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	handle := &runHandle{cancel: cancel, done: make(chan struct{})}
	s.inFlight[sourceID] = handle

	return runCtx, handle, nil
}

func (s *Scheduler) release(sourceID string, handle *runHandle) {
	s.mu.Lock()
	if s.inFlight[sourceID] == handle {
		delete(s.inFlight, sourceID)
	}
	s.mu.Unlock()

	handle.cancel()
	close(handle.done)
}

func (s *Scheduler) ScheduledSourceIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Scheduler) InFlight(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.inFlight[sourceID]
	return ok
}
