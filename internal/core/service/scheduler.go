package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tickable is one tracking simulator. Tick is called once per advance and
// reports whether the simulator reached its terminal state.
type Tickable interface {
	Tick() (done bool)
}

// Scheduler drives every registered simulator from a single ticker. Each
// simulator advances every ceil(interval/resolution) base ticks.
type Scheduler struct {
	resolution time.Duration
	logger     *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	every   int
	elapsed int
	target  Tickable
}

type dueJob struct {
	id string
	j  *job
}

func NewScheduler(resolution time.Duration, logger *zap.Logger) *Scheduler {
	if resolution <= 0 {
		resolution = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		resolution: resolution,
		logger:     logger,
		jobs:       make(map[string]*job),
	}
}

func (s *Scheduler) Resolution() time.Duration { return s.resolution }

// Register replaces any simulator already registered under id.
func (s *Scheduler) Register(id string, interval time.Duration, target Tickable) {
	every := int((interval + s.resolution - 1) / s.resolution)
	if every < 1 {
		every = 1
	}

	s.mu.Lock()
	s.jobs[id] = &job{every: every, target: target}
	s.mu.Unlock()

	s.logger.Debug("simulator registered", zap.String("id", id), zap.Int("every_ticks", every))
}

func (s *Scheduler) Unregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Step performs one base tick and returns how many simulators advanced.
// Targets are ticked outside the scheduler lock so they may take their own locks.
func (s *Scheduler) Step() int {
	s.mu.Lock()
	var due []dueJob
	for id, j := range s.jobs {
		j.elapsed++
		if j.elapsed >= j.every {
			j.elapsed = 0
			due = append(due, dueJob{id: id, j: j})
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(a, b int) bool { return due[a].id < due[b].id })

	for _, d := range due {
		if !d.j.target.Tick() {
			continue
		}
		s.mu.Lock()
		if s.jobs[d.id] == d.j {
			delete(s.jobs, d.id)
		}
		s.mu.Unlock()
		s.logger.Debug("simulator finished", zap.String("id", d.id))
	}
	return len(due)
}

// Run ticks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	s.logger.Info("tracking scheduler started", zap.Duration("resolution", s.resolution))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracking scheduler stopped")
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}
