package boxtree

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs deferred split tasks on a bounded pool. A task pushed while
// the pool is full runs inline on the pushing goroutine, so tasks that push
// further tasks can never deadlock waiting for a slot. Join is the barrier.
type Scheduler struct {
	workers int

	mu     sync.Mutex
	g      *errgroup.Group
	inline error
}

// NewScheduler returns a scheduler with at most workers concurrent tasks.
func NewScheduler(workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{workers: workers, g: newGroup(workers)}
}

func newGroup(workers int) *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(workers)
	return g
}

// Push schedules task.
func (s *Scheduler) Push(task func() error) {
	s.mu.Lock()
	g := s.g
	s.mu.Unlock()
	if g.TryGo(task) {
		return
	}
	if err := task(); err != nil {
		s.mu.Lock()
		if s.inline == nil {
			s.inline = err
		}
		s.mu.Unlock()
	}
}

// Join waits for every pushed task, including tasks pushed by tasks, and
// returns the first error. The scheduler can be reused afterwards.
func (s *Scheduler) Join() error {
	s.mu.Lock()
	g := s.g
	s.mu.Unlock()
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = s.inline
	}
	s.inline = nil
	s.g = newGroup(s.workers)
	return err
}

func schedule(s *Scheduler, task func() error) error {
	if s == nil {
		return task()
	}
	s.Push(task)
	return nil
}
