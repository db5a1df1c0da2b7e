package boxtree

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestSchedulerRunsNestedTasks(t *testing.T) {
	s := NewScheduler(2)
	var ran atomic.Int64
	var push func(depth int)
	push = func(depth int) {
		s.Push(func() error {
			ran.Add(1)
			if depth < 4 {
				push(depth + 1)
				push(depth + 1)
			}
			return nil
		})
	}
	push(0)
	if err := s.Join(); err != nil {
		t.Fatal(err)
	}
	if got := ran.Load(); got != 31 {
		t.Errorf("ran %d tasks, want 31", got)
	}
}

func TestSchedulerReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewScheduler(1)
	for i := 0; i < 5; i++ {
		s.Push(func() error { return boom })
	}
	if err := s.Join(); !errors.Is(err, boom) {
		t.Errorf("Join = %v, want boom", err)
	}
	s.Push(func() error { return nil })
	if err := s.Join(); err != nil {
		t.Errorf("reused scheduler Join = %v", err)
	}
}
