// SPDX-License-Identifier: MIT
package frame

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) stage(name string) Stage {
	return Func(name, func(float64) {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
	})
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestLoopRunsStagesInRegistrationOrder(t *testing.T) {
	l, err := NewLoop(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	var rec recorder
	order := []string{"keys", "spectrum", "bars", "color", "publish"}
	for _, name := range order {
		if err := l.Register(rec.stage(name)); err != nil {
			t.Fatal(err)
		}
	}

	l.Step(0.01)
	l.Step(0.01)

	got := rec.snapshot()
	if len(got) != 2*len(order) {
		t.Fatalf("calls = %v", got)
	}
	for i, name := range got {
		if name != order[i%len(order)] {
			t.Errorf("call %d = %s, want %s", i, name, order[i%len(order)])
		}
	}
	if l.Ticks() != 2 {
		t.Errorf("Ticks() = %d, want 2", l.Ticks())
	}
	if names := l.Stages(); len(names) != len(order) || names[0] != "keys" {
		t.Errorf("Stages() = %v", names)
	}
}

func TestLoopPostedTasksRunBeforeStages(t *testing.T) {
	l, _ := NewLoop(time.Millisecond)
	var rec recorder
	l.Register(rec.stage("stage"))

	l.Post(func() {
		rec.mu.Lock()
		rec.calls = append(rec.calls, "task")
		rec.mu.Unlock()
	})
	l.Post(nil)
	l.Step(0)
	l.Step(0)

	got := rec.snapshot()
	want := []string{"task", "stage", "stage"}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLoopTaskPostedFromTaskRunsNextTick(t *testing.T) {
	l, _ := NewLoop(time.Millisecond)
	var ran int
	l.Post(func() {
		l.Post(func() { ran++ })
	})
	l.Step(0)
	if ran != 0 {
		t.Fatal("nested task ran in the same tick")
	}
	l.Step(0)
	if ran != 1 {
		t.Errorf("nested task ran %d times, want 1", ran)
	}
}

func TestLoopPassesFixedDt(t *testing.T) {
	l, _ := NewLoop(5 * time.Millisecond)
	dts := make(chan float64, 4)
	l.Register(Func("probe", func(dt float64) {
		select {
		case dts <- dt:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	for range 3 {
		select {
		case dt := <-dts:
			if dt != 0.005 {
				t.Errorf("dt = %v, want 0.005", dt)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not tick")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestLoopRejectsRegistrationWhileRunning(t *testing.T) {
	l, _ := NewLoop(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	l.Post(func() { close(started) })
	go l.Run(ctx)
	<-started

	if err := l.Register(Func("late", func(float64) {})); err == nil {
		t.Error("registration on a running loop succeeded")
	}
	if err := l.Run(ctx); err == nil {
		t.Error("second Run succeeded")
	}
}

func TestNewLoopValidation(t *testing.T) {
	if _, err := NewLoop(0); err == nil {
		t.Error("zero interval accepted")
	}
	l, _ := NewLoop(time.Millisecond)
	if err := l.Register(nil); err == nil {
		t.Error("nil stage accepted")
	}
}

func TestLoopStepZeroAllocs(t *testing.T) {
	l, _ := NewLoop(time.Millisecond)
	var n int
	l.Register(Func("count", func(float64) { n++ }))
	l.Step(0)
	allocs := testing.AllocsPerRun(100, func() { l.Step(0.016) })
	if allocs > 0 {
		t.Errorf("Expected zero allocations per idle tick, got %.1f", allocs)
	}
}
