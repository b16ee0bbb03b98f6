package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestLoop_RunsInPostOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(zaptest.NewLogger(t))
	go l.Run(ctx)

	var got []int
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() {
			got = append(got, i)
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("Expected callback %d at position %d, got %d", i, i, v)
		}
	}
}

func TestLoop_Do(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(zaptest.NewLogger(t))
	go l.Run(ctx)

	ran := false
	if err := l.Do(ctx, func() { ran = true }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !ran {
		t.Error("Expected callback to have run")
	}
}

func TestLoop_SurvivesPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(zaptest.NewLogger(t))
	go l.Run(ctx)

	l.Post(func() { panic("boom") })

	ran := false
	if err := l.Do(ctx, func() { ran = true }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !ran {
		t.Error("Expected loop to keep running after a panic")
	}
}

func TestLoop_PostAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(zaptest.NewLogger(t))
	go l.Run(ctx)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Loop did not stop")
	}

	if l.Post(func() {}) {
		t.Error("Expected Post to fail after stop")
	}
	if err := l.Do(context.Background(), func() {}); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
