package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_SubmitRunsAndWaits(t *testing.T) {
	p := NewPool(2, 4)
	p.Start()
	defer p.Stop()

	var ran bool
	if err := p.Submit(context.Background(), "s-1", func(context.Context) { ran = true }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !ran {
		t.Fatalf("expected job to have run before Submit returned")
	}
}

func TestPool_SameSessionIsSerial(t *testing.T) {
	p := NewPool(4, 64)
	p.Start()
	defer p.Stop()

	var (
		active  int32
		overlap int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Submit(context.Background(), "same-session", func(context.Context) {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
			if err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlap != 0 {
		t.Fatalf("turns of one session overlapped")
	}
}

func TestPool_DifferentSessionsRunConcurrently(t *testing.T) {
	p := NewPool(8, 4)
	p.Start()
	defer p.Stop()

	// Find two sessions on different shards.
	a, b := "session-a", ""
	for i := 0; i < 100; i++ {
		candidate := fmt.Sprintf("session-%d", i)
		if p.shardFor(candidate) != p.shardFor(a) {
			b = candidate
			break
		}
	}
	if b == "" {
		t.Fatalf("no second shard found")
	}

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Submit(context.Background(), a, func(context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		done <- p.Submit(context.Background(), b, func(context.Context) {})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("second session blocked behind the first")
	}
	close(release)
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Submit(context.Background(), "s", func(context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	// Fills the single queue slot.
	queued := make(chan error, 1)
	go func() {
		queued <- p.Submit(context.Background(), "s", func(context.Context) {})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(p.shards[0]) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("job never queued")
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Submit(context.Background(), "s", func(context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	if err := <-queued; err != nil {
		t.Fatalf("queued submit: %v", err)
	}
}

func TestPool_ContextCancelled(t *testing.T) {
	p := NewPool(1, 2)
	p.Start()
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Submit(context.Background(), "s", func(context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Submit(ctx, "s", func(context.Context) { ran.Store(true) })
	}()
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)

	// A follow-up turn on the same shard proves the abandoned one was drained.
	if err := p.Submit(context.Background(), "s", func(context.Context) {}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ran.Load() {
		t.Fatalf("abandoned turn should not run")
	}
}

func TestPool_PanicDoesNotKillShard(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	if err := p.Submit(context.Background(), "s", func(context.Context) { panic("boom") }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	var ran bool
	if err := p.Submit(context.Background(), "s", func(context.Context) { ran = true }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !ran {
		t.Fatalf("shard stopped after panic")
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	p.Stop()
	p.Stop()

	if err := p.Submit(context.Background(), "s", func(context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
