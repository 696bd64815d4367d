package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMailbox_PerKeyOrder(t *testing.T) {
	m := New()
	var mu sync.Mutex
	got := map[string][]int{}
	for i := 0; i < 100; i++ {
		for _, k := range []string{"a", "b", "c"} {
			k, i := k, i
			if err := m.Submit(k, func() {
				mu.Lock()
				got[k] = append(got[k], i)
				mu.Unlock()
			}); err != nil {
				t.Fatal(err)
			}
		}
	}
	m.Close()
	for k, seq := range got {
		if len(seq) != 100 {
			t.Fatalf("key %s ran %d jobs", k, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("key %s out of order at %d: %v", k, i, seq[:i+1])
			}
		}
	}
	if m.Active() != 0 {
		t.Fatalf("queues left after close: %d", m.Active())
	}
}

func TestMailbox_SameKeyNeverOverlaps(t *testing.T) {
	m := New()
	var running, maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(context.Background(), "u1", func() {
				n := running.Add(1)
				for {
					old := maxSeen.Load()
					if n <= old || maxSeen.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				running.Add(-1)
			})
		}()
	}
	wg.Wait()
	if maxSeen.Load() != 1 {
		t.Fatalf("max concurrent jobs for one key = %d", maxSeen.Load())
	}
}

func TestMailbox_DistinctKeysRunInParallel(t *testing.T) {
	m := New()
	defer m.Close()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	for _, k := range []string{"a", "b"} {
		_ = m.Submit(k, func() {
			started <- struct{}{}
			<-release
		})
	}
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("key %d never started; keys are blocking each other", i)
		}
	}
	close(release)
}

func TestMailbox_DoContextAndClose(t *testing.T) {
	m := New()
	block := make(chan struct{})
	_ = m.Submit("a", func() { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	var ran atomic.Bool
	if err := m.Do(ctx, "a", func() { ran.Store(true) }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	close(block)
	m.Close()
	if !ran.Load() {
		t.Fatalf("job abandoned after caller stopped waiting")
	}
	if err := m.Submit("a", func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("submit after close = %v", err)
	}
}
