// Package mailbox runs jobs one at a time per key, in submission order, while
// different keys proceed in parallel.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("mailbox closed")

type queue struct {
	jobs []func()
}

type Mailbox struct {
	mu     sync.Mutex
	queues map[string]*queue
	closed bool
	wg     sync.WaitGroup
}

func New() *Mailbox {
	return &Mailbox{queues: make(map[string]*queue)}
}

// Submit enqueues job behind every earlier job for key. A worker goroutine is
// started for the key if none is running and exits once the queue drains.
func (m *Mailbox) Submit(key string, job func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if q, ok := m.queues[key]; ok {
		q.jobs = append(q.jobs, job)
		return nil
	}
	q := &queue{jobs: []func(){job}}
	m.queues[key] = q
	m.wg.Add(1)
	go m.drain(key, q)
	return nil
}

func (m *Mailbox) drain(key string, q *queue) {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		if len(q.jobs) == 0 {
			delete(m.queues, key)
			m.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		m.mu.Unlock()

		job()
	}
}

// Do submits job and waits for it. If ctx ends first Do returns ctx.Err(); the
// job still runs in its turn.
func (m *Mailbox) Do(ctx context.Context, key string, job func()) error {
	done := make(chan struct{})
	if err := m.Submit(key, func() {
		defer close(done)
		job()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active is the number of keys with queued or running work.
func (m *Mailbox) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues)
}

// Close rejects new jobs and waits for queued ones to finish.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
}
