// Package tracker re-runs a fetch on a fixed interval while a view is open.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultInterval     = 3 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// Update is one fetch result delivered to the view.
type Update[T any] struct {
	Seq   uint64
	Value T
	Err   error
}

// Poller fetches immediately and then on every tick until its context ends.
//
// Fetches may overlap when one runs longer than Interval. Each is tagged
// with a sequence number at start, and a result older than the last one
// applied is dropped, so a slow fetch never overwrites a newer view.
type Poller[T any] struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Fetch        func(ctx context.Context) (T, error)
}

// Run drives the loop. emit is only ever called from the goroutine running
// Run. Fetch errors are passed to emit rather than stopping the loop; an
// error returned by emit does stop it and is returned. Cancellation of ctx
// returns nil after in-flight fetches have exited.
func (p *Poller[T]) Run(ctx context.Context, emit func(Update[T]) error) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := p.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Update[T])
	var seq sequencer

	start := func() {
		n := seq.Next()
		wg.Add(1)
		go func() {
			defer wg.Done()
			fctx, fcancel := context.WithTimeout(ctx, timeout)
			defer fcancel()

			v, err := p.Fetch(fctx)
			select {
			case results <- Update[T]{Seq: n, Value: v, Err: err}:
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start()
		case u := <-results:
			if !seq.Accept(u.Seq) {
				slog.Debug("Discarding stale poll result", "seq", u.Seq, "applied", seq.applied)
				continue
			}
			if u.Err != nil {
				slog.Warn("Poll fetch failed", "seq", u.Seq, "error", u.Err)
			}
			if err := emit(u); err != nil {
				return err
			}
		}
	}
}

// sequencer hands out fetch numbers and tracks the newest one applied.
// It is not safe for concurrent use; the poll loop owns it.
type sequencer struct {
	issued  uint64
	applied uint64
}

func (s *sequencer) Next() uint64 {
	s.issued++
	return s.issued
}

// Accept reports whether seq is newer than anything applied so far and,
// if so, records it as applied.
func (s *sequencer) Accept(seq uint64) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}
