package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// providerSlot pairs a provider with the scheduling state the dispatcher keeps
// for it.
type providerSlot struct {
	provider Provider

	// flushMu is held for the whole duration of a flush, so a provider is never
	// flushed concurrently with itself.
	flushMu sync.Mutex

	// errorReports throttles repeated failure reports of a broken destination.
	errorReports rate.Sometimes
}

func newProviderSlot(p Provider) *providerSlot {
	return &providerSlot{
		provider:     p,
		errorReports: rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(context.WithoutCancel(ctx), d.now())
		}
	}
}

// tick starts a flush for every provider whose interval has elapsed since its
// last flush. Flushes run in the background and are not awaited; a provider
// whose previous flush is still running is skipped until a later tick.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	for _, s := range d.snapshot() {
		p := s.provider

		dueAt := p.LastFlushAt().Add(p.FlushInterval())
		if now.Before(dueAt) {
			continue
		}

		if !s.flushMu.TryLock() {
			d.logger.Debug("previous flush still running, skipping provider.", "provider", p.Name())
			continue
		}

		d.inflight.Go(func() {
			defer s.flushMu.Unlock()
			d.flush(ctx, s) //nolint:errcheck
		})

		p.SetLastFlushAt(now)
	}
}

// FlushAllNow flushes every provider regardless of its schedule and waits for
// all of them. A scheduled flush that is still running for a provider is
// allowed to finish first. Every failure is reported; the first one is
// returned.
func (d *Dispatcher) FlushAllNow(ctx context.Context) error {
	var g errgroup.Group

	for _, s := range d.snapshot() {
		g.Go(func() error {
			s.flushMu.Lock()
			defer s.flushMu.Unlock()

			err := d.flush(ctx, s)
			s.provider.SetLastFlushAt(d.now())
			return err
		})
	}

	return g.Wait()
}

// flush runs a single provider flush. Errors and panics are reported here so
// that a failing destination never reaches the application.
func (d *Dispatcher) flush(ctx context.Context, s *providerSlot) (err error) {
	name := s.provider.Name()
	flushID := uuid.New()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked during flush: %v", name, r)
		}

		if err != nil {
			s.errorReports.Do(func() {
				d.logger.Error("failed to flush provider.", "provider", name, "flush_id", flushID, "error", err)
			})
		}
	}()

	d.logger.Debug("flushing provider.", "provider", name, "flush_id", flushID)

	if err := s.provider.Flush(ctx); err != nil {
		return fmt.Errorf("cannot flush provider %s: %w", name, err)
	}

	return nil
}
