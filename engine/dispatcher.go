package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thisisjab/applogger/entity"
)

// DefaultTickInterval is how often the scheduler asks providers whether they are due.
const DefaultTickInterval = time.Second

// ErrShutdown is returned when a dispatcher is shut down twice.
var ErrShutdown = errors.New("dispatcher is shut down")

type Config struct {
	Providers []Provider

	// TickInterval is the period of the flush scheduler. It is independent of
	// every provider's own flush interval. Zero means DefaultTickInterval.
	TickInterval time.Duration
}

func (c Config) validate() error {
	if c.TickInterval < 0 {
		return errors.New("tick interval cannot be negative")
	}

	for i, p := range c.Providers {
		if p == nil {
			return fmt.Errorf("provider at index %d is nil", i)
		}
	}

	return nil
}

type dispatcherState int32

const (
	stateConstructed dispatcherState = iota
	stateRunning
	stateShutDown
)

// Dispatcher fans log calls out to its providers and runs the scheduler that
// flushes them. Providers can be added while it runs but never removed.
type Dispatcher struct {
	logger       *slog.Logger
	tickInterval time.Duration
	now          func() time.Time

	mu    sync.RWMutex
	slots []*providerSlot
	state atomic.Int32

	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
}

// New creates a dispatcher and starts its flush scheduler. A nil logger
// discards the dispatcher's own diagnostics.
func New(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		logger:       logger,
		tickInterval: cfg.TickInterval,
		now:          time.Now,
		done:         make(chan struct{}),
	}
	if d.tickInterval == 0 {
		d.tickInterval = DefaultTickInterval
	}

	for _, p := range cfg.Providers {
		d.slots = append(d.slots, newProviderSlot(p))
	}

	d.start()

	return d, nil
}

func (d *Dispatcher) start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.state.Store(int32(stateRunning))

	go d.run(ctx)

	d.logger.Debug("dispatcher started.", "providers", len(d.slots), "tick_interval", d.tickInterval)
}

// AddProvider registers p for every subsequent Log call. Events already
// buffered by other providers are not replayed into it.
func (d *Dispatcher) AddProvider(p Provider) {
	if p == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if dispatcherState(d.state.Load()) == stateShutDown {
		d.logger.Warn("ignoring provider added after shutdown.", "provider", p.Name())
		return
	}

	d.slots = append(d.slots, newProviderSlot(p))
	d.logger.Debug("added provider.", "provider", p.Name())
}

// Providers returns the registered providers in registration order.
func (d *Dispatcher) Providers() []Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()

	providers := make([]Provider, len(d.slots))
	for i, s := range d.slots {
		providers[i] = s.provider
	}
	return providers
}

func (d *Dispatcher) snapshot() []*providerSlot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	slots := make([]*providerSlot, len(d.slots))
	copy(slots, d.slots)
	return slots
}

// Log hands the event to every provider; each one applies its own level
// threshold. Calls made after Shutdown are dropped.
func (d *Dispatcher) Log(level entity.LogLevel, message string, extra any) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if dispatcherState(d.state.Load()) != stateRunning {
		return
	}

	for _, s := range d.slots {
		s.provider.Log(level, message, extra)
	}
}

func (d *Dispatcher) Trace(message string, extra any) {
	d.Log(entity.LogLevelTrace, message, extra)
}

func (d *Dispatcher) Debug(message string, extra any) {
	d.Log(entity.LogLevelDebug, message, extra)
}

func (d *Dispatcher) Info(message string, extra any) {
	d.Log(entity.LogLevelInfo, message, extra)
}

func (d *Dispatcher) Warning(message string, extra any) {
	d.Log(entity.LogLevelWarning, message, extra)
}

func (d *Dispatcher) Error(message string, extra any) {
	d.Log(entity.LogLevelError, message, extra)
}

func (d *Dispatcher) Critical(message string, extra any) {
	d.Log(entity.LogLevelCritical, message, extra)
}

// Shutdown stops the scheduler, waits for scheduled flushes that are still
// running and then flushes every provider one last time. Providers that
// implement io.Closer are closed afterwards. The dispatcher cannot be
// restarted.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if dispatcherState(d.state.Load()) != stateRunning {
		d.mu.Unlock()
		return ErrShutdown
	}
	d.state.Store(int32(stateShutDown))
	d.mu.Unlock()

	d.cancel()
	<-d.done
	d.inflight.Wait()

	d.logger.Debug("scheduler stopped. flushing remaining logs.")

	err := d.FlushAllNow(ctx)

	for _, s := range d.snapshot() {
		c, ok := s.provider.(io.Closer)
		if !ok {
			continue
		}
		if cerr := c.Close(); cerr != nil {
			d.logger.Error("failed to close provider.", "provider", s.provider.Name(), "error", cerr)
		}
	}

	return err
}

