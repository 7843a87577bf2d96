package provider

import (
	"sync"
	"time"

	"github.com/thisisjab/applogger/entity"
)

const (
	DefaultMinLevel      = entity.LogLevelInfo
	DefaultFlushInterval = time.Second
)

// Options holds the settings shared by every provider.
type Options struct {
	Name string `yaml:"-"`

	// MinLevel is the lowest level the provider admits. It is a pointer because
	// LogLevelTrace is the zero value; nil means DefaultMinLevel.
	MinLevel *entity.LogLevel `yaml:"min_level"`

	// FlushInterval is how long the provider waits between scheduled flushes.
	// Zero means DefaultFlushInterval.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Level returns a pointer to l, for use in Options.MinLevel.
func Level(l entity.LogLevel) *entity.LogLevel {
	return &l
}

// Base implements admission and buffering for concrete providers, which embed
// it and add their own Flush.
type Base struct {
	name          string
	minLevel      entity.LogLevel
	flushInterval time.Duration
	now           func() time.Time

	mu          sync.Mutex
	lastFlushAt time.Time
	pending     []entity.LogEvent
}

func (b *Base) init(opts Options, defaultName string) {
	b.name = opts.Name
	if b.name == "" {
		b.name = defaultName
	}

	b.minLevel = DefaultMinLevel
	if opts.MinLevel != nil {
		b.minLevel = *opts.MinLevel
	}

	b.flushInterval = opts.FlushInterval
	if b.flushInterval <= 0 {
		b.flushInterval = DefaultFlushInterval
	}

	if b.now == nil {
		b.now = time.Now
	}
	b.lastFlushAt = b.now()
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) MinLevel() entity.LogLevel {
	return b.minLevel
}

func (b *Base) FlushInterval() time.Duration {
	return b.flushInterval
}

func (b *Base) LastFlushAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFlushAt
}

func (b *Base) SetLastFlushAt(t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFlushAt = t
}

// Log buffers the event if its level reaches the provider's minimum level.
func (b *Base) Log(level entity.LogLevel, message string, extra any) {
	if level < b.minLevel {
		return
	}

	event := entity.LogEvent{
		Timestamp: b.now(),
		Level:     level,
		Message:   message,
		Extra:     extra,
	}

	b.mu.Lock()
	b.pending = append(b.pending, event)
	b.mu.Unlock()
}

func (b *Base) Trace(message string, extra any) {
	b.Log(entity.LogLevelTrace, message, extra)
}

func (b *Base) Debug(message string, extra any) {
	b.Log(entity.LogLevelDebug, message, extra)
}

func (b *Base) Info(message string, extra any) {
	b.Log(entity.LogLevelInfo, message, extra)
}

func (b *Base) Warning(message string, extra any) {
	b.Log(entity.LogLevelWarning, message, extra)
}

func (b *Base) Error(message string, extra any) {
	b.Log(entity.LogLevelError, message, extra)
}

func (b *Base) Critical(message string, extra any) {
	b.Log(entity.LogLevelCritical, message, extra)
}

// Take swaps the pending buffer for an empty one and returns what was in it.
// Events logged afterwards go to the new buffer.
func (b *Base) Take() []entity.LogEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.pending
	b.pending = nil
	return events
}

// Pending returns the number of buffered events.
func (b *Base) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
