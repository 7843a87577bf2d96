package engine

import (
	"context"
	"time"

	"github.com/thisisjab/applogger/entity"
)

// Provider is the contract every log sink satisfies. A provider decides on its
// own which events to keep, buffers them and writes them out when Flush is
// called. The dispatcher only reads the scheduling fields.
type Provider interface {
	Name() string
	Log(level entity.LogLevel, message string, extra any)
	Flush(ctx context.Context) error
	MinLevel() entity.LogLevel
	FlushInterval() time.Duration
	LastFlushAt() time.Time
	SetLastFlushAt(t time.Time)
}
