package entity

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel is the ordered severity of a log event. Providers compare levels
// numerically, so the order of the constants below matters.
type LogLevel int8

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelCritical
)

var levelNames = [...]string{"Trace", "Debug", "Info", "Warning", "Error", "Critical"}

func (l LogLevel) String() string {
	if l < LogLevelTrace || l > LogLevelCritical {
		return fmt.Sprintf("Level(%d)", int8(l))
	}
	return levelNames[l]
}

// ParseLogLevel converts a level name into a LogLevel. Matching is
// case-insensitive and accepts "warn" and "fatal" as aliases.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warning", "warn":
		return LogLevelWarning, nil
	case "error":
		return LogLevelError, nil
	case "critical", "fatal":
		return LogLevelCritical, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	level, err := ParseLogLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// LogEvent is a single logged occurrence. It is never modified after a
// provider admits it.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Extra     any       `json:"extra,omitempty"`
}
