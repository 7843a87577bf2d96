package provider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/thisisjab/applogger/entity"
)

// DefaultTimeFormat is used when a provider does not set its own.
const DefaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// renderEvents writes one line per event and, when the event carries extra
// data, a second line with its JSON form.
func renderEvents(events []entity.LogEvent, timeFormat string, levelName func(entity.LogLevel) string) []byte {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	if levelName == nil {
		levelName = entity.LogLevel.String
	}

	var buf bytes.Buffer
	for _, e := range events {
		fmt.Fprintf(&buf, "%s [%s]: %s\n", e.Timestamp.Format(timeFormat), levelName(e.Level), e.Message)

		if e.Extra != nil {
			buf.WriteString(renderExtra(e.Extra))
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes()
}

func renderExtra(extra any) string {
	b, err := json.Marshal(extra)
	if err != nil {
		return fmt.Sprintf("%+v", extra)
	}
	return string(b)
}
