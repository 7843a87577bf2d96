package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/thisisjab/applogger/entity"
)

type ConsoleOptions struct {
	Options `yaml:",inline"`

	// Color styles level names. It has no effect when the writer is not a terminal.
	Color      bool   `yaml:"color"`
	TimeFormat string `yaml:"time_format"`

	// Writer defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

// Console writes rendered log events to standard output or another writer.
type Console struct {
	Base
	cfg ConsoleOptions

	writeMu sync.Mutex
	styles  map[entity.LogLevel]lipgloss.Style
}

// NewConsole creates a console provider. The default name is "console".
func NewConsole(cfg ConsoleOptions) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	c := &Console{cfg: cfg}
	c.init(cfg.Options, "console")

	if cfg.Color {
		c.styles = levelStyles(lipgloss.NewRenderer(cfg.Writer))
	}

	return c
}

func levelStyles(r *lipgloss.Renderer) map[entity.LogLevel]lipgloss.Style {
	return map[entity.LogLevel]lipgloss.Style{
		entity.LogLevelTrace:    r.NewStyle().Foreground(lipgloss.Color("8")),
		entity.LogLevelDebug:    r.NewStyle().Foreground(lipgloss.Color("6")),
		entity.LogLevelInfo:     r.NewStyle().Foreground(lipgloss.Color("2")),
		entity.LogLevelWarning:  r.NewStyle().Foreground(lipgloss.Color("3")),
		entity.LogLevelError:    r.NewStyle().Foreground(lipgloss.Color("1")),
		entity.LogLevelCritical: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

func (c *Console) levelName(l entity.LogLevel) string {
	style, ok := c.styles[l]
	if !ok {
		return l.String()
	}
	return style.Render(l.String())
}

// Flush writes every buffered event to the console.
func (c *Console) Flush(ctx context.Context) error {
	events := c.Take()
	if len(events) == 0 {
		return nil
	}

	out := renderEvents(events, c.cfg.TimeFormat, c.levelName)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.cfg.Writer.Write(out); err != nil {
		return fmt.Errorf("cannot write to console: %w", err)
	}

	return nil
}
