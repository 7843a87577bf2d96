package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultDirectoryPath = "."
	DefaultFileName      = "applogger.log"
)

type FileOptions struct {
	Options `yaml:",inline"`

	DirectoryPath    string           `yaml:"directory_path"`
	FileName         string           `yaml:"file_name"`
	RotationInterval RotationInterval `yaml:"rotation_interval"`
	TimeFormat       string           `yaml:"time_format"`
}

// File appends rendered log events to a file whose name is derived from the
// configured file name, the rotation interval and the time of the flush.
type File struct {
	Base
	cfg FileOptions

	stem string
	ext  string

	writeMu sync.Mutex
}

// NewFile creates a file provider. Paths are not checked until the first
// flush writes to them. The default name is "file".
func NewFile(cfg FileOptions) *File {
	if cfg.DirectoryPath == "" {
		cfg.DirectoryPath = DefaultDirectoryPath
	}
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	if cfg.RotationInterval == "" {
		cfg.RotationInterval = RotationNone
	}

	f := &File{cfg: cfg}
	f.stem, f.ext = SplitFileName(cfg.FileName)
	f.init(cfg.Options, "file")

	return f
}

// Path returns the file a flush at time t appends to.
func (f *File) Path(t time.Time) string {
	return filepath.Join(f.cfg.DirectoryPath, RotatedFileName(f.stem, f.ext, f.cfg.RotationInterval, t))
}

// Flush appends every buffered event to the current file. Events taken from
// the buffer are not restored when the write fails.
func (f *File) Flush(ctx context.Context) error {
	events := f.Take()
	if len(events) == 0 {
		return nil
	}

	out := renderEvents(events, f.cfg.TimeFormat, nil)

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	return appendFile(f.Path(f.now()), out)
}

func appendFile(path string, data []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close log file: %w", cerr)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("cannot write log file: %w", err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("cannot sync log file: %w", err)
	}

	return nil
}
