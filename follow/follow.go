package follow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thisisjab/applogger/fault"
	"github.com/thisisjab/applogger/provider"
)

const DefaultRotationCheckInterval = time.Second

type Config struct {
	DirectoryPath    string
	FileName         string
	RotationInterval provider.RotationInterval

	// FromStart copies the current file from its beginning instead of from its end.
	FromStart bool

	// RotationCheckInterval bounds how long a rotation can go unnoticed when
	// the directory is quiet. Zero means DefaultRotationCheckInterval.
	RotationCheckInterval time.Duration
}

// Follower copies what a file provider appends to its current file into a
// writer. When the rotated file name changes, the rest of the old file is
// copied and the follower moves on to the new file from its beginning.
type Follower struct {
	cfg    Config
	logger *slog.Logger
	stem   string
	ext    string
	now    func() time.Time
}

// New creates a follower for the file a provider with the same directory, file
// name and rotation settings writes to.
func New(logger *slog.Logger, cfg Config) *Follower {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DirectoryPath == "" {
		cfg.DirectoryPath = provider.DefaultDirectoryPath
	}
	if cfg.FileName == "" {
		cfg.FileName = provider.DefaultFileName
	}
	if cfg.RotationCheckInterval <= 0 {
		cfg.RotationCheckInterval = DefaultRotationCheckInterval
	}

	stem, ext := provider.SplitFileName(cfg.FileName)

	return &Follower{
		cfg:    cfg,
		logger: logger,
		stem:   stem,
		ext:    ext,
		now:    time.Now,
	}
}

func (f *Follower) currentPath() string {
	return filepath.Join(f.cfg.DirectoryPath, provider.RotatedFileName(f.stem, f.ext, f.cfg.RotationInterval, f.now()))
}

// Follow blocks until ctx is done or watching the directory fails.
func (f *Follower) Follow(ctx context.Context, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched rather than the file, because the file may not
	// exist yet and is replaced by a new one on every rotation.
	if err := watcher.Add(f.cfg.DirectoryPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fault.New(fault.NotFoundCode, "log directory not found").WithOriginal(err)
		}
		return fmt.Errorf("cannot add directory to watcher: %w", err)
	}

	cur, err := openTail(f.currentPath(), !f.cfg.FromStart)
	if err != nil {
		return err
	}
	f.logger.Debug("following log file.", "path", cur.path, "offset", cur.offset)

	if err := f.catchUp(out, cur); err != nil {
		return err
	}

	ticker := time.NewTicker(f.cfg.RotationCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				f.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				f.logger.Debug("Received unhandled event from fsnotify.", "event", event.String())
				continue
			}
			if err := f.catchUp(out, cur); err != nil {
				return err
			}

		case <-ticker.C:
			if err := f.catchUp(out, cur); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// catchUp switches to the current rotated file if needed and copies
// everything appended since the last call.
func (f *Follower) catchUp(out io.Writer, cur *tail) error {
	if path := f.currentPath(); path != cur.path {
		if err := cur.copyTo(out); err != nil {
			return err
		}

		f.logger.Debug("log file rotated.", "from", cur.path, "to", path)
		*cur = tail{path: path}
	}

	return cur.copyTo(out)
}

// tail tracks how much of a file has already been copied.
type tail struct {
	path   string
	offset int64
}

func openTail(path string, atEnd bool) (*tail, error) {
	t := &tail{path: path}
	if !atEnd {
		return t, nil
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return t, nil
	case err != nil:
		return nil, fmt.Errorf("cannot stat log file: %w", err)
	}

	t.offset = info.Size()
	return t, nil
}

func (t *tail) copyTo(out io.Writer) error {
	file, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}

	// Truncated or replaced by something shorter: start over.
	if info.Size() < t.offset {
		t.offset = 0
	}

	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	n, err := io.Copy(out, file)
	t.offset += n
	if err != nil {
		return fmt.Errorf("cannot copy log lines: %w", err)
	}

	return nil
}
