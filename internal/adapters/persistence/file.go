// Package persistence writes store snapshots to disk and reads them back at startup.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

const (
	filePerm = 0o640
	dirPerm  = 0o750
)

// File is a JSON snapshot of the history at a fixed path.
//
// The on-disk layout is an object keyed by team holding that team's records
// in arrival order: {"team": [{"score": 1.5, "time": "2024-07-01T12:00:00Z"}]}.
// Only the history is stored; the leaderboard is derived from it on load.
type File struct {
	path   string
	logger logger.Logger
	now    func() time.Time
}

// FileOption configures a File.
type FileOption func(*File)

// WithFileLogger sets the logger used for non-fatal write warnings.
func WithFileLogger(l logger.Logger) FileOption {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFile returns a snapshot file at path.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, logger: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the snapshot location.
func (f *File) Path() string { return f.path }

// Load reads the snapshot. It returns ErrNoSnapshot when the file does not
// exist and ErrCorruptSnapshot when its content cannot be decoded.
func (f *File) Load(ctx context.Context) (model.History, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (model.History, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCorruptSnapshot)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var h model.History
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after snapshot", ErrCorruptSnapshot)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: snapshot is null", ErrCorruptSnapshot)
	}

	for team, recs := range h {
		for i := range recs {
			if recs[i].Time.IsZero() {
				return nil, fmt.Errorf("%w: team %q record %d has no time", ErrCorruptSnapshot, team, i)
			}
			recs[i] = model.NewRecord(recs[i].Score, recs[i].Time)
		}
	}
	return h, nil
}

// Save replaces the snapshot atomically: the history is written to a temp
// file in the same directory, synced, then renamed over the target. A crash
// at any point leaves either the old or the new file in place.
func (f *File) Save(ctx context.Context, h model.History) (err error) {
	if h == nil {
		h = model.History{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrWriteSnapshot, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrWriteSnapshot, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrWriteSnapshot, err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write: %v", ErrWriteSnapshot, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("%w: chmod: %v", ErrWriteSnapshot, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrWriteSnapshot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrWriteSnapshot, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrWriteSnapshot, err)
	}
	cleanupTmp = false

	if err := syncDir(dir); err != nil {
		// The file itself is complete; only the directory entry may lag.
		f.logger.Warn(ctx, "snapshot directory sync failed", logger.String("dir", dir), logger.Error(err))
	}
	return nil
}

// Quarantine moves an unreadable snapshot aside so the next flush does not
// overwrite it. Returns the new location.
func (f *File) Quarantine(ctx context.Context) (string, error) {
	dst := f.path + ".corrupt-" + strconv.FormatInt(f.now().UTC().Unix(), 10)
	if err := os.Rename(f.path, dst); err != nil {
		return "", fmt.Errorf("quarantine snapshot: %w", err)
	}
	return dst, nil
}

// syncDir syncs a directory so a completed rename survives a crash.
func syncDir(dirPath string) error {
	dir, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
