// Package reader reads files that may still be held open by the program that
// created them.
//
// A screenshot tool or a browser download writes the file and keeps it open
// (or locked) for a moment after the create notification fires. Reader
// retries the read until it gets the whole file or runs out of attempts.
package reader

import (
	"context"
	"dropwatch/internal/logger"
	"dropwatch/internal/util"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	ErrExhausted  = errors.New("read attempts exhausted")
	ErrDirectory  = errors.New("path is a directory")
	errIncomplete = errors.New("file changed while reading")
	errEmpty      = errors.New("file is empty")
)

// ExhaustedError is returned when no attempt produced a complete read.
type ExhaustedError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to read %s after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

type Options struct {
	// Attempts is the maximum number of reads. Values below 1 mean 1.
	Attempts int
	// RetryDelay is the wait after each failed attempt.
	RetryDelay time.Duration
	// SettleDelay is a single wait before the first attempt.
	SettleDelay time.Duration
	// Stage copies the file into a temporary directory and reads the copy.
	Stage bool
	// StageDir is the parent of the staging directories. Empty means the
	// OS temp dir.
	StageDir string
}

var DefaultOptions = Options{
	Attempts:   100,
	RetryDelay: 50 * time.Millisecond,
}

type Reader struct {
	fs   afero.Fs
	opts Options
	log  *zap.Logger
}

func New(fs afero.Fs, opts Options, log *zap.Logger) *Reader {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	return &Reader{
		fs:   fs,
		opts: opts,
		log:  logger.OrNop(log),
	}
}

// Read returns the full contents of path. It fails with an *ExhaustedError
// once every attempt has failed, with ErrDirectory for directories, or with
// the context error if ctx ends while waiting.
func (r *Reader) Read(ctx context.Context, path string) ([]byte, error) {
	if r.opts.SettleDelay > 0 {
		if err := sleep(ctx, r.opts.SettleDelay); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		data, err := r.attempt(path)
		if err == nil {
			if attempt > 1 {
				r.log.Debug("file became readable",
					zap.String("path", path),
					zap.Int("attempt", attempt))
			}
			return data, nil
		}

		if errors.Is(err, ErrDirectory) {
			return nil, err
		}

		lastErr = err
		if attempt == r.opts.Attempts {
			break
		}

		if err := sleep(ctx, r.opts.RetryDelay); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{
		Path:     path,
		Attempts: r.opts.Attempts,
		Err:      lastErr,
	}
}

func (r *Reader) attempt(path string) ([]byte, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrDirectory)
	}

	// The create notification usually arrives before the first write.
	if info.Size() == 0 {
		return nil, errEmpty
	}

	src := path
	if r.opts.Stage {
		staged, cleanup, err := util.StageCopy(r.fs, r.opts.StageDir, path)
		defer cleanup()
		if err != nil {
			return nil, err
		}
		src = staged
	}

	data, err := afero.ReadFile(r.fs, src)
	if err != nil {
		return nil, err
	}

	if int64(len(data)) != info.Size() {
		return nil, errIncomplete
	}

	return data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
