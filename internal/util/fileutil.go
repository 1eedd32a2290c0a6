package util

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// StageCopy copies src into a fresh temporary directory under dir and
// returns the copy's path and a cleanup func that removes the directory.
// Cleanup is safe to call on every path, including after an error.
func StageCopy(fs afero.Fs, dir, src string) (string, func(), error) {
	tmpDir, err := afero.TempDir(fs, dir, "dropwatch-")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create staging dir: %w", err)
	}

	cleanup := func() {
		_ = fs.RemoveAll(tmpDir)
	}

	in, err := fs.Open(src)
	if err != nil {
		return "", cleanup, fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f afero.File) {
		_ = f.Close()
	}(in)

	dst := filepath.Join(tmpDir, filepath.Base(src))
	out, err := fs.Create(dst)
	if err != nil {
		return "", cleanup, fmt.Errorf("failed to create staged file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", cleanup, fmt.Errorf("failed to copy: %w", err)
	}

	if err := out.Close(); err != nil {
		return "", cleanup, fmt.Errorf("failed to close staged file: %w", err)
	}

	return dst, cleanup, nil
}
