package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// --- 1. CLI error reporting ---

// ShowError prints the formatted error box used by every subcommand.
func ShowError(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 COCOKIT ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// Die prints the error box and exits. Reserved for failures during setup,
// before a command has anything to unwind.
func Die(context string, err error) {
	ShowError(context, err)
	os.Exit(1)
}

// --- 2. Filesystem helpers ---

// Dataset trees often sit on network mounts, so plain reads and writes get a
// short retry budget before the error surfaces.
const (
	ioAttempts = 3
	ioBackoff  = 250 * time.Millisecond
)

// Retry runs fn up to attempts times, sleeping backoff between tries.
// Missing-file and permission errors are not transient and fail immediately.
func Retry(attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(backoff)
		}
		if err = fn(); err == nil {
			return nil
		}
		if os.IsNotExist(err) || os.IsPermission(err) {
			return err
		}
	}
	return err
}

// ReadFile is os.ReadFile with the standard retry budget.
func ReadFile(path string) ([]byte, error) {
	var data []byte
	err := Retry(ioAttempts, ioBackoff, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	return data, err
}

// WriteFileAtomic writes data to a temp file in path's directory and renames
// it into place, so readers never observe a half-written file and an
// interrupted run leaves the original intact.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// WriteFile is WriteFileAtomic with the standard retry budget.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return Retry(ioAttempts, ioBackoff, func() error {
		return WriteFileAtomic(path, data, perm)
	})
}

// MoveFile renames src to dst, falling back to copy-and-delete when the
// rename crosses filesystems.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := ReadFile(src)
	if err != nil {
		return err
	}
	if err := WriteFile(dst, data, 0644); err != nil {
		return err
	}
	return os.Remove(src)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// --- 3. Image file discovery ---

// imageExts lists the raster extensions the toolkit recognizes.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// IsImageFile reports whether name looks like a raster image.
func IsImageFile(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// ListImages returns the image files directly under dir, sorted by name the
// way frame sequences are numbered. An empty ext matches every known raster
// extension; otherwise only files with that extension are returned.
func ListImages(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case ext != "":
			if strings.ToLower(filepath.Ext(e.Name())) != ext {
				continue
			}
		case !IsImageFile(e.Name()):
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
