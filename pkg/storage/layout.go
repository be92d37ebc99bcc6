// Package storage lays acquired images out on disk, one directory per query.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

// ImageExt is the extension given to every stored image
const ImageExt = ".jpg"

// DirStatus is the outcome of provisioning a directory
type DirStatus int

const (
	DirFailed DirStatus = iota
	DirCreated
	DirExists
)

func (s DirStatus) String() string {
	switch s {
	case DirCreated:
		return "created"
	case DirExists:
		return "exists"
	default:
		return "failed"
	}
}

// Ok reports whether the directory is usable
func (s DirStatus) Ok() bool {
	return s != DirFailed
}

// Layout owns the acquisition root and hands out unique image paths
type Layout struct {
	root   string
	logger logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// Option customises a Layout
type Option func(*Layout)

// WithClock replaces the wall clock used for file names
func WithClock(now func() time.Time) Option {
	return func(l *Layout) { l.now = now }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(l *Layout) { l.logger = log }
}

// NewLayout creates a layout rooted at root. Nothing is touched on disk.
func NewLayout(root string, opts ...Option) *Layout {
	l := &Layout{
		root:   root,
		logger: logger.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the acquisition root directory
func (l *Layout) Root() string {
	return l.root
}

// EnsureDir makes sure path is a directory. Failures are logged and returned
// with DirFailed; they never panic.
func (l *Layout) EnsureDir(path string) (DirStatus, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		logger.LogDirectory(l.logger, path, false, nil)
		return DirExists, nil
	case err == nil:
		dirErr := errs.Directory(path, errors.New("path exists and is not a directory"))
		logger.LogDirectory(l.logger, path, false, dirErr)
		return DirFailed, dirErr
	case !errors.Is(err, os.ErrNotExist):
		dirErr := errs.Directory(path, err)
		logger.LogDirectory(l.logger, path, false, dirErr)
		return DirFailed, dirErr
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		dirErr := errs.Directory(path, err)
		logger.LogDirectory(l.logger, path, false, dirErr)
		return DirFailed, dirErr
	}

	logger.LogDirectory(l.logger, path, true, nil)
	return DirCreated, nil
}

// EnsureRootDir provisions the acquisition root
func (l *Layout) EnsureRootDir() (DirStatus, error) {
	return l.EnsureDir(l.root)
}

// QueryDir returns the directory a query's images go to
func (l *Layout) QueryDir(query string) string {
	return filepath.Join(l.root, query)
}

// EnsureQueryDir provisions the directory for query. The query must be a
// single path segment.
func (l *Layout) EnsureQueryDir(query string) (string, DirStatus, error) {
	dir := l.QueryDir(query)
	if !ValidQueryName(query) {
		dirErr := errs.Directory(dir, fmt.Errorf("query %q is not a single path segment", query))
		logger.LogDirectory(l.logger, dir, false, dirErr)
		return dir, DirFailed, dirErr
	}

	status, err := l.EnsureDir(dir)
	return dir, status, err
}

// ValidQueryName reports whether query can name a directory directly under the root
func ValidQueryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, filepath.Separator)
}

// nextID returns the current time in microseconds, bumped past the last id
// issued so that ids strictly increase.
func (l *Layout) nextID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.now().UnixMicro()
	if id <= l.last {
		id = l.last + 1
	}
	l.last = id
	return id
}

// NextImagePath returns a fresh file path inside queryDir
func (l *Layout) NextImagePath(queryDir string) string {
	return filepath.Join(queryDir, strconv.FormatInt(l.nextID(), 10)+ImageExt)
}

// SaveImage writes data under a new unique name inside queryDir. The file is
// written to a temporary sibling and renamed into place.
func (l *Layout) SaveImage(queryDir string, data []byte) (string, error) {
	path := l.NextImagePath(queryDir)
	for {
		if _, err := os.Lstat(path); err != nil {
			break
		}
		path = l.NextImagePath(queryDir)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return "", errs.Write(path, err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return "", errs.Write(path, err)
	}

	return path, nil
}

// CountImages counts the stored images in queryDir
func (l *Layout) CountImages(queryDir string) int {
	entries, err := os.ReadDir(queryDir)
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ImageExt {
			count++
		}
	}
	return count
}
