package rcask

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Ashwin-1709/rcask/segment"
)

// Errors returned by the engine. Key lookup and read errors from the
// active segment are re-exported so callers only import this package.
var (
	ErrKeyNotFound      = segment.ErrKeyNotFound
	ErrCorrupted        = segment.ErrCorrupted
	ErrInvalidEncoding  = segment.ErrInvalidEncoding
	ErrInvalidMaxWrites = errors.New("rcask: maxWrites must be greater than 0")
)

const (
	segmentExt = ".log"
	tmpExt     = ".tmp"
)

// Cask is a log-structured key-value store that bounds its disk usage by
// compacting the active segment after a configured number of writes.
//
// A Cask owns exactly one active segment at a time. Every operation runs
// to completion on the caller's goroutine; compaction in particular blocks
// the write that crosses the threshold for its full duration. The store is
// not safe for concurrent use without external mutual exclusion.
type Cask struct {
	directory string
	opts      options
	active    *segment.Segment
	writes    int
}

// Open opens a store rooted at directory, creating the directory if
// needed. If segment files matching the configured pattern exist, the one
// with the largest numeric suffix becomes the active segment; otherwise a
// new segment is created at suffix 0.
func Open(directory string, optFns ...Option) (*Cask, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.maxWrites <= 0 {
		return nil, ErrInvalidMaxWrites
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("rcask: failed to create directory %s: %w", directory, err)
	}

	c := &Cask{
		directory: directory,
		opts:      opts,
	}

	suffixes, err := c.scanSuffixes()
	if err != nil {
		return nil, err
	}

	var suffix uint64
	if len(suffixes) > 0 {
		suffix = suffixes[len(suffixes)-1]
	}

	active, err := segment.Open(c.segmentPath(suffix), &segment.Options{Logger: opts.logger})
	if err != nil {
		return nil, err
	}
	c.active = active

	return c, nil
}

// Set writes a key/value pair to the active segment. After maxWrites
// successful writes since the last compaction, the write that crosses the
// threshold synchronously compacts the store before returning.
func (c *Cask) Set(key, value []byte) error {
	if err := c.active.Set(key, value); err != nil {
		return err
	}

	c.writes++
	if c.writes >= c.opts.maxWrites {
		return c.Compact()
	}
	return nil
}

// Get returns the latest value written for key, decoded as text. A key
// that was never written returns ErrKeyNotFound.
func (c *Cask) Get(key string) (string, error) {
	return c.active.Get(key)
}

// Ascend calls fn for every live key in ascending key order until fn
// returns false.
func (c *Cask) Ascend(fn func(key string, value []byte) bool) error {
	return c.active.Ascend(fn)
}

// Len returns the number of live keys in the store.
func (c *Cask) Len() int {
	return c.active.Len()
}

// Compact rewrites every live key/value pair into a fresh segment and
// deletes the replaced log file, reclaiming the space held by superseded
// records. The next segment suffix comes from a directory rescan, not from
// in-memory state: the directory is the canonical source of truth.
//
// The new segment is built at a temporary path and renamed into place once
// fully written, so a crash mid-compaction leaves at worst a stale .tmp
// file next to an intact old segment. If deleting the old file fails after
// the rename, the new segment is already active and the error is returned;
// there is no rollback.
func (c *Cask) Compact() error {
	suffixes, err := c.scanSuffixes()
	if err != nil {
		return err
	}

	var next uint64
	if len(suffixes) > 0 {
		next = suffixes[len(suffixes)-1] + 1
	}

	finalPath := c.segmentPath(next)
	tmpPath := finalPath + tmpExt

	live := c.active.AllLive()
	c.opts.logger.Info("rcask: compaction started",
		slog.String("from", c.active.Path()),
		slog.String("to", finalPath),
		slog.Int("live_keys", len(live)))

	if err := c.buildSegment(tmpPath, live); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rcask: failed to swap in compacted segment: %w", err)
	}

	replacement, err := segment.Open(finalPath, &segment.Options{Logger: c.opts.logger})
	if err != nil {
		return err
	}

	old := c.active
	oldPath := old.Path()
	c.active = replacement
	c.writes = 0

	if err := old.Close(); err != nil {
		c.opts.logger.Warn("rcask: failed to close replaced segment",
			slog.String("path", oldPath),
			slog.Any("error", err))
	}
	if err := os.Remove(oldPath); err != nil {
		return fmt.Errorf("rcask: failed to remove replaced segment %s: %w", oldPath, err)
	}

	c.opts.logger.Info("rcask: compaction finished",
		slog.String("active", finalPath),
		slog.Int("live_keys", c.active.Len()))

	return nil
}

// buildSegment writes every live pair into a new segment file at path, in
// no particular order, and syncs it to disk. The on-disk record order
// after compaction is unspecified.
func (c *Cask) buildSegment(path string, live map[string][]byte) error {
	fresh, err := segment.Open(path, &segment.Options{Logger: c.opts.logger})
	if err != nil {
		return err
	}

	for key, value := range live {
		if err := fresh.Set([]byte(key), value); err != nil {
			fresh.Close()
			return err
		}
	}

	if err := fresh.Sync(); err != nil {
		fresh.Close()
		return fmt.Errorf("rcask: failed to sync compacted segment: %w", err)
	}
	return fresh.Close()
}

// Close releases the active segment's file handle.
func (c *Cask) Close() error {
	return c.active.Close()
}

// segmentPath returns the path for the segment with the given numeric
// suffix: {directory}/{pattern}.{n}.log.
func (c *Cask) segmentPath(suffix uint64) string {
	return filepath.Join(c.directory, fmt.Sprintf("%s.%d%s", c.opts.pattern, suffix, segmentExt))
}

// scanSuffixes returns the sorted numeric suffixes of every segment file
// in the directory matching {pattern}.{n}.log. Suffixes are compared
// numerically, never lexicographically, so "10" follows "9".
func (c *Cask) scanSuffixes() ([]uint64, error) {
	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return nil, fmt.Errorf("rcask: failed to read directory %s: %w", c.directory, err)
	}

	prefix := c.opts.pattern + "."

	var suffixes []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, prefix), segmentExt), 10, 64)
		if err != nil {
			continue
		}
		suffixes = append(suffixes, n)
	}

	slices.Sort(suffixes)
	return suffixes, nil
}
