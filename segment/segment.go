package segment

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/Ashwin-1709/rcask/recordio"
	"github.com/google/btree"
)

// Common errors that can be returned by segment operations.
var (
	ErrKeyNotFound     = errors.New("segment: key not found")
	ErrCorrupted       = errors.New("segment: data corruption: index offset does not hold the expected key")
	ErrInvalidEncoding = errors.New("segment: value is not valid UTF-8 text")
	ErrClosed          = errors.New("segment: store already closed")
)

const (
	// writeRetries is the number of additional attempts made when a
	// low-level write of part of a record fails.
	writeRetries = 2

	scanBufSize = 32 * 1024
)

// Options configures the behavior of a Segment.
type Options struct {
	// Logger receives compaction-relevant anomalies, such as indexed
	// entries that can no longer be read. If nil, logging is disabled.
	Logger *slog.Logger
}

// Segment is one append-only log file together with the in-memory index
// that maps each key to the byte offset where its most recent record
// starts. The index is rebuilt by a full scan on Open and never persisted.
//
// A Segment is single-owner: it is not safe for concurrent use.
type Segment struct {
	file   *os.File
	index  map[string]int64
	path   string
	logger *slog.Logger
	closed bool
}

// Open opens the log file at path in read/write mode, creating it if it
// does not exist, and rebuilds the index by scanning the file from byte 0.
// A failure to open the file is fatal to the caller; it is not retried.
func Open(path string, opts *Options) (*Segment, error) {
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("segment: failed to open file %s: %w", path, err)
	}

	s := &Segment{
		file:   file,
		index:  make(map[string]int64),
		path:   path,
		logger: logger,
	}

	if err := s.load(); err != nil {
		file.Close()
		return nil, err
	}

	return s, nil
}

// load rebuilds the index with a linear scan. Later records for the same
// key overwrite earlier offsets, so the index always points at the latest
// record. Scanning stops silently at the first incomplete record: a torn
// write at the tail costs only the torn record, while every complete
// record before it stays indexed. An incorrect length field in the
// interior of the file is not detected and desynchronizes the scan.
func (s *Segment) load() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("segment: failed to seek start of %s: %w", s.path, err)
	}

	r := bufio.NewReaderSize(s.file, scanBufSize)
	for offset, rec := range recordio.Entries(r) {
		s.index[string(rec.Key)] = offset
	}

	return nil
}

// Set appends a single record for key and updates the index to point at
// it. Each low-level write is retried a small fixed number of times before
// the error propagates. There is no explicit sync; durability is whatever
// the file system buffering provides.
func (s *Segment) Set(key, value []byte) error {
	if s.closed {
		return ErrClosed
	}

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("segment: failed to seek end of %s: %w", s.path, err)
	}

	rec := recordio.Record{Key: key, Value: value}
	if _, err := recordio.Write(retryWriter{w: s.file}, rec); err != nil {
		return fmt.Errorf("segment: failed to append record: %w", err)
	}

	s.index[string(key)] = offset
	return nil
}

// Get returns the latest value written for key, decoded as text.
//
// A key absent from the index returns ErrKeyNotFound. If the indexed
// offset does not begin a record for the requested key, Get returns
// ErrCorrupted rather than a wrong value. A record whose bytes run past
// the end of the file is treated as if the key never existed: the tail may
// have been truncated after the index was built.
func (s *Segment) Get(key string) (string, error) {
	value, err := s.valueAt(key)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(value) {
		return "", ErrInvalidEncoding
	}
	return string(value), nil
}

// valueAt reads the raw value for key at its indexed offset, re-reading
// the stored key first and comparing it byte-for-byte against the request.
func (s *Segment) valueAt(key string) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}

	offset, ok := s.index[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("segment: failed to seek offset %d: %w", offset, err)
	}

	br := recordio.NewBinaryReader(s.file)

	storedKey, err := br.ReadBytes()
	if err != nil {
		if isUnexpectedEOF(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("segment: failed to read key at offset %d: %w", offset, err)
	}

	if !bytes.Equal(storedKey, []byte(key)) {
		return nil, fmt.Errorf("%w: offset %d", ErrCorrupted, offset)
	}

	value, err := br.ReadBytes()
	if err != nil {
		if isUnexpectedEOF(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("segment: failed to read value at offset %d: %w", offset, err)
	}

	return value, nil
}

// AllLive returns the raw value of every key currently in the index.
// Entries whose read fails are dropped from the result and logged as an
// anomaly, never failing the whole operation: compaction relies on this to
// skip dead or corrupted entries instead of aborting.
func (s *Segment) AllLive() map[string][]byte {
	live := make(map[string][]byte, len(s.index))
	for key := range s.index {
		value, err := s.valueAt(key)
		if err != nil {
			s.logger.Warn("segment: dropping unreadable entry",
				slog.String("path", s.path),
				slog.String("key", key),
				slog.Any("error", err))
			continue
		}
		live[key] = value
	}
	return live
}

// Ascend calls fn for every live key in ascending key order, with its raw
// value, until fn returns false. Entries that can no longer be read are
// skipped. The index itself stays a flat map; the ordering is built
// transiently per call.
func (s *Segment) Ascend(fn func(key string, value []byte) bool) error {
	if s.closed {
		return ErrClosed
	}

	tree := btree.NewG[string](2, func(a, b string) bool {
		return a < b
	})
	for key := range s.index {
		tree.ReplaceOrInsert(key)
	}

	var err error
	tree.Ascend(func(key string) bool {
		value, verr := s.valueAt(key)
		if verr != nil {
			if errors.Is(verr, ErrKeyNotFound) {
				return true
			}
			err = verr
			return false
		}
		return fn(key, value)
	})
	return err
}

// Len returns the number of live keys in the index.
func (s *Segment) Len() int {
	return len(s.index)
}

// Path returns the file-system path of the log file.
func (s *Segment) Path() string {
	return s.path
}

// Sync flushes the file contents to stable storage.
func (s *Segment) Sync() error {
	if s.closed {
		return ErrClosed
	}
	return s.file.Sync()
}

// Close releases the file handle. The index lives exactly as long as its
// owning segment, so it is discarded here.
func (s *Segment) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.index = nil

	return s.file.Close()
}

// isUnexpectedEOF reports whether err means the file ended before a full
// length-prefixed field could be read.
func isUnexpectedEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryWriter retries each failed write of the remaining bytes before
// propagating the error, covering transient partial-write conditions on
// the underlying write call.
type retryWriter struct {
	w io.Writer
}

func (rw retryWriter) Write(p []byte) (int, error) {
	var written, attempts int
	for {
		n, err := rw.w.Write(p[written:])
		written += n
		if err == nil {
			if written == len(p) {
				return written, nil
			}
			err = io.ErrShortWrite
		}
		attempts++
		if attempts > writeRetries {
			return written, err
		}
	}
}
