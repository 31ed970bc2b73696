package recordio

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

// Uint64Size is the encoded size of a length prefix.
var Uint64Size = int64(binary.Size(uint64(0)))

// Record is a single key/value pair as stored in a log file.
type Record struct {
	Key   []byte
	Value []byte
}

// BinaryWriter handles writing length-prefixed binary data with error handling.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

// WriteBytes writes a uint64 little-endian length prefix followed by the
// payload and returns the total number of bytes written.
func (bw BinaryWriter) WriteBytes(b []byte) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return 0, fmt.Errorf("error writing bytes length: %w", err)
	}

	n, err := bw.w.Write(b)
	if err != nil {
		return Uint64Size + int64(n), fmt.Errorf("error writing bytes content: %w", err)
	}

	return Uint64Size + int64(n), nil
}

// BinaryReader handles reading length-prefixed binary data with error handling.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

// ReadBytes reads a uint64 little-endian length prefix followed by that many
// bytes. A short read surfaces io.EOF or io.ErrUnexpectedEOF through the
// returned error so callers can translate it at their own boundary.
func (br BinaryReader) ReadBytes() ([]byte, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("error reading bytes length: %w", err)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, fmt.Errorf("error reading bytes content: %w", err)
	}
	return b, nil
}

// Write writes a single record to the writer as four parts: key length, key
// bytes, value length, value bytes. It returns the total bytes written.
func Write(w io.Writer, rec Record) (int64, error) {
	var totalBytes int64

	bw := NewBinaryWriter(w)

	n, err := bw.WriteBytes(rec.Key)
	totalBytes += n
	if err != nil {
		return totalBytes, fmt.Errorf("error writing key: %w", err)
	}

	n, err = bw.WriteBytes(rec.Value)
	totalBytes += n
	if err != nil {
		return totalBytes, fmt.Errorf("error writing value: %w", err)
	}

	return totalBytes, nil
}

// ReadRecord reads a single record from the reader.
func ReadRecord(r io.Reader) (Record, error) {
	br := NewBinaryReader(r)

	key, err := br.ReadBytes()
	if err != nil {
		return Record{}, fmt.Errorf("error reading key: %w", err)
	}

	value, err := br.ReadBytes()
	if err != nil {
		return Record{}, fmt.Errorf("error reading value: %w", err)
	}

	return Record{Key: key, Value: value}, nil
}

// Entries creates an iterator over complete records and the offset each one
// starts at. Iteration stops silently at the first incomplete record, so a
// truncated tail yields every complete record before it and nothing after.
func Entries(r io.Reader) iter.Seq2[int64, Record] {
	return func(yield func(int64, Record) bool) {
		var offset int64
		for {
			record, err := ReadRecord(r)
			if err != nil {
				return
			}
			if !yield(offset, record) {
				return
			}
			offset += Size(record)
		}
	}
}

// ReadRecords reads all complete records into a slice.
func ReadRecords(r io.Reader) []Record {
	records := make([]Record, 0, 1)
	for _, record := range Entries(r) {
		records = append(records, record)
	}
	return records
}

// Size calculates the total size in bytes that a record will occupy when
// written. This includes both length prefixes.
func Size(rec Record) int64 {
	return 2*Uint64Size + int64(len(rec.Key)) + int64(len(rec.Value))
}
