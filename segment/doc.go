// Package segment implements the Segment Store: durable append-only
// storage of key/value records in one log file, with exact-offset random
// access reads driven by an in-memory index.
//
// A segment is the unit of compaction and rotation. Writing a key appends
// a new record rather than mutating the old one; the index keeps only the
// offset of the latest record per key, so superseded records become dead
// space that only compaction reclaims.
//
// Basic usage:
//
//	seg, err := segment.Open("data.0.log", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer seg.Close()
//
//	if err := seg.Set([]byte("key1"), []byte("value1")); err != nil {
//	    log.Fatal(err)
//	}
//
//	value, err := seg.Get("key1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(value)
//
// A segment is owned by a single goroutine; it is not safe for concurrent
// mutation.
package segment
