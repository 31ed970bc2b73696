// Package rcask is a log-structured, single-writer key-value storage
// engine: an append-only record log on disk paired with an in-memory
// offset index, plus a blocking compaction procedure that reclaims space
// once the log grows past a configured write threshold.
//
// Writes append a record to the active segment file and update the index;
// reads seek straight to the indexed offset. After maxWrites successful
// writes, the store synchronously rewrites all live keys into a fresh
// segment, deletes the old file and carries on.
//
// Basic usage:
//
//	store, err := rcask.Open("./db",
//	    rcask.WithPattern("data"),
//	    rcask.WithMaxWrites(10000),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.Set([]byte("key1"), []byte("value1")); err != nil {
//	    log.Fatal(err)
//	}
//
//	value, err := store.Get("key1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(value)
//
// The engine assumes a single-process, single-goroutine owner per store
// instance: there is no internal locking, no background work and no
// cancellation. Callers needing cross-process safety must serialize
// access externally.
//
// Durability is best-effort: Set does not sync, and crash recovery is
// limited to tolerating a truncated record at the tail of the log.
package rcask
