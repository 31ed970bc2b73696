package rcask_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ashwin-1709/rcask"
	"github.com/Ashwin-1709/rcask/recordio"
	"github.com/Ashwin-1709/rcask/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore opens a store in a temp directory with the given write
// threshold and returns it together with the directory.
func setupStore(t *testing.T, maxWrites int) (*rcask.Cask, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := rcask.Open(dir, rcask.WithMaxWrites(maxWrites))
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store, dir
}

// segmentFiles returns the names of all .log files in dir.
func segmentFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".log" {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestOpenCreatesInitialSegment(t *testing.T) {
	_, dir := setupStore(t, 100)

	assert.Equal(t, []string{"data.0.log"}, segmentFiles(t, dir))
}

func TestOpenInvalidMaxWrites(t *testing.T) {
	_, err := rcask.Open(t.TempDir(), rcask.WithMaxWrites(0))
	assert.ErrorIs(t, err, rcask.ErrInvalidMaxWrites)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")

	store, err := rcask.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set([]byte("key1"), []byte("value1")))

	got, err := store.Get("key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", got)
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := setupStore(t, 100)

	require.NoError(t, store.Set([]byte("key1"), []byte("value1")))
	require.NoError(t, store.Set([]byte("key2"), []byte("value2")))
	require.NoError(t, store.Set([]byte("key1"), []byte("v1b")))

	got, err := store.Get("key1")
	require.NoError(t, err)
	assert.Equal(t, "v1b", got)

	got, err = store.Get("key2")
	require.NoError(t, err)
	assert.Equal(t, "value2", got)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, rcask.ErrKeyNotFound)
}

func TestCompactionScenario(t *testing.T) {
	store, dir := setupStore(t, 3)

	require.NoError(t, store.Set([]byte("key1"), []byte("value1")))
	require.NoError(t, store.Set([]byte("key2"), []byte("value2")))

	// The third write crosses the threshold and compacts synchronously.
	require.NoError(t, store.Set([]byte("key1"), []byte("v1b")))

	got, err := store.Get("key1")
	require.NoError(t, err)
	assert.Equal(t, "v1b", got)

	got, err = store.Get("key2")
	require.NoError(t, err)
	assert.Equal(t, "value2", got)

	// The old segment is gone and the new one holds exactly the two live
	// records, dead space reclaimed.
	assert.Equal(t, []string{"data.1.log"}, segmentFiles(t, dir))

	f, err := os.Open(filepath.Join(dir, "data.1.log"))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, recordio.ReadRecords(f), 2)
}

func TestCompactionPreservesLiveState(t *testing.T) {
	const maxWrites = 50
	store, _ := setupStore(t, maxWrites)

	want := make(map[string]string)
	for i := 0; i < maxWrites; i++ {
		key := fmt.Sprintf("key%d", i%17)
		value := fmt.Sprintf("value%d", i)
		require.NoError(t, store.Set([]byte(key), []byte(value)))
		want[key] = value
	}

	for key, value := range want {
		got, err := store.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
	assert.Equal(t, len(want), store.Len())
}

func TestCompactionResetsWriteCounter(t *testing.T) {
	store, dir := setupStore(t, 2)

	require.NoError(t, store.Set([]byte("key1"), []byte("a")))
	require.NoError(t, store.Set([]byte("key2"), []byte("b")))
	assert.Equal(t, []string{"data.1.log"}, segmentFiles(t, dir))

	require.NoError(t, store.Set([]byte("key3"), []byte("c")))
	require.NoError(t, store.Set([]byte("key4"), []byte("d")))
	assert.Equal(t, []string{"data.2.log"}, segmentFiles(t, dir))

	for key, value := range map[string]string{
		"key1": "a", "key2": "b", "key3": "c", "key4": "d",
	} {
		got, err := store.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
}

func TestManualCompact(t *testing.T) {
	store, dir := setupStore(t, 1000)

	require.NoError(t, store.Set([]byte("key1"), []byte("v1")))
	require.NoError(t, store.Set([]byte("key1"), []byte("v2")))
	require.NoError(t, store.Set([]byte("key1"), []byte("v3")))

	require.NoError(t, store.Compact())

	assert.Equal(t, []string{"data.1.log"}, segmentFiles(t, dir))

	got, err := store.Get("key1")
	require.NoError(t, err)
	assert.Equal(t, "v3", got)

	f, err := os.Open(filepath.Join(dir, "data.1.log"))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, recordio.ReadRecords(f), 1)
}

func TestOpenPicksHighestNumericSuffix(t *testing.T) {
	dir := t.TempDir()

	// Suffixes 9 and 10: lexicographic order would pick "9".
	writeSegment(t, filepath.Join(dir, "data.9.log"), "stale", "old")
	writeSegment(t, filepath.Join(dir, "data.10.log"), "fresh", "new")

	store, err := rcask.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	_, err = store.Get("stale")
	assert.ErrorIs(t, err, rcask.ErrKeyNotFound)
}

func TestCompactSuffixFromDirectoryRescan(t *testing.T) {
	store, dir := setupStore(t, 1000)

	require.NoError(t, store.Set([]byte("key1"), []byte("value1")))

	// A foreign file with a higher suffix: the rescan, not engine state,
	// decides the next suffix.
	writeSegment(t, filepath.Join(dir, "data.7.log"), "other", "x")

	require.NoError(t, store.Compact())

	files := segmentFiles(t, dir)
	assert.Contains(t, files, "data.8.log")
	assert.NotContains(t, files, "data.0.log")

	got, err := store.Get("key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", got)
}

func TestScanIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.abc.log"), []byte("x"), 0o666))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data.5.log.d"), 0o755))

	store, err := rcask.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Contains(t, segmentFiles(t, dir), "data.0.log")
}

func TestAscend(t *testing.T) {
	store, _ := setupStore(t, 100)

	require.NoError(t, store.Set([]byte("banana"), []byte("2")))
	require.NoError(t, store.Set([]byte("apple"), []byte("1")))

	var keys []string
	err := store.Ascend(func(key string, value []byte) bool {
		keys = append(keys, key)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, keys)
}

func TestReopenAfterCompaction(t *testing.T) {
	dir := t.TempDir()

	store, err := rcask.Open(dir, rcask.WithMaxWrites(2))
	require.NoError(t, err)
	require.NoError(t, store.Set([]byte("key1"), []byte("value1")))
	require.NoError(t, store.Set([]byte("key2"), []byte("value2")))
	require.NoError(t, store.Close())

	reopened, err := rcask.Open(dir, rcask.WithMaxWrites(2))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", got)

	got, err = reopened.Get("key2")
	require.NoError(t, err)
	assert.Equal(t, "value2", got)
}

func TestCustomPattern(t *testing.T) {
	dir := t.TempDir()

	store, err := rcask.Open(dir, rcask.WithPattern("events"), rcask.WithMaxWrites(1))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set([]byte("key1"), []byte("value1")))

	assert.Equal(t, []string{"events.1.log"}, segmentFiles(t, dir))
}

// writeSegment creates a standalone segment file holding one pair.
func writeSegment(t *testing.T, path, key, value string) {
	t.Helper()

	seg, err := segment.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, seg.Set([]byte(key), []byte(value)))
	require.NoError(t, seg.Close())
}
