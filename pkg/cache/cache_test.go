package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/streamline/pkg/engine"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
)

var _ engine.ResultCache = (*Cache)(nil)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStoreAndLookup(t *testing.T) {
	c := openTemp(t)
	src := []byte("class A {}")

	_, ok := c.Lookup(src, "v1")
	assert.False(t, ok)

	require.NoError(t, c.Store(src, "v1", []byte(`{"findings":[]}`)))
	data, ok := c.Lookup(src, "v1")
	require.True(t, ok)
	assert.Equal(t, `{"findings":[]}`, string(data))

	// a different salt is a different entry
	_, ok = c.Lookup(src, "v2")
	assert.False(t, ok)

	require.NoError(t, c.Store(src, "v1", []byte("replaced")))
	data, ok = c.Lookup(src, "v1")
	require.True(t, ok)
	assert.Equal(t, "replaced", string(data))

	s, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Entries: 1, Hits: 2, Misses: 2}, s)
}

func TestKey(t *testing.T) {
	a := Key([]byte("x"), "salt")
	assert.NotEmpty(t, a)
	assert.Equal(t, a, Key([]byte("x"), "salt"))
	assert.NotEqual(t, a, Key([]byte("x"), "salt2"))
	// the separator keeps salt and source apart
	assert.NotEqual(t, Key([]byte("bc"), "a"), Key([]byte("c"), "ab"))
}

func TestCorruptEntryIsDropped(t *testing.T) {
	c := openTemp(t)
	src := []byte("class A {}")
	_, err := c.db.Exec(`INSERT INTO results (key, size, data) VALUES (?, ?, ?)`, Key(src, "v1"), 10, []byte("not zstd"))
	require.NoError(t, err)

	_, ok := c.Lookup(src, "v1")
	assert.False(t, ok)

	s, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Entries)
}

func TestPrune(t *testing.T) {
	c := openTemp(t)
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Store([]byte(s), "", []byte(s)))
	}

	n, err := c.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok := c.Lookup([]byte("d"), "")
	assert.True(t, ok, "newest entry pruned")
	_, ok = c.Lookup([]byte("a"), "")
	assert.False(t, ok, "oldest entry kept")

	require.NoError(t, c.Clear())
	s, err := c.Stats()
	require.NoError(t, err)
	assert.Zero(t, s.Entries)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, c.Store([]byte("src"), "", []byte("data")))
	require.NoError(t, c.Close())

	c, err = Open(path, nil)
	require.NoError(t, err)
	defer c.Close()
	data, ok := c.Lookup([]byte("src"), "")
	require.True(t, ok)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, path, c.Path())
}

func TestOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := Open(filepath.Join(blocker, "cache.db"), nil)
	require.Error(t, err)
	var se *jerrors.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "CACHE-0001", se.Code)
	assert.Equal(t, jerrors.ClassCache, se.Class)
}

func TestAnalyzerReusesCachedResults(t *testing.T) {
	c := openTemp(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "Demo.java")
	src := `package demo;

import java.util.*;

class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (int x : xs) {
            sum += x;
        }
        return sum;
    }
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	a := engine.NewAnalyzer(engine.DefaultOptions(), nil).WithCache(c)
	first, err := a.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err)
	second, err := a.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err)

	require.Len(t, second[0].Findings, 1)
	assert.Equal(t, first[0].Findings[0].Message, second[0].Findings[0].Message)
	assert.Equal(t, first[0].Findings[0].Replacement, second[0].Findings[0].Replacement)
	assert.Equal(t, path, second[0].Findings[0].File)

	s, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 1}, s)
}
