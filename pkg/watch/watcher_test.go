package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) <-chan []string {
	t.Helper()
	batches := make(chan []string, 10)
	w, err := New([]string{dir}, Options{Extensions: []string{".java"}, Debounce: 50 * time.Millisecond},
		func(_ context.Context, paths []string) { batches <- paths }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return batches
}

func next(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
		return nil
	}
}

func TestRapidWritesAreBatched(t *testing.T) {
	dir := t.TempDir()
	batches := startWatcher(t, dir)

	a := filepath.Join(dir, "A.java")
	b := filepath.Join(dir, "B.java")
	require.NoError(t, os.WriteFile(a, []byte("class A {}"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("class B {}"), 0644))
	require.NoError(t, os.WriteFile(a, []byte("class A { }"), 0644))

	got := next(t, batches)
	assert.Equal(t, []string{a, b}, got)
}

func TestOtherExtensionsIgnored(t *testing.T) {
	dir := t.TempDir()
	batches := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	c := filepath.Join(dir, "C.JAVA")
	require.NoError(t, os.WriteFile(c, []byte("class C {}"), 0644))

	assert.Equal(t, []string{c}, next(t, batches))
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	dir := t.TempDir()
	batches := startWatcher(t, dir)

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	d := filepath.Join(sub, "D.java")
	require.NoError(t, os.WriteFile(d, []byte("class D {}"), 0644))

	assert.Contains(t, next(t, batches), d)

	// later writes inside the new directory are seen too
	require.NoError(t, os.WriteFile(d, []byte("class D { }"), 0644))
	assert.Equal(t, []string{d}, next(t, batches))
}

func TestMatches(t *testing.T) {
	w := &Watcher{exts: map[string]bool{".java": true}}
	assert.True(t, w.Matches("a/B.java"))
	assert.True(t, w.Matches("B.Java"))
	assert.False(t, w.Matches("B.class"))
	assert.False(t, w.Matches("java"))
}

func TestMissingRoot(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing")}, Options{}, func(context.Context, []string) {}, nil)
	assert.Error(t, err)
}
