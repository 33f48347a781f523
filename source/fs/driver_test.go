package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flagfold/source"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDriver_WalkEmitsMatchingFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.ast.json"), `{"type":"Program","body":[]}`)
	writeFile(t, filepath.Join(dir, "a", "c.ast.json"), `{}`)
	writeFile(t, filepath.Join(dir, "a", "skip.js"), `x`)
	single := filepath.Join(t.TempDir(), "one.ast.json")
	writeFile(t, single, `{}`)

	src, err := source.NewAdapter("fs")
	require.NoError(t, err)
	require.NoError(t, src.Configure(source.Config{Roots: []string{dir, single}, Suffix: ".ast.json"}))

	var got []string
	err = src.Run(context.Background(), func(u source.Unit) error {
		got = append(got, u.Rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("a", "c.ast.json"), "b.ast.json", "one.ast.json"}, got)
	require.NoError(t, src.Close())
}

func TestDriver_MissingRoot(t *testing.T) {
	d := New()
	require.NoError(t, d.Configure(source.Config{Roots: []string{filepath.Join(t.TempDir(), "nope")}}))
	err := d.Run(context.Background(), func(source.Unit) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDriver_NoRoots(t *testing.T) {
	assert.Error(t, New().Configure(source.Config{}))
	_, err := source.NewAdapter("kafka")
	assert.Error(t, err)
}

func TestDriver_WatchEmitsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	d := &driver{}
	require.NoError(t, d.Configure(source.Config{
		Roots:    []string{dir},
		Suffix:   ".ast.json",
		Watch:    true,
		Debounce: 20 * time.Millisecond,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []source.Unit
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, func(u source.Unit) error {
			mu.Lock()
			got = append(got, u)
			mu.Unlock()
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.watcher != nil
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "new.ast.json"), `{"type":"Program","body":[]}`)
	writeFile(t, filepath.Join(dir, "ignored.txt"), `x`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "new.ast.json", got[0].Rel)
	for _, u := range got {
		assert.Equal(t, "new.ast.json", u.Rel)
	}
}
