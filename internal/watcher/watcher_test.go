package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	flushed := make(chan []string, 2)
	flush := func(names []string) { flushed <- names }

	d.add("b", flush)
	d.add("a", flush)
	d.add("b", flush)

	select {
	case names := <-flushed:
		assert.Equal(t, []string{"a", "b"}, names)
	case <-time.After(5 * time.Second):
		t.Fatal("no flush")
	}

	d.add("c", flush)
	d.stop()
	d.add("d", flush)
	select {
	case names := <-flushed:
		t.Fatalf("flushed %v after stop", names)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerSerializesFlushes(t *testing.T) {
	d := newDebouncer(5 * time.Millisecond)
	defer d.stop()

	var active, overlaps atomic.Int32
	started := make(chan struct{}, 2)
	flushed := make(chan []string, 2)
	flush := func(names []string) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		started <- struct{}{}
		time.Sleep(50 * time.Millisecond)
		active.Add(-1)
		flushed <- names
	}

	d.add("a", flush)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no flush")
	}
	// Arrives while the first flush is still running.
	d.add("b", flush)

	var got [][]string
	for len(got) < 2 {
		select {
		case names := <-flushed:
			got = append(got, names)
		case <-time.After(5 * time.Second):
			t.Fatalf("flushed only %v", got)
		}
	}
	assert.Equal(t, [][]string{{"a"}, {"b"}}, got)
	assert.Zero(t, overlaps.Load())
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "prog.yaml")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0o644))

	logger, _ := test.NewNullLogger()
	fw, err := New([]string{watched}, 10*time.Millisecond, logrus.NewEntry(logger))
	require.NoError(t, err)
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- fw.Run(ctx, func(changed []string) error {
			changes <- changed
			return nil
		})
	}()

	// Changes to other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("c"), 0o644))

	select {
	case changed := <-changes:
		assert.Equal(t, []string{watched}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
