package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan string, want int) map[string]bool {
	t.Helper()
	got := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for len(got) < want {
		select {
		case p, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed with %d of %d paths", len(got), want)
			}
			got[p] = true
		case <-deadline:
			t.Fatalf("timed out with %d of %d paths", len(got), want)
		}
	}
	return got
}

func TestStartRequiresRoots(t *testing.T) {
	_, _, err := Start(context.Background(), Config{}, nil)
	require.Error(t, err)
}

func TestStartInitialScan(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "intake.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evCh, _, err := Start(ctx, Config{Roots: []string{dir}, InitialScan: true}, nil)
	require.NoError(t, err)

	got := collect(t, evCh, 1)
	assert.True(t, got[pdf])
}

func TestStartEmitsCreatedPDF(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evCh, _, err := Start(ctx, Config{Roots: []string{dir}, Debounce: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	pdf := filepath.Join(dir, "coc_form.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	got := collect(t, evCh, 1)
	assert.True(t, got[pdf])
}

func TestStartDebouncesCreateBursts(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evCh, _, err := Start(ctx, Config{Roots: []string{dir}, Debounce: 5 * time.Millisecond}, nil)
	require.NoError(t, err)

	// A tight burst of creates exercises the debounce timer firing while
	// events are still arriving; every distinct path must still come out.
	const n = 50
	want := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(dir, fmt.Sprintf("doc%02d.pdf", i))
		require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4"), 0o644))
		want[p] = true
	}

	assert.Equal(t, want, collect(t, evCh, n))
}

func TestStartClosesChannelsOnCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	evCh, _, err := Start(ctx, Config{Roots: []string{dir}}, nil)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-evCh:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("event channel did not close")
	}
}
