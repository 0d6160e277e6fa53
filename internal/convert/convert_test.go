package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nocap/internal/bvh"
	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/skeleton"
	"github.com/banshee-data/nocap/internal/synthetic"
)

func writeArchive(t *testing.T, path string, a landmark.Archive) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, landmark.WriteArchive(f, a))
	require.NoError(t, f.Close())
}

func walkArchive(id string, rate float64, n int) landmark.Archive {
	return landmark.NewArchive(id, rate, synthetic.NewWalker(3).Frames(n))
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "walk take 1.json")
	writeArchive(t, in, walkArchive("s1", 25, 12))

	c := &Converter{Hierarchy: skeleton.Default()}
	res, err := c.ConvertFile(in, filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, in, res.Input)
	assert.Equal(t, filepath.Join(dir, "out", "walk_take_1.bvh"), res.Output)
	assert.Equal(t, 12, res.Frames)
	assert.Empty(t, res.Plots)

	f, err := os.Open(res.Output)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := bvh.Parse(f)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, parsed.FrameTime, 1e-9)
	assert.Len(t, parsed.Motion, 12)

	leftovers, err := filepath.Glob(filepath.Join(dir, "out", ".nocap-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestConvertFrameRateResolution(t *testing.T) {
	tests := []struct {
		name    string
		conv    Converter
		archive float64
		want    float64
	}{
		{"override wins", Converter{FrameRate: 60, FallbackRate: 24}, 25, 60},
		{"archive rate", Converter{FallbackRate: 24}, 25, 25},
		{"fallback", Converter{FallbackRate: 24}, 0, 24},
		{"built-in default", Converter{}, 0, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conv.rateFor(landmark.Archive{FrameRate: tt.archive}))
		})
	}
}

func TestConvertWithPlots(t *testing.T) {
	dir := t.TempDir()
	c := &Converter{Plot: true}

	res, err := c.Convert(walkArchive("s2", 30, 10), "plotted", dir)
	require.NoError(t, err)
	require.NotEmpty(t, res.Plots)
	for _, p := range res.Plots {
		assert.FileExists(t, p)
		assert.Equal(t, filepath.Join(dir, "plotted_plots"), filepath.Dir(p))
	}
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	c := &Converter{}

	_, err := c.Convert(landmark.NewArchive("", 30, nil), "empty", dir)
	var empty *bvh.EmptyInputError
	assert.ErrorAs(t, err, &empty)

	_, err = c.Convert(landmark.NewArchive("", 30, []landmark.Frame{{landmark.Pt(0, 0, 0)}}), "short", dir)
	var short *bvh.InsufficientLandmarksError
	assert.ErrorAs(t, err, &short)

	_, err = (&Converter{FrameRate: -1}).Convert(walkArchive("", 30, 2), "rate", dir)
	var rate *bvh.FrameRateError
	assert.ErrorAs(t, err, &rate)

	_, err = c.ConvertFile(filepath.Join(dir, "missing.json"), dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{oops"), 0o644))
	_, err = c.ConvertFile(bad, dir)
	assert.Error(t, err)

	entries, err := filepath.Glob(filepath.Join(dir, "*.bvh"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type results struct {
	mu  sync.Mutex
	got map[string]error
}

func (r *results) record(res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[filepath.Base(res.Input)] = err
}

func (r *results) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.got[name]
	return ok
}

func TestWatcherConvertsNewAndExistingArchives(t *testing.T) {
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	outbox := filepath.Join(root, "outbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	writeArchive(t, filepath.Join(inbox, "early.json"), walkArchive("early", 30, 4))

	r := &results{got: map[string]error{}}
	w := NewWatcher(&Converter{}, inbox, outbox)
	w.Settle = 20 * time.Millisecond
	w.OnResult = r.record

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return r.has("early.json") }, 5*time.Second, 10*time.Millisecond)

	staged := filepath.Join(root, "late.json")
	writeArchive(t, staged, walkArchive("late", 30, 6))
	require.NoError(t, os.Rename(staged, filepath.Join(inbox, "late.json")))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("ignored"), 0o644))
	require.Eventually(t, func() bool { return r.has("late.json") }, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.FileExists(t, filepath.Join(outbox, "early.bvh"))
	assert.FileExists(t, filepath.Join(outbox, "late.bvh"))
	assert.NoFileExists(t, filepath.Join(outbox, "notes.bvh"))
	assert.False(t, r.has("notes.txt"))
}

func TestWatcherReportsFailures(t *testing.T) {
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "broken.json"), []byte("[["), 0o644))

	r := &results{got: map[string]error{}}
	w := NewWatcher(&Converter{}, inbox, filepath.Join(root, "outbox"))
	w.Settle = 10 * time.Millisecond
	w.OnResult = r.record

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return r.has("broken.json") }, 5*time.Second, 10*time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Error(t, r.got["broken.json"])
}

func TestWatcherRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	outside := filepath.Join(root, "outside.json")
	writeArchive(t, outside, walkArchive("x", 30, 2))
	link := filepath.Join(inbox, "link.json")
	require.NoError(t, os.Symlink(outside, link))

	var got error
	w := NewWatcher(&Converter{}, inbox, filepath.Join(root, "outbox"))
	w.OnResult = func(_ Result, err error) { got = err }
	w.convert(link)

	require.Error(t, got)
	assert.False(t, errors.Is(got, os.ErrNotExist))
	assert.NoFileExists(t, filepath.Join(root, "outbox", "link.bvh"))
}

func TestIsArchive(t *testing.T) {
	assert.True(t, isArchive("/in/walk.json"))
	assert.True(t, isArchive("WALK.JSON"))
	assert.False(t, isArchive("/in/.walk.json"))
	assert.False(t, isArchive("/in/walk.json.swp"))
	assert.False(t, isArchive("/in/walk.bvh"))
}
