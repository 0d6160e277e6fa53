package store

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/recording"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecording() recording.Recording {
	start := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
	return recording.Recording{
		SessionID:     "3f1b2d6e-0000-4000-8000-000000000001",
		StartedAt:     start,
		StoppedAt:     start.Add(1500 * time.Millisecond),
		LandmarkCount: 3,
		Frames: []landmark.Frame{
			{landmark.Pt(0, 1, 0), nil, landmark.Pt(0.25, -1.5, 3)},
			{nil, nil, nil},
			{landmark.Pt(1e-7, 2, -0), landmark.Pt(0.1, 0.2, 0.3), nil},
		},
	}
}

func TestOpenMigratesToLatest(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	require.NoError(t, s.MigrateDown())
	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	_, err = s.Exec(`SELECT label FROM recordings`)
	assert.Error(t, err)
	require.NoError(t, s.MigrateUp())
}

func TestSaveAndGetRecording(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	rec := sampleRecording()

	id, err := s.SaveRecording(rec, 30)
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, id)

	got, err := s.GetRecording(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 3, got.LandmarkCount)
	assert.Equal(t, 30.0, got.FrameRate)
	assert.Equal(t, 3, got.FrameCount)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	assert.True(t, rec.StoppedAt.Equal(got.StoppedAt))
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, rec.Frames, got.Frames)

	back := got.Recording()
	assert.Equal(t, rec.SessionID, back.SessionID)
	assert.Equal(t, 1500*time.Millisecond, back.Duration())

	a := got.Archive()
	assert.Equal(t, 30.0, a.FrameRate)
	assert.Len(t, a.Frames, 3)
}

func TestSaveRecordingAssignsID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	rec := sampleRecording()
	rec.SessionID = ""
	id, err := s.SaveRecording(rec, 25)
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestSaveRecordingReplaces(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	rec := sampleRecording()
	_, err := s.SaveRecording(rec, 30)
	require.NoError(t, err)

	rec.Frames = rec.Frames[:1]
	_, err = s.SaveRecording(rec, 60)
	require.NoError(t, err)

	got, err := s.GetRecording(rec.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Frames, 1)
	assert.Equal(t, 60.0, got.FrameRate)

	var frames int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM recording_frames`).Scan(&frames))
	assert.Equal(t, 1, frames)
}

func TestListAndDelete(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	first := sampleRecording()
	second := sampleRecording()
	second.SessionID = "3f1b2d6e-0000-4000-8000-000000000002"
	_, err := s.SaveRecording(first, 30)
	require.NoError(t, err)
	_, err = s.SaveRecording(second, 30)
	require.NoError(t, err)

	list, err := s.ListRecordings()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.SessionID, list[0].ID)

	require.NoError(t, s.SetLabel(first.SessionID, "warmup"))
	got, err := s.GetRecording(first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "warmup", got.Label)

	require.NoError(t, s.DeleteRecording(first.SessionID))
	_, err = s.GetRecording(first.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecording(first.SessionID), ErrNotFound)
	assert.ErrorIs(t, s.SetLabel(first.SessionID, "x"), ErrNotFound)

	var orphans int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM recording_frames WHERE recording_id = ?`, first.SessionID).Scan(&orphans))
	assert.Zero(t, orphans)

	list, err = s.ListRecordings()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListRecordingsEmpty(t *testing.T) {
	t.Parallel()

	list, err := openTestStore(t).ListRecordings()
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetRecordingNotFound(t *testing.T) {
	t.Parallel()

	_, err := openTestStore(t).GetRecording("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAdminRoutes(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveRecording(sampleRecording(), 30)
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusNotFound, rec.Code)
	if rec.Code != http.StatusOK {
		t.Skipf("debug access refused with %d", rec.Code)
	}
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
}
