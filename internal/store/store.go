// Package store archives stopped recordings in SQLite so they can be
// exported again later.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/monitoring"
	"github.com/banshee-data/nocap/internal/recording"
)

var logf = monitoring.Component("store")

// ErrNotFound is returned when a recording id is not in the archive.
var ErrNotFound = errors.New("recording not found")

// Store is a SQLite recording archive.
type Store struct {
	*sql.DB
	path string
}

// Summary describes an archived recording without its frames.
type Summary struct {
	ID            string    `json:"id"`
	Label         string    `json:"label,omitempty"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	StoppedAt     time.Time `json:"stopped_at,omitzero"`
	LandmarkCount int       `json:"landmark_count"`
	FrameRate     float64   `json:"frame_rate"`
	FrameCount    int       `json:"frame_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Entry is an archived recording with its frames.
type Entry struct {
	Summary
	Frames []landmark.Frame
}

// Recording converts the entry back to the buffer's snapshot type.
func (e *Entry) Recording() recording.Recording {
	return recording.Recording{
		SessionID:     e.ID,
		StartedAt:     e.StartedAt,
		StoppedAt:     e.StoppedAt,
		LandmarkCount: e.LandmarkCount,
		Frames:        e.Frames,
	}
}

// Archive converts the entry to the JSON archive form.
func (e *Entry) Archive() landmark.Archive {
	return e.Recording().Archive(e.FrameRate)
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	logf("opened %s", path)
	return s, nil
}

// Path is the database file path.
func (s *Store) Path() string { return s.path }

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// SaveRecording stores rec and returns its id, which is the session id when
// one is set. Saving an id twice replaces the earlier copy.
func (s *Store) SaveRecording(rec recording.Recording, frameRate float64) (string, error) {
	id := rec.SessionID
	if id == "" {
		id = uuid.New().String()
	}

	tx, err := s.Begin()
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := deleteRows(tx, id); err != nil {
		return "", fmt.Errorf("replace recording: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO recordings (
			recording_id, started_at_ns, stopped_at_ns, landmark_count, frame_rate, frame_count, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, nanos(rec.StartedAt), nanos(rec.StoppedAt), rec.LandmarkCount, frameRate, len(rec.Frames), time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert recording: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO recording_frames (recording_id, frame_index, landmarks_json) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()
	for i, f := range rec.Frames {
		data, err := json.Marshal(f)
		if err != nil {
			return "", fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(id, i, string(data)); err != nil {
			return "", fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	logf("saved recording %s (%d frames)", id, len(rec.Frames))
	return id, nil
}

const summaryColumns = `recording_id, label, started_at_ns, stopped_at_ns, landmark_count, frame_rate, frame_count, created_at_ns`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (Summary, error) {
	var (
		sum                       Summary
		started, stopped, created int64
	)
	err := row.Scan(&sum.ID, &sum.Label, &started, &stopped, &sum.LandmarkCount, &sum.FrameRate, &sum.FrameCount, &created)
	if err != nil {
		return Summary{}, err
	}
	sum.StartedAt = fromNanos(started)
	sum.StoppedAt = fromNanos(stopped)
	sum.CreatedAt = fromNanos(created)
	return sum, nil
}

// GetRecording loads one recording with its frames.
func (s *Store) GetRecording(id string) (*Entry, error) {
	sum, err := scanSummary(s.QueryRow(`SELECT `+summaryColumns+` FROM recordings WHERE recording_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recording %s: %w", id, err)
	}

	rows, err := s.Query(`SELECT frame_index, landmarks_json FROM recording_frames WHERE recording_id = ? ORDER BY frame_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	entry := &Entry{Summary: sum, Frames: make([]landmark.Frame, 0, sum.FrameCount)}
	for rows.Next() {
		var (
			idx  int
			data string
		)
		if err := rows.Scan(&idx, &data); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		var f landmark.Frame
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", idx, err)
		}
		entry.Frames = append(entry.Frames, landmark.Normalize(f, sum.LandmarkCount))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return entry, nil
}

// ListRecordings returns every archived recording, newest first.
func (s *Store) ListRecordings() ([]Summary, error) {
	rows, err := s.Query(`SELECT ` + summaryColumns + ` FROM recordings ORDER BY created_at_ns DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SetLabel sets the display label of a recording.
func (s *Store) SetLabel(id, label string) error {
	res, err := s.Exec(`UPDATE recordings SET label = ? WHERE recording_id = ?`, label, id)
	if err != nil {
		return fmt.Errorf("set label: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecording removes a recording and its frames.
func (s *Store) DeleteRecording(id string) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM recordings WHERE recording_id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	if err := deleteRows(tx, id); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	logf("deleted recording %s", id)
	return nil
}

// deleteRows removes frames explicitly; foreign_keys is a per-connection
// pragma and may be off on pooled connections.
func deleteRows(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM recording_frames WHERE recording_id = ?`, id); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM recordings WHERE recording_id = ?`, id)
	return err
}
