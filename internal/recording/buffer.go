// Package recording accumulates landmark frames pushed by a capture source
// between Start and Stop.
package recording

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/monitoring"
	"github.com/banshee-data/nocap/internal/timeutil"
)

var logf = monitoring.Component("recording")

// Recording is a frozen capture session. Frames is owned by the caller.
type Recording struct {
	SessionID     string
	StartedAt     time.Time
	StoppedAt     time.Time
	LandmarkCount int
	Frames        []landmark.Frame
}

// Duration is the wall time between Start and Stop.
func (r Recording) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return r.StoppedAt.Sub(r.StartedAt)
}

// Archive converts the recording to the JSON archive form.
func (r Recording) Archive(frameRate float64) landmark.Archive {
	a := landmark.NewArchive(r.SessionID, frameRate, r.Frames)
	a.LandmarkCount = r.LandmarkCount
	return a
}

// Buffer collects frames while active. All methods are safe for concurrent
// use; the live frame slice never leaves the buffer.
type Buffer struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	count     int
	active    bool
	sessionID string
	startedAt time.Time
	frames    []landmark.Frame
	dropped   int
}

// NewBuffer returns an inactive buffer that normalizes every frame to
// landmarkCount entries. A nil clock uses the wall clock.
func NewBuffer(landmarkCount int, clock timeutil.Clock) *Buffer {
	if landmarkCount <= 0 {
		landmarkCount = landmark.DefaultCount
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Buffer{count: landmarkCount, clock: clock}
}

// Start discards any unfrozen frames, activates the buffer and returns the
// new session id.
func (b *Buffer) Start() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active && len(b.frames) > 0 {
		logf("session %s restarted, discarding %d frames", b.sessionID, len(b.frames))
	}
	b.active = true
	b.sessionID = uuid.New().String()
	b.startedAt = b.clock.Now()
	b.frames = nil
	b.dropped = 0
	return b.sessionID
}

// Push appends a normalized deep copy of landmarks. It reports false, and
// does nothing, when the buffer is not active.
func (b *Buffer) Push(landmarks []*landmark.Point3) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		b.dropped++
		return false
	}
	b.frames = append(b.frames, landmark.Normalize(landmarks, b.count))
	return true
}

// Stop deactivates the buffer and hands over the accumulated frames. Calling
// Stop on an inactive buffer returns an empty recording.
func (b *Buffer) Stop() Recording {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return Recording{LandmarkCount: b.count, Frames: []landmark.Frame{}}
	}
	rec := Recording{
		SessionID:     b.sessionID,
		StartedAt:     b.startedAt,
		StoppedAt:     b.clock.Now(),
		LandmarkCount: b.count,
		Frames:        b.frames,
	}
	if rec.Frames == nil {
		rec.Frames = []landmark.Frame{}
	}
	b.active = false
	b.frames = nil
	logf("session %s stopped with %d frames", rec.SessionID, len(rec.Frames))
	return rec
}

// Active reports whether the buffer is accepting frames.
func (b *Buffer) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Len is the number of frames pushed since Start.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// SessionID is the id of the current or most recent session.
func (b *Buffer) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// LandmarkCount is the per-frame arity of recorded frames.
func (b *Buffer) LandmarkCount() int { return b.count }

// Status is a point-in-time view of the buffer.
type Status struct {
	Active    bool      `json:"active"`
	SessionID string    `json:"session_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Frames    int       `json:"frames"`
	Dropped   int       `json:"dropped"`
}

// Status returns the current state in one consistent read. Dropped counts
// pushes refused since the last Start.
func (b *Buffer) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Active:    b.active,
		SessionID: b.sessionID,
		StartedAt: b.startedAt,
		Frames:    len(b.frames),
		Dropped:   b.dropped,
	}
}
