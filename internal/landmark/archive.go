package landmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ArchiveVersion is the current archive schema version.
const ArchiveVersion = 1

// Archive is the structured dump of a recorded frame sequence. Absent
// landmarks are encoded as JSON null.
type Archive struct {
	Version       int     `json:"version"`
	SessionID     string  `json:"session_id,omitempty"`
	LandmarkCount int     `json:"landmark_count"`
	FrameRate     float64 `json:"frame_rate,omitempty"`
	Frames        []Frame `json:"frames"`
}

// NewArchive wraps frames in an archive, inferring the landmark count from
// the widest frame.
func NewArchive(sessionID string, frameRate float64, frames []Frame) Archive {
	return Archive{
		Version:       ArchiveVersion,
		SessionID:     sessionID,
		LandmarkCount: Widest(frames),
		FrameRate:     frameRate,
		Frames:        frames,
	}
}

// Widest returns the length of the longest frame.
func Widest(frames []Frame) int {
	n := 0
	for _, f := range frames {
		n = max(n, len(f))
	}
	return n
}

// WriteArchive encodes a as indented JSON.
func WriteArchive(w io.Writer, a Archive) error {
	if a.Version == 0 {
		a.Version = ArchiveVersion
	}
	if a.Frames == nil {
		a.Frames = []Frame{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	return nil
}

// ReadArchive decodes an archive. It also accepts the legacy form written by
// the browser recorder, which is a bare JSON array of frames.
func ReadArchive(r io.Reader) (Archive, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Archive{}, fmt.Errorf("read archive: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Archive{}, fmt.Errorf("read archive: empty input")
	}

	if data[0] == '[' {
		var frames []Frame
		if err := json.Unmarshal(data, &frames); err != nil {
			return Archive{}, fmt.Errorf("decode legacy archive: %w", err)
		}
		return NewArchive("", 0, frames), nil
	}

	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return Archive{}, fmt.Errorf("decode archive: %w", err)
	}
	if a.Version > ArchiveVersion {
		return Archive{}, fmt.Errorf("unsupported archive version %d", a.Version)
	}
	if a.Version == 0 {
		a.Version = ArchiveVersion
	}
	if a.Frames == nil {
		a.Frames = []Frame{}
	}
	if a.LandmarkCount < 0 {
		return Archive{}, fmt.Errorf("archive landmark_count %d is negative", a.LandmarkCount)
	}
	if a.LandmarkCount == 0 {
		a.LandmarkCount = Widest(a.Frames)
	}
	for i, f := range a.Frames {
		if len(f) > a.LandmarkCount {
			return Archive{}, fmt.Errorf("archive frame %d has %d landmarks, landmark_count is %d", i, len(f), a.LandmarkCount)
		}
	}
	return a, nil
}
