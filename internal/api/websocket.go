package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/nocap/internal/landmark"
)

const (
	wsWriteWait    = 5 * time.Second
	wsMaxFrameSize = 1 << 20
)

// streamAck is written back after every frame message.
type streamAck struct {
	Accepted bool   `json:"accepted"`
	Frames   int    `json:"frames"`
	Error    string `json:"error,omitempty"`
}

// checkOrigin accepts upgrades with no Origin header, from the page's own
// host, or from an origin listed in AllowedOrigins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.ContainsFunc(s.AllowedOrigins, func(o string) bool {
		return strings.EqualFold(strings.TrimSuffix(o, "/"), origin)
	}) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// handleLandmarkStream pushes one frame per text message. A message is either
// a bare array of landmarks or an object with a "landmarks" field.
func (s *Server) handleLandmarkStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxFrameSize)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logf("landmark stream closed: %v", err)
			}
			return
		}

		var ack streamAck
		if points, err := decodeStreamFrame(msg); err != nil {
			ack.Error = err.Error()
		} else {
			ack.Accepted = s.buf.Push(points)
		}
		ack.Frames = s.buf.Len()

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ack); err != nil {
			logf("landmark stream write failed: %v", err)
			return
		}
	}
}

func decodeStreamFrame(msg []byte) ([]*landmark.Point3, error) {
	var points []*landmark.Point3
	if err := json.Unmarshal(msg, &points); err == nil {
		return points, nil
	}
	var req framesRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, err
	}
	return req.Landmarks, nil
}

// SplitOrigins parses a comma-separated origin list for AllowedOrigins.
func SplitOrigins(raw string) []string {
	return splitList(raw)
}
