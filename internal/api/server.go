// Package api serves the capture session and archive endpoints.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/nocap/internal/bvh"
	"github.com/banshee-data/nocap/internal/config"
	"github.com/banshee-data/nocap/internal/httputil"
	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/monitoring"
	"github.com/banshee-data/nocap/internal/preview"
	"github.com/banshee-data/nocap/internal/recording"
	"github.com/banshee-data/nocap/internal/skeleton"
	"github.com/banshee-data/nocap/internal/store"
)

var logf = monitoring.Component("api")

// maxUploadBytes caps request bodies carrying frames or archives.
const maxUploadBytes = 64 << 20

type Server struct {
	buf       *recording.Buffer
	hierarchy *skeleton.Hierarchy
	store     *store.Store
	cfg       *config.ExportConfig
	upgrader  websocket.Upgrader

	// AllowedOrigins lists extra browser origins, such as
	// "http://localhost:5173", that may open the landmark stream.
	AllowedOrigins []string

	mu   sync.Mutex
	last *recording.Recording
}

// NewServer wires the capture buffer to the HTTP surface. st may be nil, in
// which case stopped recordings are only kept in memory.
func NewServer(buf *recording.Buffer, h *skeleton.Hierarchy, st *store.Store, cfg *config.ExportConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyExportConfig()
	}
	if h == nil {
		h = skeleton.Default()
	}
	s := &Server{
		buf:       buf,
		hierarchy: h,
		store:     st,
		cfg:       cfg,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/recording/start", s.handleStart)
	mux.HandleFunc("POST /api/recording/frames", s.handleFrames)
	mux.HandleFunc("POST /api/recording/stop", s.handleStop)
	mux.HandleFunc("GET /api/recording/status", s.handleStatus)
	mux.HandleFunc("GET /api/recording/bvh", s.handleLastBVH)
	mux.HandleFunc("GET /api/recordings", s.listRecordings)
	mux.HandleFunc("POST /api/recordings", s.importRecording)
	mux.HandleFunc("GET /api/recordings/{id}", s.getRecording)
	mux.HandleFunc("GET /api/recordings/{id}/bvh", s.exportRecording)
	mux.HandleFunc("GET /api/recordings/{id}/chart", s.chartRecording)
	mux.HandleFunc("DELETE /api/recordings/{id}", s.deleteRecording)
	mux.HandleFunc("GET /api/profiles", s.listProfiles)
	mux.HandleFunc("GET /ws/landmarks", s.handleLandmarkStream)
	return mux
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := s.buf.Start()
	httputil.WriteJSONOK(w, map[string]string{"session_id": id})
}

// framesRequest accepts a single frame or a batch.
type framesRequest struct {
	Landmarks []*landmark.Point3   `json:"landmarks"`
	Frames    [][]*landmark.Point3 `json:"frames"`
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	var req framesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid frame payload: %v", err))
		return
	}
	batch := req.Frames
	if req.Landmarks != nil {
		batch = append(batch, req.Landmarks)
	}
	if len(batch) == 0 {
		httputil.BadRequest(w, "payload has no landmarks")
		return
	}
	accepted := 0
	for _, f := range batch {
		if s.buf.Push(f) {
			accepted++
		}
	}
	httputil.WriteJSONOK(w, map[string]any{
		"accepted": accepted,
		"active":   s.buf.Active(),
	})
}

type stopResponse struct {
	SessionID  string `json:"session_id"`
	Frames     int    `json:"frames"`
	DurationMS int64  `json:"duration_ms"`
	Archived   bool   `json:"archived"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	rec := s.buf.Stop()
	s.mu.Lock()
	s.last = &rec
	s.mu.Unlock()

	resp := stopResponse{
		SessionID:  rec.SessionID,
		Frames:     len(rec.Frames),
		DurationMS: rec.Duration().Milliseconds(),
	}
	if s.store != nil && len(rec.Frames) > 0 {
		if _, err := s.store.SaveRecording(rec, s.cfg.GetFrameRate()); err != nil {
			logf("failed to archive recording %s: %v", rec.SessionID, err)
			httputil.InternalServerError(w, "failed to archive recording")
			return
		}
		if label := r.URL.Query().Get("label"); label != "" {
			if err := s.store.SetLabel(rec.SessionID, label); err != nil {
				logf("failed to label recording %s: %v", rec.SessionID, err)
			}
		}
		resp.Archived = true
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.buf.Status())
}

func (s *Server) handleLastBVH(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		httputil.NotFound(w, "no stopped recording")
		return
	}
	s.writeBVH(w, r, last.SessionID, last.Frames, s.hierarchy, s.cfg.GetFrameRate())
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	type profileInfo struct {
		Name          string   `json:"name"`
		Joints        []string `json:"joints"`
		RotationOrder string   `json:"rotation_order"`
		Landmarks     int      `json:"required_landmarks"`
		Active        bool     `json:"active"`
	}
	out := make([]profileInfo, 0, len(skeleton.Names()))
	for _, name := range skeleton.Names() {
		p, err := skeleton.Lookup(name)
		if err != nil {
			continue
		}
		h, err := skeleton.New(p)
		if err != nil {
			continue
		}
		info := profileInfo{
			Name:          name,
			RotationOrder: string(h.RotationOrder()),
			Landmarks:     h.RequiredLandmarks(),
			Active:        name == s.hierarchy.Name(),
		}
		for _, j := range h.Walk() {
			info.Joints = append(info.Joints, j.Name)
		}
		out = append(out, info)
	}
	httputil.WriteJSONOK(w, out)
}

// exportParams resolves the profile and frame rate overrides of a request.
func (s *Server) exportParams(r *http.Request, defaultRate float64) (*skeleton.Hierarchy, float64, error) {
	h := s.hierarchy
	if name := r.URL.Query().Get("profile"); name != "" && name != h.Name() {
		p, err := skeleton.Lookup(name)
		if err != nil {
			return nil, 0, err
		}
		if p, err = s.cfg.ApplyTo(p); err != nil {
			return nil, 0, err
		}
		if h, err = skeleton.New(p); err != nil {
			return nil, 0, err
		}
	}
	rate := defaultRate
	if raw := r.URL.Query().Get("fps"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid fps %q", raw)
		}
		rate = v
	}
	return h, rate, nil
}

func (s *Server) writeBVH(w http.ResponseWriter, r *http.Request, name string, frames []landmark.Frame, h *skeleton.Hierarchy, rate float64) {
	doc, err := bvh.Build(h, frames, rate)
	if err != nil {
		writeExportError(w, err)
		return
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		httputil.InternalServerError(w, "failed to write BVH")
		return
	}
	if name == "" {
		name = "recording"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".bvh"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logf("failed to write BVH response: %v", err)
	}
}

// writeExportError maps conversion failures to status codes.
func writeExportError(w http.ResponseWriter, err error) {
	var (
		empty   *bvh.EmptyInputError
		short   *bvh.InsufficientLandmarksError
		rate    *bvh.FrameRateError
		unknown *preview.UnknownJointError
		cfgErr  *skeleton.ConfigurationError
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &short):
		httputil.UnprocessableEntity(w, err.Error())
	case errors.As(err, &rate), errors.As(err, &unknown), errors.As(err, &cfgErr):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httputil.NotFound(w, err.Error())
	default:
		logf("export failed: %v", err)
		httputil.InternalServerError(w, "export failed")
	}
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
