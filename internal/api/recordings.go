package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/nocap/internal/bvh"
	"github.com/banshee-data/nocap/internal/httputil"
	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/preview"
	"github.com/banshee-data/nocap/internal/recording"
	"github.com/banshee-data/nocap/internal/store"
)

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.ServiceUnavailable(w, "recording archive is not configured")
		return false
	}
	return true
}

// loadEntry fetches an archived recording, writing the error response when
// it cannot.
func (s *Server) loadEntry(w http.ResponseWriter, r *http.Request) (*store.Entry, bool) {
	if !s.requireStore(w) {
		return nil, false
	}
	id := r.PathValue("id")
	entry, err := s.store.GetRecording(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("recording %s not found", id))
		return nil, false
	}
	if err != nil {
		logf("failed to load recording %s: %v", id, err)
		httputil.InternalServerError(w, "failed to load recording")
		return nil, false
	}
	return entry, true
}

func (s *Server) listRecordings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSONOK(w, []store.Summary{})
		return
	}
	list, err := s.store.ListRecordings()
	if err != nil {
		logf("failed to list recordings: %v", err)
		httputil.InternalServerError(w, "failed to list recordings")
		return
	}
	httputil.WriteJSONOK(w, list)
}

func (s *Server) importRecording(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	a, err := landmark.ReadArchive(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(a.Frames) == 0 {
		httputil.UnprocessableEntity(w, (&bvh.EmptyInputError{}).Error())
		return
	}
	rate := a.FrameRate
	if rate <= 0 {
		rate = s.cfg.GetFrameRate()
	}
	now := time.Now()
	rec := recording.Recording{
		SessionID:     a.SessionID,
		StartedAt:     now,
		StoppedAt:     now,
		LandmarkCount: max(a.LandmarkCount, landmark.Widest(a.Frames)),
		Frames:        a.Frames,
	}
	id, err := s.store.SaveRecording(rec, rate)
	if err != nil {
		logf("failed to import recording: %v", err)
		httputil.InternalServerError(w, "failed to import recording")
		return
	}
	if label := r.URL.Query().Get("label"); label != "" {
		if err := s.store.SetLabel(id, label); err != nil {
			logf("failed to label recording %s: %v", id, err)
		}
	}
	httputil.WriteJSONCreated(w, map[string]any{"id": id, "frames": len(a.Frames)})
}

func (s *Server) getRecording(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.loadEntry(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := landmark.WriteArchive(&buf, entry.Archive()); err != nil {
		httputil.InternalServerError(w, "failed to encode archive")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logf("failed to write archive response: %v", err)
	}
}

func (s *Server) exportRecording(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.loadEntry(w, r)
	if !ok {
		return
	}
	h, rate, err := s.exportParams(r, entry.FrameRate)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.writeBVH(w, r, entry.ID, entry.Frames, h, rate)
}

func (s *Server) chartRecording(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.loadEntry(w, r)
	if !ok {
		return
	}
	h, rate, err := s.exportParams(r, entry.FrameRate)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	doc, err := bvh.Build(h, entry.Frames, rate)
	if err != nil {
		writeExportError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := preview.RenderChart(&buf, doc, splitList(r.URL.Query().Get("joints"))); err != nil {
		writeExportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logf("failed to write chart response: %v", err)
	}
}

func (s *Server) deleteRecording(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := r.PathValue("id")
	err := s.store.DeleteRecording(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("recording %s not found", id))
		return
	}
	if err != nil {
		logf("failed to delete recording %s: %v", id, err)
		httputil.InternalServerError(w, "failed to delete recording")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
