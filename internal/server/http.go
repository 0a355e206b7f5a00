package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/configstore"
	"github.com/hfujise/scopectl/internal/logging"
)

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// slotResponse acknowledges a slot operation
type slotResponse struct {
	Slot int `json:"slot"`
}

// routes builds the HTTP handler tree
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/screenshot", s.handleScreenshot)
	mux.HandleFunc("POST /api/slots/{slot}/save", s.handleSave)
	mux.HandleFunc("POST /api/slots/{slot}/load", s.handleLoad)
	mux.HandleFunc("POST /api/undo/save", s.handleUndoSave)
	mux.HandleFunc("POST /api/undo/load", s.handleUndoLoad)
	mux.HandleFunc("GET /events", s.handleEvents)

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.ctrl.Status()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	image, err := s.ctrl.Capture()
	s.mu.Unlock()

	if err != nil {
		logging.Error("Screenshot capture failed", zap.Error(err))
		writeError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventScreenshot, Bytes: len(image)})

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	if _, err := w.Write(image); err != nil {
		logging.Warn("Failed to write screenshot response", zap.Error(err))
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	n, err := s.ctrl.Save(slot)
	s.mu.Unlock()

	if err != nil {
		logging.Error("Save failed", zap.Int("slot", slot), zap.Error(err))
		writeError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventSave, Slot: n})
	writeJSON(w, http.StatusOK, slotResponse{Slot: n})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	n, err := s.ctrl.Load(slot)
	s.mu.Unlock()

	if err != nil {
		logging.Error("Load failed", zap.Int("slot", slot), zap.Error(err))
		writeError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventLoad, Slot: n})
	writeJSON(w, http.StatusOK, slotResponse{Slot: n})
}

func (s *Server) handleUndoSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.ctrl.UndoSave()
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventUndoSave})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUndoLoad(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.ctrl.UndoLoad()
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventUndoLoad})
	w.WriteHeader(http.StatusNoContent)
}

// slotParam parses the {slot} path value, writing the error response on
// failure
func slotParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil || slot < configstore.MinSlot || slot > configstore.MaxSlot {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "slot must be a number between 1 and 8",
		})
		return 0, false
	}
	return slot, true
}

// writeError maps a controller error to an HTTP status
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if configstore.IsMissingSnapshot(err) {
		status = http.StatusNotFound
	}
	var se *configstore.StoreError
	if errors.As(err, &se) && se.Kind == configstore.ErrKindInvalidSlot {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: configstore.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode JSON response", zap.Error(err))
	}
}
