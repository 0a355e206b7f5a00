package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hfujise/scopectl/internal/configstore"
)

// fakeController scripts controller responses and records calls
type fakeController struct {
	status  Status
	image   []byte
	saveErr error
	loadErr error
	calls   []string
}

func (f *fakeController) Status() Status { f.calls = append(f.calls, "status"); return f.status }

func (f *fakeController) Capture() ([]byte, error) {
	f.calls = append(f.calls, "capture")
	if f.image == nil {
		return nil, &configstore.StoreError{Kind: configstore.ErrKindNotConnected, Message: "Oscilloscope not found"}
	}
	return f.image, nil
}

func (f *fakeController) Save(slot int) (int, error) {
	f.calls = append(f.calls, fmt.Sprintf("save %d", slot))
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	return slot, nil
}

func (f *fakeController) Load(slot int) (int, error) {
	f.calls = append(f.calls, fmt.Sprintf("load %d", slot))
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	return slot, nil
}

func (f *fakeController) UndoSave() error {
	f.calls = append(f.calls, "undo-save")
	return nil
}

func (f *fakeController) UndoLoad() error {
	f.calls = append(f.calls, "undo-load")
	return nil
}

func newTestServer(t *testing.T, ctrl Controller) *Server {
	t.Helper()
	s, err := New(&Config{Host: "localhost", Port: 0, LogLevel: "error"}, ctrl)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go s.hub.Run()
	t.Cleanup(s.hub.Close)
	return s
}

func TestHandleStatus(t *testing.T) {
	ctrl := &fakeController{status: Status{
		Connected: true,
		Model:     "701470",
		Channels:  8,
		Options:   "DL7480,LOGIC",
		Addr:      "3:12",
	}}
	s := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got != ctrl.status {
		t.Errorf("body = %+v, want %+v", got, ctrl.status)
	}
}

func TestHandleScreenshot(t *testing.T) {
	image := bytes.Repeat([]byte{0xFF, 0xD8, 0xFF}, 100)
	s := newTestServer(t, &fakeController{image: image})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/screenshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), image) {
		t.Errorf("body is not the captured image (%d bytes, want %d)", rec.Body.Len(), len(image))
	}
}

func TestHandleScreenshot_NotConnected(t *testing.T) {
	s := newTestServer(t, &fakeController{})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/screenshot", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !strings.Contains(body.Error, "not found") {
		t.Errorf("error = %q, want a not-found report", body.Error)
	}
}

func TestHandleSaveAndLoad(t *testing.T) {
	ctrl := &fakeController{status: Status{Connected: true}}
	s := newTestServer(t, ctrl)
	h := s.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/slots/3/save", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp slotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Slot != 3 {
		t.Errorf("save slot = %d, want 3", resp.Slot)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/slots/7/load", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d, want 200", rec.Code)
	}

	want := []string{"save 3", "load 7"}
	if len(ctrl.calls) != len(want) {
		t.Fatalf("controller calls = %v, want %v", ctrl.calls, want)
	}
	for i := range want {
		if ctrl.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, ctrl.calls[i], want[i])
		}
	}
}

func TestSlotValidation(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl)
	h := s.routes()

	for _, path := range []string{
		"/api/slots/0/save",
		"/api/slots/9/save",
		"/api/slots/abc/load",
		"/api/slots/-1/load",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
	if len(ctrl.calls) != 0 {
		t.Errorf("controller was invoked for invalid slots: %v", ctrl.calls)
	}
}

func TestHandleLoad_MissingSlot(t *testing.T) {
	ctrl := &fakeController{
		loadErr: &configstore.StoreError{
			Kind:    configstore.ErrKindMissingSnapshot,
			Message: "DL74x0-2.dat not found.",
		},
	}
	s := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/api/slots/2/load", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleUndo(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl)
	h := s.routes()

	for _, path := range []string{"/api/undo/save", "/api/undo/load"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", path, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: status = %d, want 204", path, rec.Code)
		}
	}

	want := []string{"undo-save", "undo-load"}
	for i := range want {
		if ctrl.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, ctrl.calls[i], want[i])
		}
	}
}

func TestMethodRouting(t *testing.T) {
	s := newTestServer(t, &fakeController{})
	h := s.routes()

	// Mutating endpoints must reject GET
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/slots/1/save", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on save: status = %d, want 405", rec.Code)
	}
}
