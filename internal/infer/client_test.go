package infer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/yeonbit/avalink/internal/param"
)

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":            "running",
			"pipeline_ready":    true,
			"reference_loaded":  false,
			"connected_clients": 2,
		})
	}))
	defer srv.Close()

	st, err := New(srv.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Status != "running" || !st.PipelineReady || st.ReferenceLoaded || st.ConnectedClients != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestStatusUnreachable(t *testing.T) {
	_, err := New("http://127.0.0.1:1").Status(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable service")
	}
}

func TestUploadReference(t *testing.T) {
	var gotField, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reference" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotField = hdr.Filename
		body, _ := io.ReadAll(f)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := New(srv.URL).UploadReference(context.Background(), path); err != nil {
		t.Fatalf("UploadReference: %v", err)
	}
	if gotField != "face.jpg" || gotBody != "jpeg-bytes" {
		t.Errorf("received file %q body %q", gotField, gotBody)
	}
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func TestStreamMotionAndFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg["type"] != "motion" {
			conn.WriteJSON(map[string]string{"type": "error", "message": "expected motion"})
			return
		}
		conn.WriteJSON(map[string]string{
			"type":  "frame",
			"image": "data:image/jpeg;base64,AAAA",
		})
	}))
	defer srv.Close()

	stream, err := New(srv.URL).OpenStream(context.Background())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer stream.Close()

	if err := stream.SendMotion(param.Snapshot{MouthOpen: 0.5, Smile: 0.2}); err != nil {
		t.Fatalf("SendMotion: %v", err)
	}
	frame, err := stream.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !strings.HasPrefix(frame.Image, "data:image/jpeg;base64,") {
		t.Errorf("frame image = %q", frame.Image)
	}
}
