package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/mapimage"
	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
)

const testMapRef = "data:image/png;base64,AAAA"

func testSite() *Site {
	oakX, oakY := plants.At(25, 50)
	pineX, pineY := plants.At(75, 20)
	return &Site{
		Plants: []plants.Record{
			{ID: "oak", Name: "Oak", X: oakX, Y: oakY, Description: "Old tree by the gate."},
			{ID: "pine", Name: "Pine", X: pineX, Y: pineY},
		},
		Map: &mapimage.Image{Ref: testMapRef, Width: 800, Height: 600, State: marker.ImageReady},
	}
}

func newTestServer(t *testing.T, cfg Config, load Loader) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg, load)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	return msg
}

func write(t *testing.T, conn *websocket.Conn, ev viewer.Event) {
	t.Helper()
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxSessions: 5}, StaticLoader(testSite()))

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := healthResponse{Status: "ok", Sessions: 0, Max: 5}
	if got != want {
		t.Errorf("health = %+v, want %+v", got, want)
	}
}

func TestPage(t *testing.T) {
	_, ts := newTestServer(t, Config{Title: "Green <School>"}, StaticLoader(testSite()))

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	page := string(body)
	for _, want := range []string{
		"<title>Green &lt;School&gt;</title>",
		`id="viewport"`,
		`id="plant-list"`,
		"/ws",
		"window.addEventListener('mouseup', release)",
		"window.addEventListener('touchend', release)",
		"window.addEventListener('touchcancel', release)",
		"markers.addEventListener('mousedown', function (e) { e.stopPropagation(); })",
		"markers.addEventListener('touchstart', function (e) { e.stopPropagation(); })",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestMountAndSelect(t *testing.T) {
	s, ts := newTestServer(t, Config{}, StaticLoader(testSite()))
	conn := dial(t, ts)

	mount := read(t, conn)
	if mount.Type != MessageMount {
		t.Fatalf("first message type = %q, want %q", mount.Type, MessageMount)
	}
	if mount.Session == "" {
		t.Error("mount message has no session id")
	}
	if mount.Map != testMapRef {
		t.Errorf("mount map = %q, want %q", mount.Map, testMapRef)
	}
	if mount.Frame == nil {
		t.Fatal("mount message has no frame")
	}
	if got := mount.Frame.Image.State; got != marker.ImageReady {
		t.Errorf("image state = %v, want %v", got, marker.ImageReady)
	}
	if got := len(mount.Frame.Markers); got != 2 {
		t.Errorf("len(markers) = %d, want 2", got)
	}
	if got := len(mount.Frame.Options); got != 2 {
		t.Errorf("len(options) = %d, want 2", got)
	}
	if got := s.Sessions().Len(); got != 1 {
		t.Errorf("Sessions().Len() = %d, want 1", got)
	}

	write(t, conn, viewer.Event{Type: viewer.EventSelect, ID: "oak"})
	frame := read(t, conn)
	if frame.Type != MessageFrame {
		t.Fatalf("message type = %q, want %q", frame.Type, MessageFrame)
	}
	if frame.Session != mount.Session {
		t.Errorf("frame session = %q, want %q", frame.Session, mount.Session)
	}
	if frame.Frame.Selected != "oak" {
		t.Errorf("selected = %q, want %q", frame.Frame.Selected, "oak")
	}
	if !strings.Contains(frame.Frame.Detail, "Old tree by the gate.") {
		t.Errorf("detail = %q, want description", frame.Frame.Detail)
	}

	write(t, conn, viewer.Event{Type: viewer.EventClose})
	closed := read(t, conn)
	if closed.Frame.Selected != "" {
		t.Errorf("selected after close = %q, want empty", closed.Frame.Selected)
	}
}

func TestUnknownEvent(t *testing.T) {
	_, ts := newTestServer(t, Config{}, StaticLoader(testSite()))
	conn := dial(t, ts)
	read(t, conn)

	write(t, conn, viewer.Event{Type: "teleport"})
	msg := read(t, conn)
	if msg.Type != MessageError {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageError)
	}
	if msg.Code != string(errors.ErrCodeInvalidInput) {
		t.Errorf("code = %q, want %q", msg.Code, errors.ErrCodeInvalidInput)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	msg = read(t, conn)
	if msg.Code != string(errors.ErrCodeInvalidInput) {
		t.Errorf("code for bad JSON = %q, want %q", msg.Code, errors.ErrCodeInvalidInput)
	}
}

func TestSessionLimit(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxSessions: 1}, StaticLoader(testSite()))

	first := dial(t, ts)
	if msg := read(t, first); msg.Type != MessageMount {
		t.Fatalf("first connection got %q, want %q", msg.Type, MessageMount)
	}

	second := dial(t, ts)
	msg := read(t, second)
	if msg.Type != MessageError {
		t.Fatalf("second connection got %q, want %q", msg.Type, MessageError)
	}
	if msg.Code != string(errors.ErrCodeSessionLimit) {
		t.Errorf("code = %q, want %q", msg.Code, errors.ErrCodeSessionLimit)
	}
}

func TestLoaderError(t *testing.T) {
	load := func(context.Context) (*Site, error) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "plant list missing")
	}
	s, ts := newTestServer(t, Config{}, load)
	conn := dial(t, ts)

	msg := read(t, conn)
	if msg.Type != MessageError {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageError)
	}
	if msg.Code != string(errors.ErrCodeFileNotFound) {
		t.Errorf("code = %q, want %q", msg.Code, errors.ErrCodeFileNotFound)
	}
	if msg.Error != "plant list missing" {
		t.Errorf("error = %q, want %q", msg.Error, "plant list missing")
	}
	if got := s.Sessions().Len(); got != 0 {
		t.Errorf("Sessions().Len() = %d, want 0", got)
	}
}

func TestFailedMapStillMounts(t *testing.T) {
	site := testSite()
	site.Map = &mapimage.Image{Ref: "map/missing.jpg", State: marker.ImageFailed}
	_, ts := newTestServer(t, Config{}, StaticLoader(site))
	conn := dial(t, ts)

	msg := read(t, conn)
	if msg.Type != MessageMount {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageMount)
	}
	if got := msg.Frame.Image.State; got != marker.ImageFailed {
		t.Errorf("image state = %v, want %v", got, marker.ImageFailed)
	}
	if got := len(msg.Frame.Markers); got != 2 {
		t.Errorf("len(markers) = %d, want 2", got)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin", []string{"https://school.example"}, "", "viewer.local", true},
		{"wildcard", []string{"*"}, "https://evil.example", "viewer.local", true},
		{"listed", []string{"https://school.example"}, "https://School.example", "viewer.local", true},
		{"same host", []string{"https://school.example"}, "http://viewer.local", "viewer.local", true},
		{"other", []string{"https://school.example"}, "https://evil.example", "viewer.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{AllowedOrigins: tt.allowed}, StaticLoader(testSite()))
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := s.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestSiteMount(t *testing.T) {
	v, err := testSite().Mount(context.Background(), MountOptions{})
	if err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if got := v.Image().State; got != marker.ImageReady {
		t.Errorf("image state = %v, want %v", got, marker.ImageReady)
	}
	if got := len(v.Markers()); got != 2 {
		t.Errorf("len(Markers()) = %d, want 2", got)
	}

	site := testSite()
	site.Map = nil
	if _, err := site.Mount(context.Background(), MountOptions{}); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Mount() without map error = %v, want %s", err, errors.ErrCodeInternal)
	}
}
