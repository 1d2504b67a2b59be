package recognizer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"transcribe/audio"
	"transcribe/transcript"
)

type fakeServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	query   map[string]string
	auth    string
	binary  int
	gotDone bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.auth = r.Header.Get("Authorization")
		fs.query = map[string]string{}
		for k := range r.URL.Query() {
			fs.query[k] = r.URL.Query().Get(k)
		}
		fs.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sentInterim := false
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch mt {
			case websocket.BinaryMessage:
				fs.mu.Lock()
				fs.binary++
				fs.mu.Unlock()
				if !sentInterim {
					sentInterim = true
					conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
					conn.WriteMessage(websocket.TextMessage, []byte(
						`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
				}
			case websocket.TextMessage:
				if strings.Contains(string(data), "Finalize") {
					fs.mu.Lock()
					fs.gotDone = true
					fs.mu.Unlock()
					conn.WriteMessage(websocket.TextMessage, []byte(
						`{"type":"Results","is_final":true,"from_finalize":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`))
				}
			}
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) endpoint() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/v1/listen"
}

type recorder struct {
	events chan transcript.Event
	errs   chan error
	ends   chan struct{}
}

func listen(r Recognizer) *recorder {
	rec := &recorder{
		events: make(chan transcript.Event, 32),
		errs:   make(chan error, 4),
		ends:   make(chan struct{}, 4),
	}
	r.OnResult(func(ev transcript.Event) { rec.events <- ev })
	r.OnError(func(err error) { rec.errs <- err })
	r.OnEnd(func() { rec.ends <- struct{}{} })
	return rec
}

func waitEnd(t *testing.T, rec *recorder) {
	t.Helper()
	select {
	case <-rec.ends:
	case <-time.After(5 * time.Second):
		t.Fatal("session never ended")
	}
}

func TestNewDeepgramRequiresKey(t *testing.T) {
	_, err := NewDeepgram(DeepgramConfig{}, audio.NewFakeContext(nil, false))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestDeepgramSession(t *testing.T) {
	fs := newFakeServer(t)
	pcm := make([]byte, audio.BytesPerSecond) // 1s of silence, several chunks
	dg, err := NewDeepgram(DeepgramConfig{APIKey: "secret", Endpoint: fs.endpoint()},
		audio.NewFakeContext(pcm, false))
	if err != nil {
		t.Fatal(err)
	}
	rec := listen(dg)

	if err := dg.Start(context.Background(), "fr-FR"); err != nil {
		t.Fatal(err)
	}
	if err := dg.Start(context.Background(), "fr-FR"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start err = %v, want ErrSessionActive", err)
	}

	acc := transcript.New()
	select {
	case ev := <-rec.events:
		if got := acc.Apply(ev); got != "hello" {
			t.Fatalf("interim text = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no interim result")
	}

	dg.Stop()
	waitEnd(t, rec)

	close(rec.events)
	for ev := range rec.events {
		acc.Apply(ev)
	}
	if acc.Text() != "hello world" {
		t.Errorf("final text = %q", acc.Text())
	}
	select {
	case err := <-rec.errs:
		t.Errorf("unexpected error: %v", err)
	default:
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.auth != "Token secret" {
		t.Errorf("auth header = %q", fs.auth)
	}
	if fs.query["language"] != "fr-FR" || fs.query["interim_results"] != "true" {
		t.Errorf("query = %v", fs.query)
	}
	if fs.query["encoding"] != "linear16" || fs.query["sample_rate"] != "16000" {
		t.Errorf("audio format query = %v", fs.query)
	}
	if fs.binary == 0 || !fs.gotDone {
		t.Errorf("binary=%d finalize=%v", fs.binary, fs.gotDone)
	}

	fs.mu.Unlock()

	// The session slot is free again.
	rec = listen(dg)
	if err := dg.Start(context.Background(), "en-US"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	dg.Stop()
	waitEnd(t, rec)
	fs.mu.Lock()
}

func TestDeepgramConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	dg, err := NewDeepgram(DeepgramConfig{
		APIKey:   "bad",
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}, audio.NewFakeContext(nil, false))
	if err != nil {
		t.Fatal(err)
	}
	rec := listen(dg)
	if err := dg.Start(context.Background(), "en-US"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-rec.errs:
		if !strings.Contains(err.Error(), "401") {
			t.Errorf("err = %v, want status in message", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported")
	}
	waitEnd(t, rec)

	select {
	case <-rec.ends:
		t.Error("OnEnd fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeepgramRestartWhileDraining(t *testing.T) {
	fs := newFakeServer(t)
	pcm := make([]byte, audio.BytesPerSecond)
	dg, err := NewDeepgram(DeepgramConfig{APIKey: "secret", Endpoint: fs.endpoint()},
		audio.NewFakeContext(pcm, false))
	if err != nil {
		t.Fatal(err)
	}

	first := listen(dg)
	if err := dg.Start(WithSessionID(context.Background(), "rec-1"), "en-US"); err != nil {
		t.Fatal(err)
	}
	dg.mu.Lock()
	id := dg.session.id
	dg.mu.Unlock()
	if id != "rec-1" {
		t.Errorf("session id = %q, want caller's id", id)
	}
	select {
	case <-first.events:
	case <-time.After(5 * time.Second):
		t.Fatal("no interim result")
	}

	dg.Stop()
	second := listen(dg)
	if err := dg.Start(context.Background(), "en-US"); err != nil {
		t.Fatalf("Start right after Stop: %v", err)
	}

	// The stopped session finishes on its own listeners.
	waitEnd(t, first)
	var finals []string
	for len(first.events) > 0 {
		ev := <-first.events
		for _, s := range ev.Segments {
			if s.IsFinal {
				finals = append(finals, s.Text)
			}
		}
	}
	if len(finals) == 0 || finals[len(finals)-1] != "hello world" {
		t.Errorf("first session finals = %q", finals)
	}
	for len(second.events) > 0 {
		ev := <-second.events
		for _, s := range ev.Segments {
			if s.IsFinal {
				t.Errorf("second session got final %q before stopping", s.Text)
			}
		}
	}

	dg.Close()
	select {
	case <-second.ends:
	default:
		t.Error("Close returned before the session ended")
	}
}
