package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ayokoji/aiko/internal/engine"
	"github.com/ayokoji/aiko/internal/events"
	"github.com/ayokoji/aiko/internal/persona"
)

// fakeRunner scripts engine behavior for handler tests.
type fakeRunner struct {
	resp *engine.TurnResponse
	err  error
	last engine.TurnRequest
}

func (f *fakeRunner) Run(_ context.Context, req engine.TurnRequest) (*engine.TurnResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeRunner) Stats() map[string]any {
	return map[string]any{"turns": int64(3)}
}

func newTestServer(runner TurnRunner) *Server {
	return NewServer("", 0, runner, persona.Default(), events.New(), nil)
}

func TestHandleTurn(t *testing.T) {
	runner := &fakeRunner{resp: &engine.TurnResponse{
		ThreadID: "t1",
		Reply:    "hello there",
		Model:    "text-model",
		Rounds:   1,
	}}
	srv := httptest.NewServer(newTestServer(runner).Handler())
	defer srv.Close()

	body := `{"thread_id": "t1", "text": "hi", "user": {"username": "sam", "intimacy": 3}}`
	resp, err := http.Post(srv.URL+"/v1/turn", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out engine.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Reply != "hello there" {
		t.Errorf("reply = %q", out.Reply)
	}
	if runner.last.User.Username != "sam" {
		t.Errorf("user = %+v", runner.last.User)
	}
}

func TestHandleTurnEngineFailureIsGeneric(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("generation: ollama at 10.0.0.5 refused connection")}
	srv := httptest.NewServer(newTestServer(runner).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/turn", "application/json",
		strings.NewReader(`{"text": "hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.Error.Message, "10.0.0.5") || strings.Contains(out.Error.Message, "ollama") {
		t.Errorf("internal detail leaked to caller: %q", out.Error.Message)
	}
	if out.Error.Message == "" {
		t.Error("expected a generic failure message")
	}
}

func TestHandleTurnRejectsEmptyText(t *testing.T) {
	srv := httptest.NewServer(newTestServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/turn", "application/json",
		strings.NewReader(`{"text": "   "}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandleTurnRejectsBadJSON(t *testing.T) {
	srv := httptest.NewServer(newTestServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/turn", "application/json",
		strings.NewReader("{nope"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(newTestServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(newTestServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["turns"]; !ok {
		t.Errorf("stats missing turns: %v", out)
	}
	if _, ok := out["uptime"]; !ok {
		t.Errorf("stats missing uptime: %v", out)
	}
}

func TestPersonaRendersHTML(t *testing.T) {
	srv := httptest.NewServer(newTestServer(&fakeRunner{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/persona")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "<h1") {
		t.Errorf("expected rendered HTML, got %q", string(body)[:min(len(body), 80)])
	}
}
