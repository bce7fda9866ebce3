package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qabot/internal/adapter/analyzer"
	"qabot/internal/adapter/embedding"
	"qabot/internal/adapter/llm"
	"qabot/internal/adapter/memstore"
	"qabot/internal/domain"
	"qabot/internal/port"
	"qabot/internal/usecase"
)

type staticReader []domain.KnowledgeEntry

func (r staticReader) Read(ctx context.Context) ([]domain.KnowledgeEntry, error) { return r, nil }
func (r staticReader) Sources() ([]string, error)                                { return nil, nil }

func newTestServer(t *testing.T) (*httptest.Server, *memstore.MemoryStore) {
	t.Helper()
	return newTestServerWith(t, llm.EchoCompleter{}, 0)
}

func newTestServerWith(t *testing.T, completer port.Completer, turnTimeout time.Duration) (*httptest.Server, *memstore.MemoryStore) {
	t.Helper()
	emb, err := embedding.NewHashEmbedder(analyzer.NewTokenizer(true), 384)
	if err != nil {
		t.Fatal(err)
	}
	reader := staticReader{
		domain.NewKnowledgeEntry("What is your name?", "Madhuri"),
		domain.NewKnowledgeEntry("What do you study?", "Computer Science"),
	}
	corpus, err := usecase.NewIndexUseCase(reader, emb, 0).Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	holder := usecase.NewCorpusHolder(corpus)
	store := memstore.NewMemoryStore()
	chat := usecase.NewChatUseCase(
		usecase.NewRetrieveUseCase(holder, emb),
		usecase.NewRephraseUseCase(completer, usecase.DefaultPersona()),
		store,
	).WithAnswerTimeout(turnTimeout)

	srv := New(chat, holder, &Config{Version: "test", TurnTimeout: turnTimeout})
	ts := httptest.NewUnstartedServer(srv.Handler())
	ts.Config.WriteTimeout = srv.writeTimeout
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, store
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.ID == "" {
		t.Fatal("expected a session id")
	}
	return body.ID
}

func postMessage(t *testing.T, ts *httptest.Server, id, content string) (*http.Response, messageResponse) {
	t.Helper()
	payload, _ := json.Marshal(messageRequest{Content: content})
	resp, err := http.Post(ts.URL+"/api/sessions/"+id+"/messages", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body messageResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
	}
	return resp, body
}

func TestServer_ConversationFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	id := createSession(t, ts)

	resp, body := postMessage(t, ts, id, "What's your name?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Reply.Role != domain.RoleAssistant {
		t.Errorf("expected assistant reply, got %s", body.Reply.Role)
	}
	if want := "**Malavathu Madhuri**:\nMadhuri"; body.Reply.Content != want {
		t.Errorf("reply = %q, want %q", body.Reply.Content, want)
	}
	if body.Match == nil || body.Match.Position != 0 {
		t.Errorf("expected match at position 0, got %+v", body.Match)
	}

	hresp, err := http.Get(ts.URL + "/api/sessions/" + id + "/messages")
	if err != nil {
		t.Fatal(err)
	}
	defer hresp.Body.Close()
	var history historyResponse
	if err := json.NewDecoder(hresp.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if len(history.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history.Turns))
	}
	if history.Turns[0].Content != "What's your name?" {
		t.Errorf("unexpected first turn %q", history.Turns[0].Content)
	}
}

func TestServer_UnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := postMessage(t, ts, "does-not-exist", "hi")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_ResumesStoredSession(t *testing.T) {
	ts, store := newTestServer(t)
	turn := domain.ConversationTurn{Role: domain.RoleUser, Content: "earlier"}
	if err := store.Append(context.Background(), "persisted", turn); err != nil {
		t.Fatal(err)
	}

	resp, _ := postMessage(t, ts, "persisted", "What do you study?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected stored session to resume, got %d", resp.StatusCode)
	}
}

func TestServer_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t)
	id := createSession(t, ts)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"empty content", `{"content": "   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/sessions/"+id+"/messages", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestServer_ResetSession(t *testing.T) {
	ts, store := newTestServer(t)
	id := createSession(t, ts)
	postMessage(t, ts, id, "What's your name?")

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	turns, _ := store.History(context.Background(), id)
	if len(turns) != 0 {
		t.Errorf("expected empty transcript, got %d turns", len(turns))
	}
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || body.Entries != 2 || body.Version != "test" {
		t.Errorf("unexpected health %+v", body)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

// stallingCompleter holds every call until the caller gives up.
type stallingCompleter struct{}

func (stallingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stallingCompleter) ModelName() string { return "stalling" }

func TestServer_SlowModelGetsErrorReply(t *testing.T) {
	ts, store := newTestServerWith(t, stallingCompleter{}, 100*time.Millisecond)
	id := createSession(t, ts)

	resp, body := postMessage(t, ts, id, "What is your name?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(body.Reply.Content, "An error occurred: ") {
		t.Errorf("expected an error reply, got %q", body.Reply.Content)
	}
	if body.Error == "" {
		t.Error("expected the error field to be set")
	}

	turns, err := store.History(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Errorf("expected both turns stored, got %d", len(turns))
	}
}

func TestNew_WriteTimeoutOutlastsTurn(t *testing.T) {
	tests := []struct {
		turn time.Duration
		want time.Duration
	}{
		{0, defaultWriteTimeout},
		{90 * time.Second, 90*time.Second + writeMargin},
		{5 * time.Minute, 5*time.Minute + writeMargin},
	}
	for _, tt := range tests {
		srv := New(nil, usecase.NewCorpusHolder(nil), &Config{TurnTimeout: tt.turn})
		if srv.writeTimeout != tt.want {
			t.Errorf("turn %s: write timeout %s, want %s", tt.turn, srv.writeTimeout, tt.want)
		}
		if tt.turn > 0 && srv.writeTimeout <= tt.turn {
			t.Errorf("turn %s: write timeout must exceed the turn deadline", tt.turn)
		}
	}
}
