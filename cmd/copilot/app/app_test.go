package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pm-copilot/cmd/copilot/app/options"
	"github.com/kart-io/pm-copilot/internal/console/chat"
	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
	"github.com/kart-io/pm-copilot/pkg/utils/json"
)

type fakeBackend struct {
	mu        sync.Mutex
	history   []v1.HistoryMessage
	chats     []v1.ChatRequest
	searches  []v1.SearchRequest
	deletes   int
	requestID string
	statsErr  bool
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.requestID = r.Header.Get(copilot.HeaderRequestID)

	switch {
	case r.Method == http.MethodGet && r.URL.Path == copilot.PathHealth:
		writeJSON(w, http.StatusOK, v1.HealthResponse{Status: "healthy", AgentInitialized: true})

	case r.Method == http.MethodPost && r.URL.Path == copilot.PathChat:
		var req v1.ChatRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, v1.ErrorResponse{Detail: "bad body"})
			return
		}
		fb.chats = append(fb.chats, req)
		answer := "Here are the notes..."
		fb.history = append(fb.history,
			v1.HistoryMessage{Role: v1.RoleUser, Content: req.Message},
			v1.HistoryMessage{Role: v1.RoleAssistant, Content: answer},
		)
		resp := v1.ChatResponse{Answer: answer, Question: req.Message, Timestamp: 1700000000}
		if req.IncludeSources != nil && *req.IncludeSources {
			resp.Sources = []v1.Document{{Type: "pdf", Source: "release.pdf"}}
		}
		writeJSON(w, http.StatusOK, resp)

	case r.Method == http.MethodPost && r.URL.Path == copilot.PathSearch:
		var req v1.SearchRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, v1.ErrorResponse{Detail: "bad body"})
			return
		}
		fb.searches = append(fb.searches, req)
		docs := make([]v1.Document, 0, *req.K)
		for i := 0; i < *req.K; i++ {
			docs = append(docs, v1.Document{Content: "roadmap item", Type: "md", Source: "roadmap.md"})
		}
		writeJSON(w, http.StatusOK, v1.SearchResponse{Documents: docs, Query: req.Query})

	case r.Method == http.MethodGet && r.URL.Path == copilot.PathStats:
		if fb.statsErr {
			writeJSON(w, http.StatusInternalServerError, v1.ErrorResponse{Detail: "index unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, v1.StatsResponse{
			IndexName:        "pm-docs",
			TotalVectorCount: 1234,
			Dimension:        1536,
			IndexFullness:    0.4567,
			Namespaces:       map[string]any{"": map[string]any{"vector_count": 1234}},
		})

	case r.Method == http.MethodGet && r.URL.Path == copilot.PathHistory:
		writeJSON(w, http.StatusOK, v1.HistoryResponse{History: append([]v1.HistoryMessage{}, fb.history...)})

	case r.Method == http.MethodDelete && r.URL.Path == copilot.PathHistory:
		fb.deletes++
		fb.history = nil
		writeJSON(w, http.StatusOK, v1.ClearHistoryResponse{Message: "Conversation history cleared"})

	default:
		writeJSON(w, http.StatusNotFound, v1.ErrorResponse{Detail: "Not Found"})
	}
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (fb *fakeBackend) seed(history []v1.HistoryMessage, statsErr bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.history = history
	fb.statsErr = statsErr
}

type backendState struct {
	history   []v1.HistoryMessage
	chats     []v1.ChatRequest
	searches  []v1.SearchRequest
	deletes   int
	requestID string
}

func (fb *fakeBackend) state() backendState {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return backendState{
		history:   append([]v1.HistoryMessage(nil), fb.history...),
		chats:     append([]v1.ChatRequest(nil), fb.chats...),
		searches:  append([]v1.SearchRequest(nil), fb.searches...),
		deletes:   fb.deletes,
		requestID: fb.requestID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, baseURL, stdin string, args ...string) result {
	t.Helper()

	var out, errOut bytes.Buffer
	c := &cli{
		opts:       options.NewOptions(),
		in:         strings.NewReader(stdin),
		out:        &out,
		errOut:     &errOut,
		clientOpts: []copilot.Option{copilot.WithBaseURL(baseURL)},
	}

	cmd := newApp(c).Command()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	c.cleanup()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestHealth(t *testing.T) {
	_, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "health")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Connected")
	assert.Contains(t, res.stdout, "yes")
}

func TestHealth_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := run(t, url, "", "health")
	require.NoError(t, res.err, "an unreachable backend is a status, not an error")
	assert.Contains(t, res.stdout, "Disconnected")
}

func TestChat_OneShot(t *testing.T) {
	fb, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "chat", "Draft", "release", "notes")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Assistant: Here are the notes...")
	assert.Contains(t, res.stdout, "Sources (1): pdf - release.pdf")

	st := fb.state()
	require.Len(t, st.chats, 1)
	assert.Equal(t, "Draft release notes", st.chats[0].Message)
	require.NotNil(t, st.chats[0].IncludeSources)
	assert.True(t, *st.chats[0].IncludeSources)
	assert.NotEmpty(t, st.requestID, "request ID header is on by default")
}

func TestChat_WithoutSources(t *testing.T) {
	fb, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "chat", "--sources=false", "hello")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "Sources")

	st := fb.state()
	require.Len(t, st.chats, 1)
	require.NotNil(t, st.chats[0].IncludeSources)
	assert.False(t, *st.chats[0].IncludeSources)
}

func TestChat_BlankMessage(t *testing.T) {
	fb, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "chat", "   ")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "validation failed")
	st := fb.state()
	assert.Empty(t, st.chats, "blank input never reaches the backend")
}

func TestChat_Interactive(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.seed([]v1.HistoryMessage{
		{Role: v1.RoleUser, Content: "earlier question"},
		{Role: v1.RoleAssistant, Content: "earlier answer"},
	}, false)

	res := run(t, srv.URL, "What ships next?\n\nexit\nignored\n", "chat")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "You: earlier question")
	assert.Contains(t, res.stdout, "Assistant: earlier answer")
	assert.Contains(t, res.stdout, "Assistant: Here are the notes...")

	st := fb.state()
	require.Len(t, st.chats, 1)
	assert.Equal(t, "What ships next?", st.chats[0].Message)
}

func TestChat_InteractiveStopsOnCancel(t *testing.T) {
	fb, srv := newFakeBackend(t)

	// stdin that never delivers a line
	stdin, stdinW := io.Pipe()
	t.Cleanup(func() { _ = stdinW.Close() })

	var out, errOut bytes.Buffer
	c := &cli{
		opts:       options.NewOptions(),
		in:         stdin,
		out:        &out,
		errOut:     &errOut,
		clientOpts: []copilot.Option{copilot.WithBaseURL(srv.URL)},
	}
	session := chat.NewSession(c.client())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.interactive(ctx, session) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("interactive chat kept waiting for input after cancellation")
	}
	assert.Empty(t, fb.state().chats)
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		wantK int
	}{
		{name: "default k", args: []string{"search", "roadmap"}, wantK: 10},
		{name: "explicit k", args: []string{"search", "roadmap", "-k", "3"}, wantK: 3},
		{name: "console default", args: []string{"search", "roadmap", "--console.search-k", "4"}, wantK: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, srv := newFakeBackend(t)

			res := run(t, srv.URL, "", append(tt.args, "-o", "json")...)
			require.NoError(t, res.err)

			st := fb.state()
			require.Len(t, st.searches, 1)
			require.NotNil(t, st.searches[0].K)
			assert.Equal(t, tt.wantK, *st.searches[0].K)

			var sv view.SearchView
			require.NoError(t, json.Unmarshal([]byte(res.stdout), &sv))
			assert.Equal(t, "roadmap", sv.Query)
			assert.Len(t, sv.Documents, tt.wantK)
		})
	}
}

func TestSearch_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "k out of range", args: []string{"search", "roadmap", "-k", "0"}, wantErr: "k"},
		{name: "blank query", args: []string{"search", "  ", "\t"}, wantErr: "query must not be blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, srv := newFakeBackend(t)

			res := run(t, srv.URL, "", tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.wantErr)
			assert.Empty(t, fb.state().searches)
		})
	}
}

func TestStats(t *testing.T) {
	_, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "stats")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "1,234")
	assert.Contains(t, res.stdout, "45.7%")
	assert.Contains(t, res.stdout, "Storage Used: 45.67%")
	assert.Contains(t, res.stdout, "1234 vectors")
}

func TestStats_BackendError(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.seed(nil, true)

	res := run(t, srv.URL, "", "stats")
	require.Error(t, res.err)
	assert.Equal(t, "index unavailable", res.err.Error())
}

func TestHistory_Empty(t *testing.T) {
	_, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "history")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, view.EmptyHistoryText)
}

func TestHistoryClear(t *testing.T) {
	seeded := []v1.HistoryMessage{
		{Role: v1.RoleUser, Content: "q"},
		{Role: v1.RoleAssistant, Content: "a"},
	}

	tests := []struct {
		name        string
		history     []v1.HistoryMessage
		stdin       string
		args        []string
		wantDeletes int
		wantStderr  string
	}{
		{name: "empty history", args: []string{"history", "clear", "--yes"}, wantStderr: view.EmptyHistoryText},
		{name: "declined", history: seeded, stdin: "n\n", args: []string{"history", "clear"}, wantStderr: "Aborted."},
		{name: "no answer", history: seeded, args: []string{"history", "clear"}, wantStderr: "Aborted."},
		{name: "confirmed", history: seeded, stdin: "yes\n", args: []string{"history", "clear"}, wantDeletes: 1, wantStderr: view.ClearHistoryPrompt},
		{name: "--yes", history: seeded, args: []string{"history", "clear", "--yes"}, wantDeletes: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, srv := newFakeBackend(t)
			fb.seed(tt.history, false)

			res := run(t, srv.URL, tt.stdin, tt.args...)
			require.NoError(t, res.err)
			st := fb.state()
			assert.Equal(t, tt.wantDeletes, st.deletes)
			if tt.wantStderr != "" {
				assert.Contains(t, res.stderr, tt.wantStderr)
			}
			if tt.wantDeletes > 0 {
				assert.Contains(t, res.stdout, "Conversation history cleared")
				assert.Empty(t, st.history)
			}
		})
	}
}

func TestDashboard_Snapshot(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.seed(nil, true)

	res := run(t, srv.URL, "", "dashboard", "-o", "json")
	require.NoError(t, res.err)

	var got struct {
		Health struct {
			Status string `json:"status"`
		} `json:"health"`
		Stats struct {
			Error string `json:"error"`
		} `json:"stats"`
		History struct {
			View struct {
				CanClear bool `json:"can_clear"`
			} `json:"view"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, "healthy", got.Health.Status)
	assert.Equal(t, "index unavailable", got.Stats.Error)
	assert.False(t, got.History.View.CanClear)
}

func TestInvalidOutput(t *testing.T) {
	_, srv := newFakeBackend(t)

	res := run(t, srv.URL, "", "stats", "-o", "xml")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "xml")
}
