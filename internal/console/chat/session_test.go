package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
	"github.com/kart-io/pm-copilot/pkg/validator"
)

type stubBackend struct {
	mu       sync.Mutex
	requests []*v1.ChatRequest
	release  chan struct{}
	chatErr  error
	history  *v1.HistoryResponse
}

func (b *stubBackend) Chat(ctx context.Context, req *v1.ChatRequest, _ ...copilot.RequestOption) (*v1.ChatResponse, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.release != nil {
		<-b.release
	}
	if b.chatErr != nil {
		return nil, b.chatErr
	}
	return &v1.ChatResponse{
		Answer:    "Here are the notes...",
		Question:  req.Message,
		Timestamp: 1718000000.5,
		Sources:   []v1.Document{{Type: "confluence", Source: "wiki/release"}},
	}, nil
}

func (b *stubBackend) GetHistory(context.Context, ...copilot.RequestOption) (*v1.HistoryResponse, error) {
	return b.history, nil
}

func (b *stubBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func TestSession_Send(t *testing.T) {
	backend := &stubBackend{}
	userAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession(backend, WithClock(func() time.Time { return userAt }))

	turn, err := s.Send(context.Background(), "  Draft release notes \n")
	require.NoError(t, err)

	assert.Equal(t, v1.RoleAssistant, turn.Role)
	assert.Equal(t, "Here are the notes...", turn.Content)
	assert.Equal(t, []string{"confluence - wiki/release"}, turn.Sources)
	assert.Equal(t, int64(1718000000), turn.Timestamp.Unix())

	require.Equal(t, 1, backend.calls())
	assert.Equal(t, "  Draft release notes \n", backend.requests[0].Message)
	assert.True(t, *backend.requests[0].IncludeSources)

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, v1.RoleUser, transcript[0].Role)
	assert.Equal(t, userAt, transcript[0].Timestamp)
}

func TestSession_RejectsBlankInput(t *testing.T) {
	backend := &stubBackend{}
	s := NewSession(backend)

	tests := []struct {
		input   string
		wantTag string
	}{
		{input: "", wantTag: "required"},
		{input: "   ", wantTag: validator.TagNotBlank},
		{input: "\t\n", wantTag: validator.TagNotBlank},
	}

	for _, tt := range tests {
		_, err := s.Send(context.Background(), tt.input)

		var verrs *validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "message", verrs.Errors[0].Field)
		assert.Equal(t, tt.wantTag, verrs.Errors[0].Tag, "input %q", tt.input)
	}

	assert.Equal(t, 0, backend.calls())
	assert.Empty(t, s.Transcript())
}

func TestSession_RejectsWhilePending(t *testing.T) {
	backend := &stubBackend{release: make(chan struct{})}
	s := NewSession(backend)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first")
		done <- err
	}()

	require.Eventually(t, s.Pending, time.Second, 5*time.Millisecond)

	_, err := s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, view.ErrBusy)

	close(backend.release)
	require.NoError(t, <-done)
	assert.False(t, s.Pending())
	assert.Equal(t, 1, backend.calls())
}

func TestSession_FailedTurnKeepsUserMessage(t *testing.T) {
	backend := &stubBackend{chatErr: &copilot.RequestError{Message: "Agent not initialized", StatusCode: 503}}
	s := NewSession(backend, WithIncludeSources(false))

	_, err := s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "Agent not initialized", err.Error())

	transcript := s.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "hello", transcript[0].Content)
	assert.False(t, *backend.requests[0].IncludeSources)
	assert.False(t, s.Pending())
}

func TestSession_Load(t *testing.T) {
	backend := &stubBackend{history: &v1.HistoryResponse{History: []v1.HistoryMessage{
		{Role: v1.RoleUser, Content: "q"},
		{Role: v1.RoleAssistant, Content: "a"},
	}}}
	s := NewSession(backend)

	require.NoError(t, s.Load(context.Background()))
	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "a", transcript[1].Content)

	// the copy is detached from session state
	transcript[0].Content = "changed"
	assert.Equal(t, "q", s.Transcript()[0].Content)
}

func TestSession_LangZH(t *testing.T) {
	s := NewSession(&stubBackend{}, WithLang(validator.LangZH))

	_, err := s.Send(context.Background(), " ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不能为空白")
}

func TestSession_HistorySync(t *testing.T) {
	userAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		history     *v1.HistoryResponse
		wantContent []string
	}{
		{
			name: "server history wins",
			history: &v1.HistoryResponse{History: []v1.HistoryMessage{
				{Role: v1.RoleUser, Content: "asked elsewhere"},
				{Role: v1.RoleAssistant, Content: "answered elsewhere"},
				{Role: v1.RoleUser, Content: "Draft"},
				{Role: v1.RoleAssistant, Content: "Here are the notes..."},
			}},
			wantContent: []string{"asked elsewhere", "answered elsewhere", "Draft", "Here are the notes..."},
		},
		{
			name: "stale history is ignored",
			history: &v1.HistoryResponse{History: []v1.HistoryMessage{
				{Role: v1.RoleUser, Content: "asked elsewhere"},
			}},
			wantContent: []string{"Draft", "Here are the notes..."},
		},
		{
			name:        "no history",
			wantContent: []string{"Draft", "Here are the notes..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{history: tt.history}
			s := NewSession(backend, WithHistorySync(true), WithClock(func() time.Time { return userAt }))

			_, err := s.Send(context.Background(), "Draft")
			require.NoError(t, err)

			transcript := s.Transcript()
			var got []string
			for _, turn := range transcript {
				got = append(got, turn.Content)
			}
			assert.Equal(t, tt.wantContent, got)

			// the local tail keeps what the history endpoint does not carry
			n := len(transcript)
			assert.Equal(t, userAt, transcript[n-2].Timestamp)
			assert.Equal(t, []string{"confluence - wiki/release"}, transcript[n-1].Sources)
		})
	}
}
