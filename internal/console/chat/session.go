// Package chat holds the view-state of an interactive conversation with the agent.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
	"github.com/kart-io/pm-copilot/pkg/validator"
)

// Backend is the part of the copilot client a chat session needs.
type Backend interface {
	Chat(ctx context.Context, req *v1.ChatRequest, opts ...copilot.RequestOption) (*v1.ChatResponse, error)
	GetHistory(ctx context.Context, opts ...copilot.RequestOption) (*v1.HistoryResponse, error)
}

// Turn is one rendered message of the transcript.
type Turn struct {
	Role      v1.Role   `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Sources   []string  `json:"sources,omitempty" yaml:"sources,omitempty"`
	Failed    bool      `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Session is a conversation transcript plus its in-flight guard.
// It is safe for concurrent use.
type Session struct {
	backend        Backend
	validator      *validator.Validator
	lang           string
	includeSources bool
	historySync    bool
	now            func() time.Time

	guard view.ActionGuard
	mu    sync.RWMutex
	turns []Turn
}

// Option configures a Session.
type Option func(*Session)

// WithIncludeSources controls whether answers cite their sources.
func WithIncludeSources(include bool) Option {
	return func(s *Session) {
		s.includeSources = include
	}
}

// WithLang selects the language of validation messages.
func WithLang(lang string) Option {
	return func(s *Session) {
		s.lang = lang
	}
}

// WithHistorySync makes every answered turn re-read the server history so
// the transcript follows the backend rather than local bookkeeping.
func WithHistorySync(sync bool) Option {
	return func(s *Session) {
		s.historySync = sync
	}
}

// WithClock sets the time source used to stamp user turns.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates an empty session.
func NewSession(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:        backend,
		validator:      validator.Global(),
		lang:           validator.LangEN,
		includeSources: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the transcript with the server-side history.
func (s *Session) Load(ctx context.Context) error {
	history, err := s.backend.GetHistory(ctx)
	if err != nil {
		return err
	}

	turns := make([]Turn, 0, history.Len())
	if history != nil {
		for _, msg := range history.History {
			turns = append(turns, Turn{Role: msg.Role, Content: msg.Content})
		}
	}

	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
	return nil
}

// Send submits one message and returns the assistant turn.
//
// The message is sent as typed. Blank input fails validation without a
// network call. While a previous message is pending Send returns
// view.ErrBusy. The user turn is appended
// before the call and stays in the transcript even when the call fails.
func (s *Session) Send(ctx context.Context, input string) (Turn, error) {
	req := &v1.ChatRequest{
		Message:        input,
		IncludeSources: v1.Bool(s.includeSources),
	}
	if errs := s.validator.ValidateWithLang(req, s.lang); errs != nil {
		return Turn{}, errs
	}

	if !s.guard.TryBegin() {
		return Turn{}, view.ErrBusy
	}
	defer s.guard.End()

	s.append(Turn{Role: v1.RoleUser, Content: req.Message, Timestamp: s.now()})

	resp, err := s.backend.Chat(ctx, req)
	if err != nil {
		logger.Debugw("Chat turn failed", "error", err.Error())
		return Turn{}, err
	}

	turn := Turn{
		Role:      v1.RoleAssistant,
		Content:   resp.Answer,
		Timestamp: unixSeconds(resp.Timestamp),
		Failed:    resp.Failed(),
	}
	for _, src := range resp.Sources {
		turn.Sources = append(turn.Sources, view.SourceBadge(src))
	}
	s.append(turn)

	if s.historySync {
		s.resync(ctx, turn)
	}
	return turn, nil
}

// resync replaces the transcript with the server history once the history
// ends with last. Turns matching the local tail keep their timestamps and
// sources. Otherwise the local transcript stays as it is.
func (s *Session) resync(ctx context.Context, last Turn) {
	history, err := s.backend.GetHistory(ctx)
	if err != nil {
		logger.Debugw("History sync failed", "error", err.Error())
		return
	}
	if history.Len() == 0 {
		return
	}
	msgs := history.History
	if tail := msgs[len(msgs)-1]; tail.Role != last.Role || tail.Content != last.Content {
		logger.Debugw("History does not end with the latest answer, keeping local transcript")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]Turn, len(msgs))
	offset := len(s.turns) - len(msgs)
	for i, msg := range msgs {
		turns[i] = Turn{Role: msg.Role, Content: msg.Content}
		if j := offset + i; j >= 0 && j < len(s.turns) {
			if local := s.turns[j]; local.Role == msg.Role && local.Content == msg.Content {
				turns[i] = local
			}
		}
	}
	s.turns = turns
}

// Pending reports whether a message is awaiting its answer.
func (s *Session) Pending() bool {
	return s.guard.Busy()
}

// Transcript returns a copy of the turns so far.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.turns...)
}

func (s *Session) append(t Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()
}

func unixSeconds(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
