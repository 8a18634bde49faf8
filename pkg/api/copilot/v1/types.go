// Package v1 defines the JSON wire types exchanged with the PM Copilot backend.
//
// Every response value is treated as immutable once decoded: consumers replace
// their view-state with freshly fetched values instead of patching old ones.
package v1

import (
	"encoding/json"
	"math"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn written by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the agent.
	RoleAssistant Role = "assistant"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string `json:"message" validate:"required,notblank"`
	IncludeSources *bool  `json:"include_sources,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Answer    string     `json:"answer"`
	Question  string     `json:"question"`
	Timestamp float64    `json:"timestamp"`
	Sources   []Document `json:"sources,omitempty"`
	Error     *bool      `json:"error,omitempty"`
}

// Failed reports whether the backend flagged the answer as an error turn.
func (r *ChatResponse) Failed() bool {
	return r != nil && r.Error != nil && *r.Error
}

// Document is a retrieved knowledge-base excerpt with provenance metadata.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Type     string         `json:"type"`
	Source   string         `json:"source"`
}

// Source is a chat citation. It has the same shape as a search result.
type Source = Document

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query" validate:"required,notblank"`
	K     *int   `json:"k,omitempty" validate:"omitempty,min=1,max=100"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	Documents []Document `json:"documents"`
	Query     string     `json:"query"`
}

// StatsResponse is a read-only snapshot of the backing vector index.
type StatsResponse struct {
	IndexName        string         `json:"index_name"`
	TotalVectorCount int64          `json:"total_vector_count"`
	Dimension        int            `json:"dimension"`
	Namespaces       map[string]any `json:"namespaces"`
	IndexFullness    float64        `json:"index_fullness"`
}

// NamespaceSummary is the part of a namespace entry the console understands.
type NamespaceSummary struct {
	VectorCount int64 `json:"vector_count"`
}

// Namespace returns the summary of the named namespace. ok is false when the
// namespace is missing or its entry carries no numeric vector_count.
func (s *StatsResponse) Namespace(name string) (summary NamespaceSummary, ok bool) {
	if s == nil {
		return summary, false
	}
	info, ok := s.Namespaces[name].(map[string]any)
	if !ok {
		return summary, false
	}
	count, ok := toInt64(info["vector_count"])
	if !ok {
		return summary, false
	}
	return NamespaceSummary{VectorCount: count}, true
}

// toInt64 converts a decoded JSON number. Values that do not fit an int64
// are reported as not ok.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	// -2^63 is exact as a float64, 2^63 is the first value out of range.
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// HistoryMessage is one turn of the server-owned conversation log.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse is the body returned by GET /history.
type HistoryResponse struct {
	History []HistoryMessage `json:"history"`
}

// Len returns the number of turns in the history.
func (r *HistoryResponse) Len() int {
	if r == nil {
		return 0
	}
	return len(r.History)
}

// ClearHistoryResponse is the body returned by DELETE /history.
type ClearHistoryResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	AgentInitialized bool   `json:"agent_initialized"`
}

// ErrorResponse is the body the backend sends with a non-2xx status.
type ErrorResponse struct {
	Detail any `json:"detail,omitempty"`
}

// Bool returns a pointer to b, for optional request fields.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n, for optional request fields.
func Int(n int) *int { return &n }
