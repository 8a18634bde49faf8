package view

import (
	"fmt"

	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
)

// History panel texts.
const (
	EmptyHistoryText   = "No conversation history"
	ClearHistoryPrompt = "Are you sure you want to clear all conversation history? This action cannot be undone."
)

// HistoryEntry is one numbered turn.
type HistoryEntry struct {
	Label   string  `json:"label" yaml:"label"`
	Speaker string  `json:"speaker" yaml:"speaker"`
	Role    v1.Role `json:"role" yaml:"role"`
	Content string  `json:"content" yaml:"content"`
}

// HistoryView is the history panel.
type HistoryView struct {
	Entries  []HistoryEntry `json:"entries" yaml:"entries"`
	CanClear bool           `json:"can_clear" yaml:"can_clear"`
}

// Speaker names the author of a turn.
func Speaker(role v1.Role) string {
	if role == v1.RoleUser {
		return "You"
	}
	return "Assistant"
}

// NewHistoryView numbers the turns from 1 in server order. Clearing is offered
// only when there is something to clear.
func NewHistoryView(resp *v1.HistoryResponse) HistoryView {
	hv := HistoryView{Entries: make([]HistoryEntry, 0, resp.Len())}
	if resp == nil {
		return hv
	}

	for i, msg := range resp.History {
		hv.Entries = append(hv.Entries, HistoryEntry{
			Label:   fmt.Sprintf("Message #%d", i+1),
			Speaker: Speaker(msg.Role),
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	hv.CanClear = len(hv.Entries) > 0
	return hv
}
