package dashboard

import (
	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
)

// StatsPane is the analytics pane or the reason it could not be loaded.
type StatsPane struct {
	View  *view.StatsView `json:"view,omitempty" yaml:"view,omitempty"`
	Error string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// HistoryPane is the history pane or the reason it could not be loaded.
type HistoryPane struct {
	View  *view.HistoryView `json:"view,omitempty" yaml:"view,omitempty"`
	Error string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// View is the rendered dashboard. A nil pane has not been loaded yet.
type View struct {
	Health  view.HealthView `json:"health" yaml:"health"`
	Stats   *StatsPane      `json:"stats,omitempty" yaml:"stats,omitempty"`
	History *HistoryPane    `json:"history,omitempty" yaml:"history,omitempty"`
}

// View renders a snapshot.
func (s Snapshot) View() View {
	return View{
		Health:  view.NewHealthView(s.Health, s.TakenAt),
		Stats:   statsPane(s.Stats),
		History: historyPane(s.History),
	}
}

func statsPane(r copilot.Result[*v1.StatsResponse]) *StatsPane {
	if !r.IsOk() {
		return &StatsPane{Error: r.Err().Error()}
	}
	sv := view.NewStatsView(r.Value())
	return &StatsPane{View: &sv}
}

func historyPane(r copilot.Result[*v1.HistoryResponse]) *HistoryPane {
	if !r.IsOk() {
		return &HistoryPane{Error: r.Err().Error()}
	}
	hv := view.NewHistoryView(r.Value())
	return &HistoryPane{View: &hv}
}
