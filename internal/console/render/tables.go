package render

import (
	"fmt"
	"strings"

	"github.com/kart-io/pm-copilot/internal/console/chat"
	"github.com/kart-io/pm-copilot/internal/console/dashboard"
	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
)

// Search panel texts.
const (
	NoDocumentsText = "No documents found"
	emptyCell       = "-"
)

func (p *Printer) printTable(v any) error {
	switch t := v.(type) {
	case view.HealthView:
		return p.health(t)
	case view.StatsView:
		return p.stats(t)
	case view.SearchView:
		return p.search(t)
	case view.HistoryView:
		return p.history(t)
	case chat.Turn:
		return p.turn(t)
	case []chat.Turn:
		for _, turn := range t {
			if err := p.turn(turn); err != nil {
				return err
			}
		}
		return nil
	case dashboard.View:
		return p.dashboard(t)
	case *v1.ClearHistoryResponse:
		p.Println(t.Message)
		return nil
	default:
		return fmt.Errorf("no table layout for %T (use json or yaml)", v)
	}
}

func (p *Printer) health(h view.HealthView) error {
	agent := "no"
	if h.AgentInitialized {
		agent = "yes"
	}
	if h.Status == view.HealthUnknown {
		agent = emptyCell
	}
	errText := h.Error
	if errText == "" {
		errText = emptyCell
	}
	return p.table(
		[]string{"Status", "Agent Initialized", "Error"},
		[][]string{{h.Label, agent, errText}},
	)
}

func (p *Printer) stats(s view.StatsView) error {
	rows := make([][]string, 0, len(s.Tiles))
	for _, tile := range s.Tiles {
		rows = append(rows, []string{tile.Title, tile.Value, tile.Detail})
	}
	if err := p.table([]string{"Metric", "Value", "Detail"}, rows); err != nil {
		return err
	}

	p.Println()
	p.Println("Storage Used:", s.StorageUsed)
	p.Println(s.Utilization)
	p.Println()

	if len(s.Namespaces) == 0 {
		p.Println(view.NoNamespacesText)
		return nil
	}
	rows = rows[:0]
	for _, ns := range s.Namespaces {
		rows = append(rows, []string{ns.Name, ns.Vectors})
	}
	return p.table([]string{"Namespace", "Vectors"}, rows)
}

func (p *Printer) search(s view.SearchView) error {
	if s.Empty() {
		p.Println(NoDocumentsText)
		return nil
	}

	fmt.Fprintf(p.w, "Search Results (%d found)\n", len(s.Documents))
	for _, doc := range s.Documents {
		p.Println()
		fmt.Fprintf(p.w, "%d. [%s] %s\n", doc.Rank, doc.Type, doc.Source)
		p.Println(indent(doc.Content))
		if len(doc.Metadata) > 0 {
			badges := make([]string, 0, len(doc.Metadata))
			for _, b := range doc.Metadata {
				badges = append(badges, b.String())
			}
			p.Println("   Metadata:", strings.Join(badges, ", "))
		}
	}
	return nil
}

func (p *Printer) history(h view.HistoryView) error {
	if len(h.Entries) == 0 {
		p.Println(view.EmptyHistoryText)
		return nil
	}

	rows := make([][]string, 0, len(h.Entries))
	for _, e := range h.Entries {
		rows = append(rows, []string{e.Label, e.Speaker, oneLine(e.Content)})
	}
	return p.table([]string{"Message", "Speaker", "Content"}, rows)
}

func (p *Printer) turn(t chat.Turn) error {
	speaker := view.Speaker(t.Role)
	if t.Failed {
		speaker += " (error)"
	}
	fmt.Fprintf(p.w, "%s: %s\n", speaker, t.Content)
	if len(t.Sources) > 0 {
		fmt.Fprintf(p.w, "Sources (%d): %s\n", len(t.Sources), strings.Join(t.Sources, ", "))
	}
	return nil
}

func (p *Printer) dashboard(d dashboard.View) error {
	if err := p.health(d.Health); err != nil {
		return err
	}

	if d.Stats != nil {
		p.Println()
		if d.Stats.Error != "" {
			p.Println("Stats error:", d.Stats.Error)
		} else if err := p.stats(*d.Stats.View); err != nil {
			return err
		}
	}

	if d.History != nil {
		p.Println()
		if d.History.Error != "" {
			p.Println("History error:", d.History.Error)
		} else if err := p.history(*d.History.View); err != nil {
			return err
		}
	}
	return nil
}

func indent(s string) string {
	return "   " + strings.ReplaceAll(s, "\n", "\n   ")
}

// oneLine keeps table rows on a single line.
func oneLine(s string) string {
	return view.Truncate(strings.Join(strings.Fields(s), " "), 80)
}
