package view

import (
	"sort"
	"strconv"

	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
)

// Stats display constants.
const (
	UnknownIndexName     = "Unknown"
	DefaultNamespaceName = "default"
	NotAvailable         = "N/A"
	NoNamespacesText     = "No namespace information available"
	progressBarWidth     = 30
)

// Tile is one summary card.
type Tile struct {
	Title  string `json:"title" yaml:"title"`
	Value  string `json:"value" yaml:"value"`
	Detail string `json:"detail" yaml:"detail"`
}

// NamespaceRow is one entry of the namespaces list.
type NamespaceRow struct {
	Name    string `json:"name" yaml:"name"`
	Vectors string `json:"vectors" yaml:"vectors"`
}

// StatsView is the analytics panel.
type StatsView struct {
	Tiles       []Tile         `json:"tiles" yaml:"tiles"`
	StorageUsed string         `json:"storage_used" yaml:"storage_used"`
	Utilization string         `json:"utilization" yaml:"utilization"`
	Namespaces  []NamespaceRow `json:"namespaces" yaml:"namespaces"`
}

// FullnessTile renders index fullness for the summary tile, e.g. 45.7%.
func FullnessTile(fraction float64) string {
	return FormatPercent(fraction, 1)
}

// FullnessDetail renders index fullness for the utilization view, e.g. 45.67%.
func FullnessDetail(fraction float64) string {
	return FormatPercent(fraction, 2)
}

// NewStatsView builds the analytics panel from a stats snapshot.
func NewStatsView(s *v1.StatsResponse) StatsView {
	if s == nil {
		s = &v1.StatsResponse{}
	}

	indexName := s.IndexName
	if indexName == "" {
		indexName = UnknownIndexName
	}

	sv := StatsView{
		Tiles: []Tile{
			{Title: "Total Documents", Value: FormatCount(s.TotalVectorCount), Detail: "Vectors in knowledge base"},
			{Title: "Index Status", Value: "Active", Detail: indexName},
			{Title: "Vector Dimension", Value: strconv.Itoa(s.Dimension), Detail: "Embedding dimensions"},
			{Title: "Index Fullness", Value: FullnessTile(s.IndexFullness), Detail: "Storage utilization"},
		},
		StorageUsed: FullnessDetail(s.IndexFullness),
		Utilization: ProgressBar(s.IndexFullness, progressBarWidth),
		Namespaces:  make([]NamespaceRow, 0, len(s.Namespaces)),
	}

	names := make([]string, 0, len(s.Namespaces))
	for name := range s.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		row := NamespaceRow{Name: name, Vectors: NotAvailable}
		if name == "" {
			row.Name = DefaultNamespaceName
		}
		if ns, ok := s.Namespace(name); ok {
			row.Vectors = strconv.FormatInt(ns.VectorCount, 10) + " vectors"
		}
		sv.Namespaces = append(sv.Namespaces, row)
	}

	return sv
}
