package view

import (
	"sort"

	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
)

// Search display limits.
const (
	ContentPreviewLen  = 300
	MetadataBadgeCount = 5
	MetadataValueLen   = 20
)

// MetadataBadge is one key/value chip under a document.
type MetadataBadge struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// String renders the badge as "key: value".
func (b MetadataBadge) String() string {
	return b.Key + ": " + b.Value
}

// DocumentCard is one search hit.
type DocumentCard struct {
	Rank     int             `json:"rank" yaml:"rank"`
	Type     string          `json:"type" yaml:"type"`
	Source   string          `json:"source" yaml:"source"`
	Content  string          `json:"content" yaml:"content"`
	Metadata []MetadataBadge `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SearchView is the document search panel.
type SearchView struct {
	Query     string         `json:"query" yaml:"query"`
	Documents []DocumentCard `json:"documents" yaml:"documents"`
}

// Empty reports whether the search found nothing.
func (v SearchView) Empty() bool {
	return len(v.Documents) == 0
}

// NewSearchView builds the search panel from a search response.
func NewSearchView(resp *v1.SearchResponse) SearchView {
	if resp == nil {
		return SearchView{Documents: []DocumentCard{}}
	}

	sv := SearchView{
		Query:     resp.Query,
		Documents: make([]DocumentCard, 0, len(resp.Documents)),
	}
	for i, doc := range resp.Documents {
		sv.Documents = append(sv.Documents, DocumentCard{
			Rank:     i + 1,
			Type:     doc.Type,
			Source:   doc.Source,
			Content:  Truncate(doc.Content, ContentPreviewLen),
			Metadata: metadataBadges(doc.Metadata),
		})
	}
	return sv
}

// metadataBadges returns the first badges in key order.
func metadataBadges(metadata map[string]any) []MetadataBadge {
	if len(metadata) == 0 {
		return nil
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > MetadataBadgeCount {
		keys = keys[:MetadataBadgeCount]
	}

	badges := make([]MetadataBadge, 0, len(keys))
	for _, k := range keys {
		badges = append(badges, MetadataBadge{
			Key:   k,
			Value: Truncate(Stringify(metadata[k]), MetadataValueLen),
		})
	}
	return badges
}

// SourceBadge renders a chat citation as "type - source".
func SourceBadge(src v1.Source) string {
	return src.Type + " - " + src.Source
}
