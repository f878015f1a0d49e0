package protocol

import (
	"encoding/json"
	"strings"
)

// ResponseShape discriminates the two payload layouts the model returns.
// Resolved once at parse time; call sites switch on the discriminator and
// never re-sniff the JSON.
type ResponseShape int

const (
	ShapeUnknown ResponseShape = iota
	// ShapeGroups carries one data.groups[] entry per issue cluster.
	ShapeGroups
	// ShapeLegacyFlat carries a single flat ticket list at the data level,
	// as query answers do.
	ShapeLegacyFlat
)

// StringID is a ticket identifier that tolerates JSON numbers on the wire.
// Identifiers are always compared as strings.
type StringID string

func (s *StringID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = StringID(n.String())
	return nil
}

func (s StringID) String() string { return string(s) }

// AnalysisResponse is the semi-trusted payload returned by the model.
// Counts and arrays may disagree; reconciliation is mandatory before use.
type AnalysisResponse struct {
	ResponseType   string       `json:"response_type"`
	Summary        string       `json:"summary"`
	LargeResultSet bool         `json:"large_result_set"` // advisory, never authoritative
	Data           AnalysisData `json:"data"`
	Metadata       Metadata     `json:"metadata"`

	Shape ResponseShape `json:"-"`
}

// AnalysisData is the data section of an analysis response. Either Groups is
// populated (clustering) or the flat fields are (legacy query answers).
type AnalysisData struct {
	Answer    string       `json:"answer,omitempty"`
	Groups    []Group      `json:"groups,omitempty"`
	Tickets   []TicketStub `json:"tickets,omitempty"`
	TicketIDs []StringID   `json:"ticket_ids,omitempty"`
	Count     int          `json:"count,omitempty"`
}

// Group is a model-proposed cluster of tickets sharing an underlying issue.
// A group has no identity beyond its position; order is preserved as returned.
type Group struct {
	IssueType string       `json:"issue_type"`
	TicketIDs []StringID   `json:"ticket_ids,omitempty"`
	Tickets   []TicketStub `json:"tickets,omitempty"`
	Count     int          `json:"count,omitempty"`
}

// TicketStub is the model's own thin rendition of a ticket.
type TicketStub struct {
	TicketID    StringID `json:"ticket_id"`
	Subject     string   `json:"subject,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Metadata carries the model's bookkeeping about an analysis call.
type Metadata struct {
	TotalTicketsAnalyzed int    `json:"total_tickets_analyzed,omitempty"`
	GroupsFound          int    `json:"groups_found,omitempty"`
	Query                string `json:"query,omitempty"`
}

// NormalizedGroups returns the response's groups regardless of shape. For the
// legacy flat shape the single implicit group is synthesized with flatLabel.
func (r *AnalysisResponse) NormalizedGroups(flatLabel string) []Group {
	switch r.Shape {
	case ShapeGroups:
		return r.Data.Groups
	case ShapeLegacyFlat:
		return []Group{{
			IssueType: flatLabel,
			TicketIDs: r.Data.TicketIDs,
			Tickets:   r.Data.Tickets,
			Count:     r.Data.Count,
		}}
	default:
		return nil
	}
}

// TimeWindow is a lookback window extracted from free-form query text.
// Derived once per query and consumed by the ticket fetch.
type TimeWindow struct {
	HasTimeReference bool   `json:"has_time_reference"`
	Hours            int    `json:"hours"`
	Description      string `json:"description"`
	CleanedQuery     string `json:"cleaned_query,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
}
