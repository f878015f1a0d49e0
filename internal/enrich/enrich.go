// Package enrich joins model-referenced ticket identifiers against the
// authoritative records fetched from the source system, attaching fields the
// model never had reason to know.
package enrich

import (
	"log/slog"
	"sort"

	"github.com/zenwatch-io/zenwatch/internal/reconcile"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// Ticket is a display-ready ticket reference. Display-only; never written
// back to the source system.
type Ticket struct {
	ID            string
	Subject       string
	OrgID         string
	OrgName       string
	Assignee      string
	JiraTicketID  string
	DiscourseLink string
	Resolved      bool // false when the authoritative record was missing
}

// Group is a reconciled group with its ticket references enriched.
type Group struct {
	IssueType string
	Tickets   []Ticket
	Count     int
}

// OrgTally is one organization's share of a result set.
type OrgTally struct {
	OrgID   string
	OrgName string
	Count   int
}

// Groups enriches every reconciled group against the authoritative tickets.
// A missing join target keeps the model's bare stub and logs a warning; it
// degrades only that entry's display, never the run.
func Groups(groups []reconcile.Group, authoritative []protocol.Ticket, logger *slog.Logger) []Group {
	if logger == nil {
		logger = slog.Default()
	}

	lookup := make(map[string]protocol.Ticket, len(authoritative))
	for _, t := range authoritative {
		lookup[t.ID] = t
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		eg := Group{IssueType: g.IssueType, Count: g.Count}

		if len(g.Tickets) > 0 {
			for _, stub := range g.Tickets {
				eg.Tickets = append(eg.Tickets, fromStub(stub, lookup, logger))
			}
		} else {
			for _, id := range g.TicketIDs {
				eg.Tickets = append(eg.Tickets, fromStub(protocol.TicketStub{TicketID: id}, lookup, logger))
			}
		}

		logger.Info("enriched group", "issue_type", g.IssueType, "tickets", len(eg.Tickets))
		out = append(out, eg)
	}
	return out
}

// fromStub resolves one model reference. Attributes are attached one at a
// time, and only when the authoritative value is present; an empty
// authoritative assignee never overwrites anything.
func fromStub(stub protocol.TicketStub, lookup map[string]protocol.Ticket, logger *slog.Logger) Ticket {
	et := Ticket{
		ID:      stub.TicketID.String(),
		Subject: stub.Subject,
	}

	auth, ok := lookup[et.ID]
	if !ok {
		logger.Warn("no authoritative record for referenced ticket", "ticket", et.ID)
		return et
	}

	et.Resolved = true
	if auth.Subject != "" {
		et.Subject = auth.Subject
	}
	if auth.OrgID != "" {
		et.OrgID = auth.OrgID
	}
	if auth.OrgName != "" {
		et.OrgName = auth.OrgName
	}
	if auth.Assignee != "" {
		et.Assignee = auth.Assignee
	}
	if auth.Custom.JiraTicketID != "" {
		et.JiraTicketID = auth.Custom.JiraTicketID
	} else if auth.Custom.JiraID != "" {
		et.JiraTicketID = auth.Custom.JiraID
	}
	if auth.Custom.DiscourseLink != "" {
		et.DiscourseLink = auth.Custom.DiscourseLink
	}
	return et
}

// OrgAggregate tallies resolved tickets per organization across groups and
// returns the top N by tally plus the number of organizations left out.
// Large result sets never enumerate organizations in full; this bounds the
// rendered message before rendering begins. Ordering is deterministic:
// tally descending, then org ID.
func OrgAggregate(groups []Group, topN int) ([]OrgTally, int) {
	tallies := make(map[string]*OrgTally)
	for _, g := range groups {
		for _, t := range g.Tickets {
			if !t.Resolved || t.OrgID == "" {
				continue
			}
			entry, ok := tallies[t.OrgID]
			if !ok {
				entry = &OrgTally{OrgID: t.OrgID, OrgName: t.OrgName}
				tallies[t.OrgID] = entry
			}
			entry.Count++
		}
	}

	sorted := make([]OrgTally, 0, len(tallies))
	for _, t := range tallies {
		sorted = append(sorted, *t)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].OrgID < sorted[j].OrgID
	})

	if len(sorted) <= topN {
		return sorted, 0
	}
	return sorted[:topN], len(sorted) - topN
}
