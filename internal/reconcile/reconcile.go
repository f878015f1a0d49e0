// Package reconcile computes authoritative ticket counts for model-proposed
// groups. The model's self-reported numbers are fast but untrustworthy;
// measured array lengths guard against a wrong count over correct arrays.
package reconcile

import (
	"log/slog"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// Group is a model group with its reconciled count. The claimed count and
// both arrays are carried through unchanged for enrichment; Count is the
// authoritative value.
type Group struct {
	IssueType string
	TicketIDs []protocol.StringID
	Tickets   []protocol.TicketStub
	Count     int
}

// Result is the outcome of reconciling a full response.
type Result struct {
	Qualifying []Group // groups meeting the minimum floor, order preserved
	Dropped    int     // groups excluded by the floor or because they were empty
	Total      int     // sum of qualifying counts
	Large      bool    // recomputed, never taken from the model's flag
}

// Count returns the authoritative ticket count for a group. Precedence,
// first non-zero wins: reported count, stub array length, ID array length.
// The two arrays are alternate representations of the same set and are
// never summed.
func Count(g protocol.Group) int {
	if g.Count > 0 {
		return g.Count
	}
	if len(g.Tickets) > 0 {
		return len(g.Tickets)
	}
	return len(g.TicketIDs)
}

// All reconciles every group, drops those below the floor, and recomputes
// the large-result decision as total > largeThreshold. advisoryLarge is the
// model's own flag; it is never authoritative and only logged when it
// disagrees with the recomputed decision.
func All(groups []protocol.Group, floor, largeThreshold int, advisoryLarge bool, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	for _, g := range groups {
		count := Count(g)

		if reported := g.Count; reported > 0 {
			if measured := maxLen(len(g.Tickets), len(g.TicketIDs)); measured > 0 && measured != reported {
				logger.Info("group count disagreement, keeping reported count",
					"issue_type", g.IssueType,
					"reported", reported,
					"measured", measured,
				)
			}
		}

		if count == 0 {
			// A group the model could not tie to any ticket has nothing
			// to alert on.
			logger.Debug("dropping group with no identifiable tickets", "issue_type", g.IssueType)
			res.Dropped++
			continue
		}
		if count < floor {
			logger.Info("skipping group below minimum size",
				"issue_type", g.IssueType, "count", count, "floor", floor)
			res.Dropped++
			continue
		}

		res.Qualifying = append(res.Qualifying, Group{
			IssueType: g.IssueType,
			TicketIDs: g.TicketIDs,
			Tickets:   g.Tickets,
			Count:     count,
		})
		res.Total += count
	}

	res.Large = res.Total > largeThreshold
	if res.Large != advisoryLarge {
		logger.Info("large-result flag disagreement, recomputed decision wins",
			"advisory", advisoryLarge,
			"recomputed", res.Large,
			"total", res.Total,
			"threshold", largeThreshold,
		)
	}
	return res
}

func maxLen(a, b int) int {
	if a > b {
		return a
	}
	return b
}
