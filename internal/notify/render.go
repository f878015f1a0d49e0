package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zenwatch-io/zenwatch/internal/enrich"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// reserve is the room kept at the end of a listing block for the
// "... and N more" suffix.
const reserve = 50

// truncateReserve is the room kept when accumulating detailed entries.
const truncateReserve = 100

// Input carries everything the renderer needs for one notification.
// Rendering is a pure function of this input: the same input always yields
// a byte-identical message.
type Input struct {
	Kind    protocol.RunKind
	Query   string // query flow only
	Summary string // model summary, falls back to the issue type
	Groups  []enrich.Group
	Total   int
	Large   bool

	Window     *protocol.TimeWindow // query flow only
	OrgTallies []enrich.OrgTally    // large sets only, already capped
	OrgMore    int                  // organizations beyond the cap

	TicketBaseURL string // e.g. https://yourcompany.zendesk.com/agent/tickets
	GeneratedAt   time.Time
}

// Render produces a bounded message. Every truncation decision happens here,
// before assembly; a built message is never clipped afterwards, which could
// cut mid-entry and corrupt formatting.
func Render(in Input) Message {
	return Message{
		Title:   truncate(title(in), MaxHeaderLength),
		Body:    truncate(body(in), MaxTextLength),
		Listing: listing(in),
		Footer:  fmt.Sprintf("Generated at %s", in.GeneratedAt.Format("2006-01-02 15:04:05")),
	}
}

func title(in Input) string {
	if in.Kind == protocol.RunQuery {
		return fmt.Sprintf("📊 Query Results: %d Tickets Found", in.Total)
	}
	return fmt.Sprintf("🚨 Alert: %d Similar Support Tickets Detected", in.Total)
}

func body(in Input) string {
	main := in.Summary
	if main == "" && len(in.Groups) > 0 {
		main = in.Groups[0].IssueType
	}

	if in.Kind != protocol.RunQuery {
		return fmt.Sprintf("*Issue Type:* %s", main)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Query:* %s\n*Result:* %s", in.Query, main)

	if in.Window != nil {
		fmt.Fprintf(&b, "\n*Time Window:* %s", in.Window.Description)
		if in.Window.Reasoning != "" {
			fmt.Fprintf(&b, "\n*Note:* %s", in.Window.Reasoning)
		}
	}

	if in.Large {
		fmt.Fprintf(&b, "\n*Note:* Large result set (%d tickets) - showing ticket numbers only", in.Total)
		if len(in.OrgTallies) > 0 {
			b.WriteString("\n*Organizations:* ")
			parts := make([]string, 0, len(in.OrgTallies)+1)
			for _, org := range in.OrgTallies {
				if org.OrgName != "" {
					parts = append(parts, fmt.Sprintf("%s (%s): %d tickets", org.OrgName, org.OrgID, org.Count))
				} else {
					parts = append(parts, fmt.Sprintf("%s: %d tickets", org.OrgID, org.Count))
				}
			}
			if in.OrgMore > 0 {
				parts = append(parts, fmt.Sprintf("... and %d more organizations", in.OrgMore))
			}
			b.WriteString(strings.Join(parts, ", "))
		}
	}
	return b.String()
}

func listing(in Input) string {
	if len(in.Groups) == 0 {
		return ""
	}
	if in.Large {
		return "*Tickets:*\n" + compactListing(in.Groups, MaxTextLength-len("*Tickets:*\n"))
	}
	return "*Tickets:*\n" + detailedListing(in, MaxTextLength-len("*Tickets:*\n"))
}

// compactListing joins bare "#id" tokens with ", ". When the joined string
// exceeds the budget, items are included greedily left-to-right while the
// running length stays under budget-reserve, then an exact omission count is
// appended. Deterministic: same list, same order, same output.
func compactListing(groups []enrich.Group, budget int) string {
	var tokens []string
	for _, g := range groups {
		for _, t := range g.Tickets {
			tokens = append(tokens, "#"+t.ID)
		}
	}

	joined := strings.Join(tokens, ", ")
	if len(joined) <= budget {
		return joined
	}

	var visible []string
	length := 0
	for _, tok := range tokens {
		cost := len(tok)
		if len(visible) > 0 {
			cost += 2 // ", " separator
		}
		if length+cost >= budget-reserve {
			break
		}
		visible = append(visible, tok)
		length += cost
	}

	suffix := fmt.Sprintf("... and %d more", len(tokens)-len(visible))
	if len(visible) == 0 {
		return suffix
	}
	return strings.Join(visible, ", ") + " " + suffix
}

// entry is one detailed listing item: a primary line plus indented
// decoration sub-lines. Only primary lines count toward "N more tickets".
type entry struct {
	header  string // non-empty on the first entry of a group (multi-group layout)
	primary string
	subs    []string
}

func (e entry) text() string {
	s := e.primary
	for _, sub := range e.subs {
		s += "\n" + sub
	}
	if e.header != "" {
		s = e.header + "\n" + s
	}
	return s
}

// detailedListing renders one bulleted multi-line entry per ticket, with
// group headers when more than one group is present, truncating by whole
// entries against the budget.
func detailedListing(in Input, budget int) string {
	multiGroup := len(in.Groups) > 1

	var entries []entry
	for _, g := range in.Groups {
		for i, t := range g.Tickets {
			e := entry{primary: primaryLine(t, in.TicketBaseURL)}
			if multiGroup && i == 0 {
				e.header = fmt.Sprintf("*%s* (%d tickets)", g.IssueType, g.Count)
			}
			if t.JiraTicketID != "" {
				e.subs = append(e.subs, "    ↳ Jira: "+t.JiraTicketID)
			}
			if t.DiscourseLink != "" {
				e.subs = append(e.subs, "    ↳ Discourse: "+t.DiscourseLink)
			}
			entries = append(entries, e)
		}
	}

	var b strings.Builder
	included := 0
	for _, e := range entries {
		text := e.text()
		if b.Len()+len(text)+1 > budget-truncateReserve {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		included++
	}

	if omitted := len(entries) - included; omitted > 0 {
		fmt.Fprintf(&b, "\n... and %d more tickets", omitted)
	}
	if b.Len() == 0 {
		return "No tickets found"
	}
	return b.String()
}

func primaryLine(t enrich.Ticket, baseURL string) string {
	if t.ID == "" {
		return fmt.Sprintf("• Unknown ID - %s", t.Subject)
	}

	var b strings.Builder
	if baseURL != "" {
		fmt.Fprintf(&b, "• <%s/%s|#%s> - %s", strings.TrimSuffix(baseURL, "/"), t.ID, t.ID, t.Subject)
	} else {
		fmt.Fprintf(&b, "• #%s - %s", t.ID, t.Subject)
	}

	if t.OrgName != "" && t.OrgID != "" {
		fmt.Fprintf(&b, " (Org: %s - %s)", t.OrgName, t.OrgID)
	} else if t.OrgID != "" {
		fmt.Fprintf(&b, " (Org ID: %s)", t.OrgID)
	}
	if t.Assignee != "" {
		fmt.Fprintf(&b, " [Assigned: %s]", t.Assignee)
	}
	return b.String()
}

// truncate hard-truncates text with an ellipsis marker. The cut never lands
// inside a multi-byte rune: titles carry emoji and subjects can be non-ASCII,
// and a split rune would make the payload invalid UTF-8.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
