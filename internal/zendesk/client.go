package zendesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// customFieldMap maps Zendesk custom field IDs to ticket attribute names.
var customFieldMap = map[int64]string{
	31731966344603: "internal_chart_tool_ai_tagged",
	31733696813723: "internal_chart_tool_ai_generated",
	13905556187419: "steps_to_reproduce",
	34956827393051: "request_type_ai_tagged",
	16461228458907: "request_type_cnil",
	14495072558491: "requester_type",
	16232951560219: "jira_id",
	360002325512:   "jira_ticket_id",
	9870708900891:  "link_to_discourse",
	114101027932:   "internal_chart_tool",
}

// productTags maps common ticket tags to product names.
var productTags = map[string]string{
	"web_portal": "WebPortal",
	"webportal":  "WebPortal",
	"mobile_app": "MobileApp",
	"mobile":     "MobileApp",
	"reporting":  "ReportingTool",
	"reports":    "ReportingTool",
	"dashboard":  "Dashboard",
	"billing":    "Billing",
	"api":        "API",
}

// Client talks to the Zendesk search API.
type Client struct {
	http    *http.Client
	baseURL string
	email   string
	token   string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(z *Client) { z.http = c }
}

// New creates a Zendesk client. baseURL is the account URL, e.g.
// https://yourcompany.zendesk.com.
func New(baseURL, email, token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" || email == "" || token == "" {
		return nil, fmt.Errorf("zendesk: url, email and token are required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("zendesk: invalid url %q, expected https://yourcompany.zendesk.com", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		email:   email,
		token:   token,
		logger:  logger,
	}, nil
}

// FetchRecent returns tickets created within the last hours, newest included.
// A transport failure is returned as an error; the caller decides whether it
// is fatal for the run.
func (z *Client) FetchRecent(ctx context.Context, hours int) ([]protocol.Ticket, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	// The search API filters by whole days only; the exact cutoff is
	// applied client-side below.
	query := fmt.Sprintf("created>%s type:ticket", cutoff.Format("2006-01-02"))
	z.logger.Info("fetching tickets", "query", query, "cutoff", cutoff.Format(time.RFC3339))

	var tickets []protocol.Ticket
	next := z.baseURL + "/api/v2/search.json?" + url.Values{"query": {query}}.Encode()

	for next != "" {
		page, nextPage, err := z.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, raw := range page {
			t := z.convert(raw)
			if !t.CreatedAt.IsZero() && t.CreatedAt.Before(cutoff) {
				continue
			}
			tickets = append(tickets, t)
		}
		next = nextPage
	}

	z.logger.Info("fetched tickets", "count", len(tickets))
	return tickets, nil
}

func (z *Client) fetchPage(ctx context.Context, pageURL string) ([]wireTicket, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("zendesk: create request: %w", err)
	}
	req.SetBasicAuth(z.email+"/token", z.token)

	resp, err := z.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("zendesk: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("zendesk: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("zendesk: api error (status %d): %s", resp.StatusCode, string(body))
	}

	var page searchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("zendesk: unmarshal response: %w", err)
	}
	return page.Results, page.NextPage, nil
}

// convert maps a wire ticket into the run-scoped Ticket shape.
func (z *Client) convert(w wireTicket) protocol.Ticket {
	t := protocol.Ticket{
		ID:          strconv.FormatInt(w.ID, 10),
		Subject:     w.Subject,
		Description: w.Description,
		Status:      w.Status,
		Priority:    w.Priority,
	}
	if t.Subject == "" {
		t.Subject = "No subject"
	}
	if t.Description == "" {
		t.Description = "No description"
	}
	if w.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, w.CreatedAt)
		if err != nil {
			z.logger.Warn("unparseable created_at", "ticket", t.ID, "value", w.CreatedAt)
		} else {
			t.CreatedAt = ts.UTC()
		}
	}
	if w.RequesterID != 0 {
		t.RequesterID = strconv.FormatInt(w.RequesterID, 10)
	}
	if w.OrganizationID != 0 {
		t.OrgID = strconv.FormatInt(w.OrganizationID, 10)
	}
	if w.AssigneeID != 0 {
		t.Assignee = strconv.FormatInt(w.AssigneeID, 10)
	}
	t.Product = extractProduct(w.Tags)

	for _, f := range w.CustomFields {
		name, ok := customFieldMap[f.ID]
		if !ok || f.Value == nil {
			continue
		}
		setCustomField(&t.Custom, name, stringifyValue(f.Value))
	}
	return t
}

func setCustomField(c *protocol.CustomFields, name, value string) {
	switch name {
	case "internal_chart_tool":
		c.InternalChartTool = value
	case "internal_chart_tool_ai_tagged":
		c.InternalChartToolAITagged = value
	case "internal_chart_tool_ai_generated":
		c.InternalChartToolAIGenerated = value
	case "steps_to_reproduce":
		c.StepsToReproduce = value
	case "request_type_ai_tagged":
		c.RequestTypeAITagged = value
	case "request_type_cnil":
		c.RequestTypeCNIL = value
	case "requester_type":
		c.RequesterType = value
	case "jira_id":
		c.JiraID = value
	case "jira_ticket_id":
		c.JiraTicketID = value
	case "link_to_discourse":
		c.DiscourseLink = value
	}
}

// stringifyValue normalizes custom field values, which arrive as strings,
// numbers or booleans depending on the field type.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func extractProduct(tags []string) string {
	for _, tag := range tags {
		if product, ok := productTags[strings.ToLower(tag)]; ok {
			return product
		}
	}
	return "Unknown"
}

// --- Zendesk wire format types ---

type searchPage struct {
	Results  []wireTicket `json:"results"`
	NextPage string       `json:"next_page"`
	Count    int          `json:"count"`
}

type wireTicket struct {
	ID             int64           `json:"id"`
	Subject        string          `json:"subject"`
	Description    string          `json:"description"`
	CreatedAt      string          `json:"created_at"`
	Status         string          `json:"status"`
	Priority       string          `json:"priority"`
	RequesterID    int64           `json:"requester_id"`
	OrganizationID int64           `json:"organization_id"`
	AssigneeID     int64           `json:"assignee_id"`
	Tags           []string        `json:"tags"`
	CustomFields   []wireField     `json:"custom_fields"`
	Via            json.RawMessage `json:"via,omitempty"`
}

type wireField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}
