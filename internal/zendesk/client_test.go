package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewValidatesInput(t *testing.T) {
	if _, err := New("", "a@b.com", "tok", nil); err == nil {
		t.Error("expected error for missing url")
	}
	if _, err := New("yourcompany.zendesk.com", "a@b.com", "tok", nil); err == nil {
		t.Error("expected error for url without scheme")
	}
	if _, err := New("https://yourcompany.zendesk.com/", "a@b.com", "tok", nil); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}
}

func TestFetchRecentPagination(t *testing.T) {
	recent := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "agent@example.com/token" || pass != "secret" {
			t.Errorf("bad auth: %q / %q", user, pass)
		}

		switch {
		case r.URL.Path == "/api/v2/search.json" && r.URL.Query().Get("page") == "2":
			fmt.Fprintf(w, `{"results":[{"id":3,"subject":"c","created_at":%q}],"next_page":""}`, recent)
		case r.URL.Path == "/api/v2/search.json":
			fmt.Fprintf(w, `{"results":[
				{"id":1,"subject":"a","created_at":%q},
				{"id":2,"subject":"b","created_at":%q}
			],"next_page":"%s/api/v2/search.json?page=2"}`, recent, recent, srv.URL)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	z, err := New(srv.URL, "agent@example.com", "secret", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tickets, err := z.FetchRecent(context.Background(), 24)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("tickets = %d, want 3 across pages", len(tickets))
	}
	if tickets[2].ID != "3" {
		t.Errorf("last ticket id = %q", tickets[2].ID)
	}
}

func TestFetchRecentCutoffFilter(t *testing.T) {
	recent := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	stale := time.Now().UTC().Add(-100 * time.Hour).Format(time.RFC3339)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[
			{"id":1,"subject":"fresh","created_at":%q},
			{"id":2,"subject":"stale","created_at":%q}
		],"next_page":""}`, recent, stale)
	}))
	defer srv.Close()

	z, _ := New(srv.URL, "a@b.com", "tok", nil)
	tickets, err := z.FetchRecent(context.Background(), 24)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Subject != "fresh" {
		t.Errorf("tickets = %+v, want day-granular search filtered to exact cutoff", tickets)
	}
}

func TestFetchRecentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Couldn't authenticate you"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	z, _ := New(srv.URL, "a@b.com", "tok", nil)
	if _, err := z.FetchRecent(context.Background(), 24); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestConvertDefaultsAndFields(t *testing.T) {
	z, _ := New("https://x.zendesk.com", "a@b.com", "tok", nil)

	w := wireTicket{
		ID:             12345,
		CreatedAt:      "2025-05-30T10:00:00Z",
		Status:         "open",
		Priority:       "high",
		RequesterID:    77,
		OrganizationID: 88,
		AssigneeID:     99,
		Tags:           []string{"something", "billing"},
		CustomFields: []wireField{
			{ID: 360002325512, Value: "PAY-42"},      // jira_ticket_id
			{ID: 9870708900891, Value: "https://d/"}, // link_to_discourse
			{ID: 14495072558491, Value: float64(3)},  // requester_type, numeric
			{ID: 16461228458907, Value: true},        // request_type_cnil, boolean
			{ID: 42, Value: "unmapped field"},
			{ID: 16232951560219, Value: nil}, // nil values are skipped
		},
	}
	got := z.convert(w)

	if got.ID != "12345" {
		t.Errorf("id = %q", got.ID)
	}
	if got.Subject != "No subject" || got.Description != "No description" {
		t.Errorf("defaults not applied: %q / %q", got.Subject, got.Description)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
	if got.RequesterID != "77" || got.OrgID != "88" || got.Assignee != "99" {
		t.Errorf("ids = %q/%q/%q", got.RequesterID, got.OrgID, got.Assignee)
	}
	if got.Product != "Billing" {
		t.Errorf("product = %q", got.Product)
	}
	if got.Custom.JiraTicketID != "PAY-42" || got.Custom.DiscourseLink != "https://d/" {
		t.Errorf("custom = %+v", got.Custom)
	}
	if got.Custom.RequesterType != "3" {
		t.Errorf("numeric value = %q", got.Custom.RequesterType)
	}
	if got.Custom.RequestTypeCNIL != "true" {
		t.Errorf("bool value = %q", got.Custom.RequestTypeCNIL)
	}
	if got.Custom.JiraID != "" {
		t.Errorf("nil value should be skipped, got %q", got.Custom.JiraID)
	}
}

func TestExtractProduct(t *testing.T) {
	if got := extractProduct([]string{"API", "other"}); got != "API" {
		t.Errorf("got %q", got)
	}
	if got := extractProduct([]string{"nothing"}); got != "Unknown" {
		t.Errorf("got %q", got)
	}
}
