package protocol

import "time"

// Ticket is an authoritative support ticket fetched from the source system.
// Tickets are immutable once fetched for a run; identity is the ID, always
// compared as a string to avoid numeric/string mismatches.
type Ticket struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	RequesterID string    `json:"requester_id,omitempty"`
	OrgID       string    `json:"org_id,omitempty"`
	OrgName     string    `json:"org_name,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Product     string    `json:"product,omitempty"`

	Custom CustomFields `json:"custom_fields"`
}

// CustomFields is the fixed set of named custom attributes carried by a
// ticket. Keys mirror the field titles configured in the helpdesk.
type CustomFields struct {
	InternalChartTool            string `json:"internal_chart_tool,omitempty"`
	InternalChartToolAITagged    string `json:"internal_chart_tool_ai_tagged,omitempty"`
	InternalChartToolAIGenerated string `json:"internal_chart_tool_ai_generated,omitempty"`
	StepsToReproduce             string `json:"steps_to_reproduce,omitempty"`
	RequestTypeAITagged          string `json:"request_type_ai_tagged,omitempty"`
	RequestTypeCNIL              string `json:"request_type_cnil,omitempty"`
	RequesterType                string `json:"requester_type,omitempty"`
	JiraID                       string `json:"jira_id,omitempty"`
	JiraTicketID                 string `json:"jira_ticket_id,omitempty"`
	DiscourseLink                string `json:"link_to_discourse,omitempty"`
}
