package analyzer

import (
	"fmt"
	"strings"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// systemMessage frames every analysis call.
const systemMessage = "You are a technical support analyst who specializes in analyzing customer support tickets."

// clusteringFormat is the response-shape contract for similarity clustering.
const clusteringFormat = `{
  "response_type": "clustering",
  "summary": "Brief summary for the alert (e.g., 'Found 2 groups of similar issues affecting 8 tickets')",
  "data": {
    "groups": [
      {
        "issue_type": "Descriptive name for the common issue",
        "ticket_ids": ["123", "456", "789"],
        "count": 3
      }
    ]
  },
  "metadata": {
    "total_tickets_analyzed": %d,
    "groups_found": 0
  }
}`

// queryFormat is the response-shape contract for ad-hoc questions.
const queryFormat = `{
  "response_type": "query",
  "summary": "Brief summary suitable for the notification",
  "large_result_set": false,
  "data": {
    "answer": "Detailed answer to the question",
    "tickets": [
      {
        "ticket_id": "123",
        "subject": "Ticket subject",
        "description": "Brief description or key details"
      }
    ],
    "ticket_ids": ["123", "456", "789"],
    "count": 0
  },
  "metadata": {
    "total_tickets_analyzed": %d,
    "query": "%s"
  }
}`

// timeWindowFormat is the response-shape contract for time-window extraction.
const timeWindowFormat = `{
  "response_type": "time_window",
  "has_time_reference": true,
  "time_window": {
    "hours": 24,
    "description": "last 24 hours"
  },
  "cleaned_query": "the question with the time reference removed",
  "reasoning": "Brief explanation of why this time window was extracted"
}`

// formatTickets renders tickets into the flat text lines the prompts embed.
func formatTickets(tickets []protocol.Ticket) string {
	var b strings.Builder
	for _, t := range tickets {
		fmt.Fprintf(&b,
			"Ticket #%s: Subject: %s, Description: %s, "+
				"Internal Chart/Tool: %s, "+
				"Internal Chart/Tool - AI tagged: %s, "+
				"Internal Chart/Tool - AI generated: %s, "+
				"Steps to reproduce: %s, "+
				"Request Type - AI tagged: %s, "+
				"Request Type - CNIL: %s, "+
				"Requester Type: %s, "+
				"JIRA ID: %s, "+
				"JIRA Ticket ID: %s, "+
				"Link to Discourse: %s\n",
			t.ID, t.Subject, t.Description,
			t.Custom.InternalChartTool,
			t.Custom.InternalChartToolAITagged,
			t.Custom.InternalChartToolAIGenerated,
			t.Custom.StepsToReproduce,
			t.Custom.RequestTypeAITagged,
			t.Custom.RequestTypeCNIL,
			t.Custom.RequesterType,
			t.Custom.JiraID,
			t.Custom.JiraTicketID,
			t.Custom.DiscourseLink,
		)
	}
	return b.String()
}

func clusteringPrompt(tickets []protocol.Ticket, minGroupSize int) string {
	return fmt.Sprintf(`I have a set of technical support tickets.

Please analyze them and identify groups of tickets that are about the same or very similar issues.

Return your response as a JSON object with this exact structure:
%s

IMPORTANT:
- Only create groups with %d+ tickets that genuinely represent the same underlying issue
- ticket_ids must be strings containing ONLY the numeric ID without any prefix or suffix
- Update groups_found to the actual number of groups returned

Here are the tickets:
%s`, fmt.Sprintf(clusteringFormat, len(tickets)), minGroupSize, formatTickets(tickets))
}

func queryPrompt(tickets []protocol.Ticket, query string, window protocol.TimeWindow) string {
	return fmt.Sprintf(`You are a technical support analyst. Here is a list of support tickets from %s:
%s

Please answer the following question based on the tickets above:
%s

Return your response as a JSON object with this exact structure:
%s

IMPORTANT:
- Include relevant tickets in the tickets array
- Update count to reflect the actual number of relevant tickets
- Set large_result_set only as a hint; it will be recomputed
- Make summary concise but informative`,
		window.Description, formatTickets(tickets), query,
		fmt.Sprintf(queryFormat, len(tickets), query))
}

func timeWindowPrompt(query string) string {
	return fmt.Sprintf(`Extract the time window referenced by this support-ticket question, if any:
%q

Return your response as a JSON object with this exact structure:
%s

IMPORTANT:
- If the question contains no time reference, set has_time_reference to false
- hours must be a whole number of hours covering the referenced period
- cleaned_query must be the question with the time reference removed, or the original question when nothing was removed`,
		query, timeWindowFormat)
}
