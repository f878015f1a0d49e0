package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zenwatch-io/zenwatch/internal/config"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// DefaultWindow is the lookback used when a query carries no time reference
// or extraction failed.
func DefaultWindow(query string) protocol.TimeWindow {
	return protocol.TimeWindow{
		HasTimeReference: false,
		Hours:            config.DefaultQueryHours,
		Description:      fmt.Sprintf("last %d hours (default)", config.DefaultQueryHours),
		CleanedQuery:     query,
	}
}

// normalizeWindow bounds an extracted window and fills gaps. The model's
// cleaned_query is the canonical time-stripped query; the regex stripper is
// only the fallback when the model returned none.
func normalizeWindow(w *protocol.TimeWindow, query string) {
	if !w.HasTimeReference || w.Hours <= 0 {
		hours := config.DefaultQueryHours
		*w = protocol.TimeWindow{
			HasTimeReference: false,
			Hours:            hours,
			Description:      fmt.Sprintf("last %d hours (default)", hours),
			CleanedQuery:     w.CleanedQuery,
			Reasoning:        w.Reasoning,
		}
	}
	if w.Hours > config.MaxLookbackHours {
		note := fmt.Sprintf("requested %d hours capped at %d hours (maximum lookback)", w.Hours, config.MaxLookbackHours)
		if w.Reasoning != "" {
			w.Reasoning += "; " + note
		} else {
			w.Reasoning = note
		}
		w.Hours = config.MaxLookbackHours
		w.Description = fmt.Sprintf("last %d hours (capped)", config.MaxLookbackHours)
	}
	if w.CleanedQuery == "" {
		w.CleanedQuery = StripTimeReferences(query)
	}
	if w.Description == "" {
		w.Description = fmt.Sprintf("last %d hours", w.Hours)
	}
}

var timePhrase = regexp.MustCompile(
	`(?i)\b(?:(?:in|from|over|during|within)\s+)?(?:the\s+)?(?:last|past|previous)\s+(?:\d+\s+)?(?:hour|hours|day|days|week|weeks|month|months)\b` +
		`|\b(?:today|yesterday|this\s+week|this\s+month)\b`)

// StripTimeReferences removes common time phrases from a query. Fallback for
// when the model supplies no cleaned query; returns the original text when
// stripping would leave nothing.
func StripTimeReferences(query string) string {
	stripped := timePhrase.ReplaceAllString(query, "")
	stripped = strings.TrimSpace(whitespaceRuns.ReplaceAllString(stripped, " "))
	stripped = strings.TrimRight(stripped, " ?")
	if stripped == "" {
		return query
	}
	if strings.HasSuffix(query, "?") && !strings.HasSuffix(stripped, "?") {
		stripped += "?"
	}
	return stripped
}
