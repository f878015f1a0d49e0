package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// Parse turns raw completion text into a validated analysis response.
// The input is untrusted: it may be wrapped in a fenced code block with a
// language tag, contain // or /* */ comments, trailing commas, or
// pretty-printing noise. Returns (nil, false) when no usable JSON can be
// recovered; the caller must treat that as "no groups", not a fatal error.
//
// No semantic validation happens here; count reconciliation owns that.
func Parse(raw string) (*protocol.AnalysisResponse, bool) {
	var resp protocol.AnalysisResponse
	if !decodeLenient(raw, &resp) {
		return nil, false
	}
	resp.Shape = resolveShape(&resp)
	return &resp, true
}

// decodeLenient decodes intended-JSON text into v, tolerating fences,
// comments and trailing commas, with one whitespace-collapse retry.
func decodeLenient(raw string, v any) bool {
	cleaned := stripFence(raw)
	// jsonc rewrites comments and trailing commas in place.
	cleaned = string(jsonc.ToJSON([]byte(cleaned)))

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return true
	}

	collapsed := strings.TrimSpace(whitespaceRuns.ReplaceAllString(cleaned, " "))
	return json.Unmarshal([]byte(collapsed), v) == nil
}

// stripFence removes a surrounding markdown code fence and its optional
// leading language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = strings.TrimLeft(s[4:], "\n ")
	}
	return s
}

// resolveShape decides the payload layout exactly once. A present (even
// empty) groups array wins; anything else is the legacy flat form.
func resolveShape(r *protocol.AnalysisResponse) protocol.ResponseShape {
	if r.Data.Groups != nil {
		return protocol.ShapeGroups
	}
	if r.Data.Tickets != nil || r.Data.TicketIDs != nil || r.Data.Answer != "" || r.Data.Count != 0 {
		return protocol.ShapeLegacyFlat
	}
	if r.ResponseType == "clustering" {
		return protocol.ShapeGroups
	}
	return protocol.ShapeLegacyFlat
}

// excerpt bounds raw text for diagnostic logging.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
