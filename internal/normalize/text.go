// Package normalize strips volatile per-turn fields (timestamps, message IDs)
// from request input so byte-identical prefixes survive across turns and the
// backend can reuse its KV cache.
package normalize

import "regexp"

// timestampRE matches the per-message timestamp prefix injected by the client:
// [Wed 2026-02-18 20:48 UTC]  (trailing space included). Matching is lexical;
// a syntactically valid but calendrically wrong date still matches.
var timestampRE = regexp.MustCompile(`\[(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun) \d{4}-\d{2}-\d{2} \d{2}:\d{2} UTC\] `)

// messageIDRE matches a "message_id" line inside a JSON-looking block,
// including its leading newline and indentation and an optional trailing
// comma. The blocks live inside free-form prompt text, so stripping is
// textual rather than structural.
var messageIDRE = regexp.MustCompile(`\n[ \t]*"message_id"\s*:\s*"[^"]+",?`)

// Rules selects which transforms are active. The zero value disables both.
type Rules struct {
	Timestamps bool
	MessageIDs bool
}

// Stats counts what a normalization pass removed.
type Stats struct {
	TimestampsRemoved int
	MessageIDsRemoved int
	ItemsModified     int
}

// StripTimestamps removes every timestamp prefix from text and reports how
// many were removed. Idempotent: a second pass finds nothing.
func StripTimestamps(text string) (string, int) {
	matches := timestampRE.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}
	return timestampRE.ReplaceAllLiteralString(text, ""), len(matches)
}

// StripMessageIDs removes every embedded message_id key-value line from text
// and reports how many were removed. Idempotent.
func StripMessageIDs(text string) (string, int) {
	matches := messageIDRE.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}
	return messageIDRE.ReplaceAllLiteralString(text, ""), len(matches)
}

// Apply runs the enabled transforms in fixed order (timestamps first, then
// message IDs) and returns the rewritten text with per-transform counts.
func (r Rules) Apply(text string) (out string, timestamps, messageIDs int) {
	out = text
	if r.Timestamps {
		out, timestamps = StripTimestamps(out)
	}
	if r.MessageIDs {
		out, messageIDs = StripMessageIDs(out)
	}
	return out, timestamps, messageIDs
}
