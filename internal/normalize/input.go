package normalize

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Input returns a normalized copy of a raw JSON `input` array together with
// aggregate stats. Only two item shapes are rewritten:
//
//   - role "system" with a string content: the content text is stripped
//   - role "user" with an array content: each input_text block's text is stripped
//
// Every other item or block is left byte-identical; unknown structures are
// never recursed into. The input slice itself is never written, so callers can
// keep using the original body (audit logging, passthrough) after the call.
func Input(input []byte, rules Rules) ([]byte, Stats) {
	var stats Stats

	parsed := gjson.ParseBytes(input)
	if !parsed.IsArray() {
		return input, stats
	}

	out := input
	for i, item := range parsed.Array() {
		modified := false
		role := item.Get("role").Str
		content := item.Get("content")

		switch {
		case role == "system" && content.Type == gjson.String:
			text, tsN, midN := rules.Apply(content.Str)
			if text != content.Str {
				if patched, err := sjson.SetBytes(out, strconv.Itoa(i)+".content", text); err == nil {
					out = patched
					stats.TimestampsRemoved += tsN
					stats.MessageIDsRemoved += midN
					modified = true
				}
			}

		case role == "user" && content.IsArray():
			for j, block := range content.Array() {
				if block.Get("type").Str != "input_text" {
					continue
				}
				orig := block.Get("text")
				if !orig.Exists() {
					continue
				}
				text, tsN, midN := rules.Apply(orig.Str)
				if text == orig.Str {
					continue
				}
				path := strconv.Itoa(i) + ".content." + strconv.Itoa(j) + ".text"
				patched, err := sjson.SetBytes(out, path, text)
				if err != nil {
					continue
				}
				out = patched
				stats.TimestampsRemoved += tsN
				stats.MessageIDsRemoved += midN
				modified = true
			}
		}

		if modified {
			stats.ItemsModified++
		}
	}

	return out, stats
}
