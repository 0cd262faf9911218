package inspect

import (
	"strings"
	"testing"
	"time"

	"github.com/openclaw/prefixproxy/internal/capture"
)

func TestSummarize(t *testing.T) {
	blocks := []capture.Block{
		{
			Time:   time.Date(2026, 2, 18, 20, 48, 0, 0, time.UTC),
			Method: "POST",
			Path:   "/v1/responses",
			ID:     "a",
			Body: []byte(`{"stream":true,"input":[` +
				`{"role":"system","content":"s"},` +
				`{"role":"user","content":[]},` +
				`{"type":"function_call","name":"f","call_id":"c1"},` +
				`{"type":"function_call_output","call_id":"c1","output":"ok"}]}`),
		},
		{
			Method: "POST",
			Path:   "/v1/responses",
			ID:     "b",
			Body:   []byte("not json at all"),
		},
	}

	summaries := Summarize(blocks)
	if len(summaries) != 2 {
		t.Fatalf("summaries: got %d, want 2", len(summaries))
	}

	s := summaries[0]
	if s.InputItems != 4 {
		t.Errorf("input items: got %d, want 4", s.InputItems)
	}
	if !s.HasToolCalls {
		t.Error("tool calls not detected")
	}
	if !s.Stream {
		t.Error("stream flag not detected")
	}
	if got := strings.Join(s.Kinds, ","); got != "system,user,function_call,function_call_output" {
		t.Errorf("kinds: got %q", got)
	}

	if summaries[1].InputItems != 0 || summaries[1].HasToolCalls {
		t.Errorf("non-JSON block should summarize empty: %+v", summaries[1])
	}
}

func TestReport(t *testing.T) {
	blocks := []capture.Block{{
		Time:   time.Date(2026, 2, 18, 20, 48, 0, 0, time.UTC),
		Method: "POST",
		Path:   "/v1/responses",
		ID:     "a",
		Body:   []byte(`{"input":[{"role":"user","content":[]}]}`),
	}}

	var out strings.Builder
	Report(&out, Summarize(blocks))

	text := out.String()
	if !strings.Contains(text, "Total request blocks found: 1") {
		t.Errorf("missing total line:\n%s", text)
	}
	if !strings.Contains(text, "input_items=1") {
		t.Errorf("missing item count:\n%s", text)
	}
	if !strings.Contains(text, "2026-02-18 20:48:00") {
		t.Errorf("missing timestamp:\n%s", text)
	}
}
