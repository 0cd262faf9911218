package normalize

import (
	"bytes"
	"testing"

	"github.com/tidwall/gjson"
)

var bothRules = Rules{Timestamps: true, MessageIDs: true}

func TestInputSystemItem(t *testing.T) {
	in := []byte(`[{"role":"system","content":"ctx:\n  \"message_id\": \"775b2410-aaaa\",\n  \"turn\": 3"}]`)

	out, stats := Input(in, bothRules)

	if got := gjson.GetBytes(out, "0.content").Str; got != "ctx:\n  \"turn\": 3" {
		t.Errorf("content: got %q", got)
	}
	if stats.MessageIDsRemoved != 1 || stats.TimestampsRemoved != 0 || stats.ItemsModified != 1 {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestInputUserItem(t *testing.T) {
	in := []byte(`[{"role":"user","content":[` +
		`{"type":"input_text","text":"[Wed 2026-02-18 20:48 UTC] Hello"},` +
		`{"type":"input_image","image_url":"data:x"}]}]`)

	out, stats := Input(in, bothRules)

	if got := gjson.GetBytes(out, "0.content.0.text").Str; got != "Hello" {
		t.Errorf("text: got %q, want %q", got, "Hello")
	}
	if got := gjson.GetBytes(out, "0.content.1.image_url").Str; got != "data:x" {
		t.Errorf("untouched block changed: got %q", got)
	}
	if stats.TimestampsRemoved != 1 || stats.ItemsModified != 1 {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestInputOtherItemsPassThrough(t *testing.T) {
	in := []byte(`[` +
		`{"type":"function_call","name":"read_file","arguments":"{\"path\":\"x\"}","call_id":"c1"},` +
		`{"type":"function_call_output","call_id":"c1","output":"[Wed 2026-02-18 20:48 UTC] not a user item"},` +
		`{"role":"assistant","content":"[Wed 2026-02-18 20:48 UTC] assistant text stays"}]`)

	out, stats := Input(in, bothRules)

	if !bytes.Equal(out, in) {
		t.Errorf("other items must be byte-identical\n got: %s\nwant: %s", out, in)
	}
	if stats != (Stats{}) {
		t.Errorf("stats: got %+v, want zero", stats)
	}
}

func TestInputDoesNotMutateOriginal(t *testing.T) {
	in := []byte(`[{"role":"system","content":"[Wed 2026-02-18 20:48 UTC] s"},` +
		`{"role":"user","content":[{"type":"input_text","text":"[Thu 2026-02-19 07:15 UTC] u"}]}]`)
	snapshot := append([]byte(nil), in...)

	out, stats := Input(in, bothRules)

	if !bytes.Equal(in, snapshot) {
		t.Fatalf("original input mutated:\n got: %s\nwant: %s", in, snapshot)
	}
	if bytes.Equal(out, in) {
		t.Fatal("expected a rewritten copy, got identical bytes")
	}
	if stats.TimestampsRemoved != 2 || stats.ItemsModified != 2 {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestInputStructuralIsomorphism(t *testing.T) {
	in := []byte(`[` +
		`{"role":"system","content":"[Wed 2026-02-18 20:48 UTC] sys","id":"m1","extra":{"a":[1,2]}},` +
		`{"type":"function_call","call_id":"c9","name":"f"},` +
		`{"role":"user","content":[{"type":"input_text","text":"[Fri 2026-02-20 11:00 UTC] hi","cache":false}],"id":"m2"}]`)

	out, _ := Input(in, bothRules)

	inArr := gjson.ParseBytes(in).Array()
	outArr := gjson.ParseBytes(out).Array()
	if len(outArr) != len(inArr) {
		t.Fatalf("item count changed: got %d, want %d", len(outArr), len(inArr))
	}

	// Everything except the rewritten text leaves must survive unchanged.
	for _, path := range []string{"0.id", "0.extra.a.1", "1.call_id", "1.name", "2.id", "2.content.0.cache", "2.content.0.type"} {
		if got, want := gjson.GetBytes(out, path).Raw, gjson.GetBytes(in, path).Raw; got != want {
			t.Errorf("%s: got %s, want %s", path, got, want)
		}
	}
	if got := gjson.GetBytes(out, "0.content").Str; got != "sys" {
		t.Errorf("system content: got %q, want %q", got, "sys")
	}
	if got := gjson.GetBytes(out, "2.content.0.text").Str; got != "hi" {
		t.Errorf("user text: got %q, want %q", got, "hi")
	}
}

func TestInputDisabledRules(t *testing.T) {
	in := []byte(`[{"role":"system","content":"[Wed 2026-02-18 20:48 UTC] s"}]`)
	out, stats := Input(in, Rules{})
	if !bytes.Equal(out, in) || stats != (Stats{}) {
		t.Errorf("disabled rules rewrote input: %s %+v", out, stats)
	}
}

func TestInputNonArray(t *testing.T) {
	for _, in := range []string{`"just a string"`, `{"role":"system"}`, `null`, ``} {
		out, stats := Input([]byte(in), bothRules)
		if string(out) != in || stats != (Stats{}) {
			t.Errorf("Input(%q) = (%s, %+v), want unchanged", in, out, stats)
		}
	}
}

func TestInputAggregatesAcrossItems(t *testing.T) {
	in := []byte(`[` +
		`{"role":"system","content":"a\n  \"message_id\": \"1\",\nb\n  \"message_id\": \"2\",\nc"},` +
		`{"role":"user","content":[{"type":"input_text","text":"[Sat 2026-02-21 10:00 UTC] x"}]},` +
		`{"role":"user","content":[{"type":"input_text","text":"plain"}]}]`)

	_, stats := Input(in, bothRules)

	want := Stats{TimestampsRemoved: 1, MessageIDsRemoved: 2, ItemsModified: 2}
	if stats != want {
		t.Errorf("stats: got %+v, want %+v", stats, want)
	}
}
