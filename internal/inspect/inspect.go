// Package inspect summarizes a capture log for quick structural analysis:
// how many input items each request carried, what kinds they were, and
// whether tool calls are in play.
package inspect

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/openclaw/prefixproxy/internal/capture"
)

// Summary is the structural digest of one captured request.
type Summary struct {
	Index         int
	Time          time.Time
	Method        string
	Path          string
	ID            string
	ContentLength int
	InputItems    int
	Kinds         []string
	HasToolCalls  bool
	Stream        bool
}

// Summarize digests captured blocks. Blocks whose bodies are not JSON still
// get an entry (with zero item counts) so the log remains fully accounted for.
func Summarize(blocks []capture.Block) []Summary {
	summaries := make([]Summary, 0, len(blocks))
	for i, b := range blocks {
		s := Summary{
			Index:         i + 1,
			Time:          b.Time,
			Method:        b.Method,
			Path:          b.Path,
			ID:            b.ID,
			ContentLength: len(b.Body),
		}

		body := gjson.ParseBytes(b.Body)
		s.Stream = body.Get("stream").Bool()
		for _, item := range body.Get("input").Array() {
			s.InputItems++
			kind := item.Get("type").Str
			if kind == "" {
				kind = item.Get("role").Str
			}
			if kind == "" {
				kind = "?"
			}
			s.Kinds = append(s.Kinds, kind)
			if kind == "function_call" || kind == "function_call_output" {
				s.HasToolCalls = true
			}
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// Report prints one line per request plus a total header.
func Report(w io.Writer, summaries []Summary) {
	fmt.Fprintf(w, "Total request blocks found: %d\n\n", len(summaries))
	for _, s := range summaries {
		ts := "?"
		if !s.Time.IsZero() {
			ts = s.Time.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "Request %02d | %s | %s %s | content-length=%7d | input_items=%d | tool_calls=%t | stream=%t\n",
			s.Index, ts, s.Method, s.Path, s.ContentLength, s.InputItems, s.HasToolCalls, s.Stream)
		if len(s.Kinds) > 0 {
			fmt.Fprintf(w, "           items: [%s]\n", strings.Join(s.Kinds, ", "))
		}
	}
}

// Run scans a capture log and writes the report.
func Run(w io.Writer, logPath string) error {
	blocks, err := capture.ScanFile(logPath)
	if err != nil {
		return err
	}
	Report(w, Summarize(blocks))
	return nil
}
