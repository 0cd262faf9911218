// Package replay resends captured /v1/responses requests through the proxy,
// one at a time, so cache behavior can be verified against the backend's
// console (prefix similarity, prompt eval time) after a config change.
package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/tidwall/gjson"

	"github.com/openclaw/prefixproxy/internal/capture"
)

// Result describes one replayed request.
type Result struct {
	Index       int
	Status      int
	Duration    time.Duration
	Streamed    bool
	OutputChars int
	Err         error
}

// ExtractBodies pulls replayable request bodies out of captured blocks: POST
// /v1/responses blocks whose body is JSON with an `input` field. Malformed
// blocks are skipped, matching the log's best-effort nature.
func ExtractBodies(blocks []capture.Block) [][]byte {
	var bodies [][]byte
	for _, b := range blocks {
		if b.Method != http.MethodPost || b.Path != "/v1/responses" {
			continue
		}
		if !gjson.ValidBytes(b.Body) || !gjson.GetBytes(b.Body, "input").Exists() {
			continue
		}
		bodies = append(bodies, b.Body)
	}
	return bodies
}

// Send replays one body against the proxy and consumes the response fully.
// Streaming responses are decoded as SSE to count the generated text; the
// decoding happens here on the consumer side, never inside the proxy relay.
func Send(ctx context.Context, hc *http.Client, url string, body []byte) Result {
	res := Result{}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		res.Streamed = true
		decoder := ssestream.NewDecoder(resp)
		for decoder.Next() {
			evt := decoder.Event()
			if evt.Type == "response.output_text.delta" {
				res.OutputChars += len(gjson.GetBytes(evt.Data, "delta").Str)
			}
		}
		res.Err = decoder.Err()
	} else {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			res.Err = err
		} else {
			res.OutputChars = len(outputText(data))
		}
	}

	res.Duration = time.Since(start)
	return res
}

// outputText concatenates the output_text blocks of a non-streaming
// Responses API body.
func outputText(data []byte) string {
	var b strings.Builder
	for _, item := range gjson.GetBytes(data, "output").Array() {
		for _, blk := range item.Get("content").Array() {
			if blk.Get("type").Str == "output_text" {
				b.WriteString(blk.Get("text").Str)
			}
		}
	}
	return b.String()
}

// Run replays every captured request sequentially, waiting delay between
// sends, and reports one line per request.
func Run(ctx context.Context, w io.Writer, logPath, url string, delay time.Duration) error {
	blocks, err := capture.ScanFile(logPath)
	if err != nil {
		return err
	}
	bodies := ExtractBodies(blocks)
	fmt.Fprintf(w, "Replaying %d captured requests against %s\n\n", len(bodies), url)

	hc := &http.Client{} // per-request deadlines come from ctx

	for i, body := range bodies {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		items := gjson.GetBytes(body, "input").Array()
		res := Send(ctx, hc, url, body)
		res.Index = i + 1

		if res.Err != nil {
			fmt.Fprintf(w, "Request %02d | items=%d | ERROR: %v\n", res.Index, len(items), res.Err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintf(w, "Request %02d | items=%d | status=%d | %s | streamed=%t | output_chars=%d\n",
			res.Index, len(items), res.Status, res.Duration.Round(time.Millisecond), res.Streamed, res.OutputChars)
	}
	return nil
}
