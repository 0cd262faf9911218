package server

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// relayBufferSize is the chunk size for the stream relay.
const relayBufferSize = 32 * 1024

// relayStream passes the backend byte stream to the client exactly as
// received: chunk in, chunk out, flush. The stream is never treated as lines —
// SSE events span multiple lines ("event:"/"data:") separated by blank lines,
// and re-segmenting by line corrupts multi-field events into empty payloads.
//
// On backend error or client disconnect the relay stops; bytes already sent
// stand. The inbound request context cancels the backend request, so an
// abandoned stream is not drained.
func (s *Server) relayStream(w http.ResponseWriter, resp *http.Response) {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "text/event-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(resp.StatusCode)

	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	start := time.Now()
	var relayed int64
	var relayErr error
	buf := make([]byte, relayBufferSize)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				relayErr = werr
				break
			}
			if canFlush {
				flusher.Flush()
			}
			relayed += int64(n)
		}
		if err != nil {
			if err != io.EOF {
				relayErr = err
			}
			break
		}
	}

	s.metrics.RecordStreamBytes(relayed)
	elapsed := time.Since(start).Round(time.Millisecond)
	if relayErr != nil {
		slog.Warn("stream aborted", "bytes", relayed, "elapsed", elapsed, "error", relayErr)
		return
	}
	slog.Info("stream done", "bytes", relayed, "elapsed", elapsed)
}
