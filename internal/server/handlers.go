package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/openclaw/prefixproxy/internal/normalize"
)

// handleResponses normalizes the input array of a Responses API request and
// forwards it, streaming or buffered depending on the request's stream flag.
func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	input := gjson.GetBytes(body, "input")
	if !input.IsArray() {
		// Not the shape we normalize; forward opaquely like any other route.
		s.forwardOpaque(w, r, body)
		return
	}

	normalized, stats := normalize.Input([]byte(input.Raw), s.rules)
	outBody, err := sjson.SetRawBytes(body, "input", normalized)
	if err != nil {
		// Normalization failures never abort a request.
		outBody = body
	}

	isStream := gjson.GetBytes(body, "stream").Bool()
	slog.Info("responses.forward",
		"items", len(input.Array()),
		"timestamps_removed", stats.TimestampsRemoved,
		"message_ids_removed", stats.MessageIDsRemoved,
		"items_modified", stats.ItemsModified,
		"stream", isStream,
	)
	if stats.TimestampsRemoved == 0 && stats.MessageIDsRemoved == 0 {
		slog.Warn("no volatile fields found; prompt sent as-is")
	}
	s.metrics.RecordNormalization(stats.TimestampsRemoved, stats.MessageIDsRemoved, stats.ItemsModified)

	resp, err := s.backend.Post(r.Context(), r.URL.Path, outBody)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	if isStream {
		s.relayStream(w, resp)
		return
	}
	writeBuffered(w, resp)
}

// handleModels is a buffered passthrough for the model listing.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.Get(r.Context(), r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()
	writeBuffered(w, resp)
}

// handlePassthrough forwards any unrecognized method/path verbatim and
// returns the backend response unchanged.
func (s *Server) handlePassthrough(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Verbose {
		slog.Info("passthrough", "method", r.Method, "path", r.URL.Path)
	}
	resp, err := s.backend.Forward(r.Context(), r.Method, r.URL.Path, r.URL.RawQuery, r.Header, r.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body) //nolint:errcheck // client disconnects are not actionable here
}

// forwardOpaque resends an already-read body with the inbound request's
// method, path, and headers.
func (s *Server) forwardOpaque(w http.ResponseWriter, r *http.Request, body []byte) {
	if s.cfg.Verbose {
		slog.Info("passthrough", "method", r.Method, "path", r.URL.Path)
	}
	resp, err := s.backend.Forward(r.Context(), r.Method, r.URL.Path, r.URL.RawQuery, r.Header, bytesReader(body))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()
	writeBuffered(w, resp)
}
