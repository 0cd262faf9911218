package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposition(t *testing.T) {
	c := NewCollector()
	c.RecordRequest("POST", "/v1/responses", "200", 1200*time.Millisecond)
	c.RecordNormalization(3, 2, 1)
	c.RecordStreamBytes(4096)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`prefixproxy_requests_total{method="POST",path="/v1/responses",status="200"} 1`,
		`prefixproxy_timestamps_stripped_total 3`,
		`prefixproxy_message_ids_stripped_total 2`,
		`prefixproxy_items_modified_total 1`,
		`prefixproxy_stream_bytes_relayed_total 4096`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two collectors must not panic on duplicate registration.
	a := NewCollector()
	b := NewCollector()
	a.RecordStreamBytes(1)
	b.RecordStreamBytes(2)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "prefixproxy_stream_bytes_relayed_total 1") {
		t.Error("collector a should report only its own bytes")
	}
}
