// Package capture records handled requests to an append-only log file and
// reads them back. Each request is one block: a timestamped separator line
// naming the method, path, and request ID, then a header dump and the raw
// body. A block ends at the next separator line or end of file. The inspect
// and replay tools depend on this exact shape.
package capture

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// maxLineBytes bounds a single scanned line; request bodies are written on
// one line and system prompts run to tens of kilobytes.
const maxLineBytes = 16 * 1024 * 1024

var separatorRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) ==== ([A-Z]+) (\S+) id=(\S+) ====$`)

// Block is one captured request.
type Block struct {
	Time    time.Time
	Method  string
	Path    string
	ID      string
	Headers map[string]string
	Body    []byte
}

// Writer appends blocks to a log file. Safe for concurrent use; blocks from
// concurrent requests never interleave, though their order is unspecified.
type Writer struct {
	mu sync.Mutex
	f  *os.File
}

// OpenWriter opens (or creates) the capture log for appending.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture log: %w", err)
	}
	return &Writer{f: f}, nil
}

// Record writes one block for a handled request.
func (w *Writer) Record(id, method, path string, header http.Header, body []byte) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ==== %s %s id=%s ====\n", time.Now().Format(timeFormat), method, path, id)
	b.WriteString("HEADERS:\n")

	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, strings.Join(header[k], ", "))
	}

	b.WriteString("BODY:\n")
	b.Write(body)
	if len(body) == 0 || body[len(body)-1] != '\n' {
		b.WriteByte('\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.f.WriteString(b.String())
	return err
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ScanBlocks parses a capture log back into blocks. Unparseable leading text
// is skipped; a malformed block body is kept as-is (the log is a best-effort
// trace, not a database).
func ScanBlocks(r io.Reader) ([]Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var blocks []Block
	var cur *Block
	var bodyLines []string
	inBody := false

	flush := func() {
		if cur == nil {
			return
		}
		body := strings.Join(bodyLines, "\n")
		cur.Body = []byte(strings.TrimRight(body, "\n"))
		blocks = append(blocks, *cur)
		cur = nil
		bodyLines = nil
		inBody = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if m := separatorRE.FindStringSubmatch(line); m != nil {
			flush()
			ts, _ := time.Parse(timeFormat, m[1])
			cur = &Block{
				Time:    ts,
				Method:  m[2],
				Path:    m[3],
				ID:      m[4],
				Headers: map[string]string{},
			}
			continue
		}
		if cur == nil {
			continue
		}

		switch {
		case line == "HEADERS:":
			inBody = false
		case line == "BODY:":
			inBody = true
		case inBody:
			bodyLines = append(bodyLines, line)
		default:
			if k, v, ok := strings.Cut(line, ": "); ok {
				cur.Headers[k] = v
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return blocks, fmt.Errorf("scan capture log: %w", err)
	}
	return blocks, nil
}

// ScanFile is ScanBlocks over a file on disk.
func ScanFile(path string) ([]Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture log: %w", err)
	}
	defer f.Close()
	return ScanBlocks(f)
}
