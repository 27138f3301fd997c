// Package sse scans and writes Server-Sent Events streams, shared by every
// response translator that speaks SSE back to a client (OpenAI, Anthropic,
// Gemini) and by the upstream Code Assist stream reader.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"gemini-gateway/internal/constants"
	"github.com/gin-gonic/gin"
)

// Event is a parsed SSE payload.
type Event struct {
	Raw  []byte
	Data map[string]any
}

// Scanner iterates over SSE events from an upstream stream.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner creates a scanner with the standard buffer settings.
func NewScanner(r io.Reader) *Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, constants.SSEScannerInitialBufferSize)
	scanner.Buffer(buf, constants.SSEScannerMaxBufferSize)
	return &Scanner{scanner: scanner}
}

// Prepare sets standard SSE headers and returns the writer/flusher pair.
func Prepare(c *gin.Context) (gin.ResponseWriter, http.Flusher) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	w := c.Writer
	fl, _ := w.(http.Flusher)
	return w, fl
}

// Next returns the next SSE data event. When done is true, the stream ended
// (either upstream closed, or a "[DONE]" sentinel was seen).
func (s *Scanner) Next() (*Event, bool, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data:"):])
		if bytes.EqualFold(data, []byte("[DONE]")) {
			return nil, true, nil
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			continue
		}
		return &Event{Raw: append([]byte(nil), data...), Data: obj}, false, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// WriteEvent writes a named SSE event with a JSON payload.
func WriteEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	if event != "" {
		if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
			return err
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// WriteData writes an unnamed SSE data line with a JSON payload.
func WriteData(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	return WriteEvent(w, flusher, "", payload)
}

// WriteDone writes the OpenAI-style "[DONE]" sentinel.
func WriteDone(w http.ResponseWriter, flusher http.Flusher) error {
	if _, err := w.Write([]byte("data: [DONE]\n\n")); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
