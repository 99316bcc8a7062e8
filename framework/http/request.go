package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxBody = 1 << 20 // 1 MB

// ErrEmptyBody is returned by Bind for a request without a body.
var ErrEmptyBody = errors.New("http: empty request body")

// Request wraps *http.Request with input helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON body into v. Bodies larger than 1 MB and unknown
// fields are rejected.
func (req *Request) Bind(v any) error {
	if ct := req.raw.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return fmt.Errorf("http: unsupported content type %q", ct)
	}
	defer req.raw.Body.Close()

	dec := json.NewDecoder(io.LimitReader(req.raw.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("http: decode body: %w", err)
	}
	return nil
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value, or fallback when it is empty.
func (req *Request) Query(key string, fallback ...string) string {
	return first([]string{req.raw.URL.Query().Get(key)}, first(fallback, ""))
}

// Param returns a chi route parameter.
func (req *Request) Param(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}
