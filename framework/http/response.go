// Package http provides JSON response helpers for handlers mounted on the
// framework router.
//
//	func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
//	    res := gohttp.NewResponse(w)
//	    bean, ok := h.lookup(routing.Param(r, "name"))
//	    if !ok {
//	        res.NotFound("No such bean.")
//	        return
//	    }
//	    res.Success(bean) // 200 {"data": ...}
//	}
package http

import (
	"encoding/json"
	"net/http"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// ── Plain text ───────────────────────────────────────────────────────────────

// Text sends a plain-text body with the given content type, or text/plain
// when contentType is empty.
func (res *Response) Text(status int, contentType, body string) {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	res.w.Header().Set("Content-Type", contentType)
	res.w.WriteHeader(status)
	_, _ = res.w.Write([]byte(body))
}

// ── Error helpers ─────────────────────────────────────────────────────────────

// Error sends a JSON error response.
//
//	res.Error(http.StatusBadRequest, "name is required")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
