package http_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	gohttp "github.com/km-arc/summer/framework/http"
)

func newJSONRequest(t *testing.T, body string) *gohttp.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return gohttp.NewRequest(req)
}

type greetingInput struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

func TestRequest_Bind(t *testing.T) {
	var in greetingInput
	if err := newJSONRequest(t, `{"name":"Ada","lang":"fr"}`).Bind(&in); err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	if in.Name != "Ada" || in.Lang != "fr" {
		t.Errorf("got %+v", in)
	}
}

func TestRequest_Bind_EmptyBody(t *testing.T) {
	var in greetingInput
	err := newJSONRequest(t, "").Bind(&in)
	if !errors.Is(err, gohttp.ErrEmptyBody) {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}
}

func TestRequest_Bind_UnknownField(t *testing.T) {
	var in greetingInput
	if err := newJSONRequest(t, `{"name":"Ada","extra":1}`).Bind(&in); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestRequest_Bind_WrongContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=Ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var in greetingInput
	if err := gohttp.NewRequest(req).Bind(&in); err == nil {
		t.Error("expected error for form body")
	}
}

func TestRequest_Query(t *testing.T) {
	req := gohttp.NewRequest(httptest.NewRequest(http.MethodGet, "/?lang=de", nil))

	if got := req.Query("lang"); got != "de" {
		t.Errorf("Query(lang): got %q", got)
	}
	if got := req.Query("missing", "en"); got != "en" {
		t.Errorf("Query fallback: got %q", got)
	}
	if got := req.Query("missing"); got != "" {
		t.Errorf("Query without fallback: got %q", got)
	}
}

func TestRequest_ParamAndHeader(t *testing.T) {
	r := chi.NewRouter()
	var name, reqID string
	r.Get("/greet/{name}", func(w http.ResponseWriter, raw *http.Request) {
		req := gohttp.NewRequest(raw)
		name = req.Param("name")
		reqID = req.Header("X-Request-Id")
	})

	raw := httptest.NewRequest(http.MethodGet, "/greet/grace", nil)
	raw.Header.Set("X-Request-Id", "abc")
	r.ServeHTTP(httptest.NewRecorder(), raw)

	if name != "grace" {
		t.Errorf("Param: got %q", name)
	}
	if reqID != "abc" {
		t.Errorf("Header: got %q", reqID)
	}
}
