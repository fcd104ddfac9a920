package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubNegotiator struct {
	seen string
}

func (s *stubNegotiator) Negotiate(header string) string {
	s.seen = header
	if header == "" {
		return "en"
	}
	return "hi"
}

func TestLanguagePrefersQueryParam(t *testing.T) {
	negotiator := &stubNegotiator{}
	var got string
	handler := Language(negotiator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LanguageFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart?lang=hi", nil)
	req.Header.Set("Accept-Language", "gu")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if negotiator.seen != "hi" {
		t.Fatalf("expected query param to win, negotiated %q", negotiator.seen)
	}
	if got != "hi" {
		t.Fatalf("expected hi in context, got %q", got)
	}
	if cl := resp.Header().Get("Content-Language"); cl != "hi" {
		t.Fatalf("unexpected Content-Language %q", cl)
	}
}

func TestLanguageFallsBackToHeader(t *testing.T) {
	negotiator := &stubNegotiator{}
	handler := Language(negotiator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Accept-Language", "mr-IN,mr;q=0.9")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if negotiator.seen != "mr-IN,mr;q=0.9" {
		t.Fatalf("unexpected negotiated header %q", negotiator.seen)
	}
}

func TestLanguageNilNegotiatorPassesThrough(t *testing.T) {
	called := false
	handler := Language(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if lang := LanguageFromContext(r.Context()); lang != "" {
			t.Fatalf("expected no language, got %q", lang)
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("handler should run")
	}
}
