package domainprovider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "tok_123", "prj_1", "team_9", 5*time.Second)
}

func TestAddDomainSendsNameAndAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v10/projects/prj_1/domains" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("teamId") != "team_9" {
			t.Errorf("teamId missing: %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok_123" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"name":"example.com"}` {
			t.Errorf("body = %s", b)
		}
		_, _ = w.Write([]byte(`{"name":"example.com","verified":false}`))
	})

	raw, err := c.AddDomain(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if !strings.Contains(string(raw), `"verified":false`) {
		t.Fatalf("raw = %s", raw)
	}
}

func TestProviderErrorMessageVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_domain","message":"The domain \"exa mple\" is invalid."}}`))
	})

	_, err := c.GetDomain(context.Background(), "example.com")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("got %T %v", err, err)
	}
	if pe.Message != `The domain "exa mple" is invalid.` || pe.Code != "invalid_domain" || pe.Status != 400 {
		t.Fatalf("unexpected %+v", pe)
	}
	if err.Error() != pe.Message {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestProviderErrorPlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	_, err := c.VerifyDomain(context.Background(), "example.com")
	if err == nil || err.Error() != "upstream unavailable" {
		t.Fatalf("got %v", err)
	}
}

func TestIsAlreadyExists(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&ProviderError{Status: 409, Code: "domain_already_exists"}, true},
		{&ProviderError{Status: 400, Message: "Domain already exists on this project"}, true},
		{&ProviderError{Status: 409, Code: "domain_already_in_use", Message: "in use by another project"}, false},
		{errors.New("already exists"), false},
	}
	for _, tc := range cases {
		if got := IsAlreadyExists(tc.err); got != tc.want {
			t.Errorf("IsAlreadyExists(%v) = %v", tc.err, got)
		}
	}
}

func TestRemoveDomainNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v9/projects/prj_1/domains/example.com" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"Domain not found"}}`))
	})

	err := c.RemoveDomain(context.Background(), "example.com")
	if !IsNotFound(err) {
		t.Fatalf("got %v", err)
	}
}
