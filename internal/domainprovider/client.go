// internal/domainprovider/client.go
//
// Typed client for the hosting provider's project-domains API.
//
/*
Context
--------
Four calls, all scoped to one project:

  AddDomain     POST   /v10/projects/{project}/domains          {"name": d}
  GetDomain     GET    /v9/projects/{project}/domains/{d}
  VerifyDomain  POST   /v9/projects/{project}/domains/{d}/verify
  RemoveDomain  DELETE /v9/projects/{project}/domains/{d}

Successful bodies come back as raw JSON; `Classify` and `ExtractRecords`
interpret them.  Failures become *ProviderError carrying the provider's
own message, which callers store verbatim.

Notes
-----
  • No retries.  The client polls, not us.
  • Error bodies are read through a 64 KB limit.
  • Oxford commas, two spaces after periods.
*/
package domainprovider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/yanizio/sitesmith/internal/metrics"
)

const maxErrorBody = 64 * 1024

/*──────────────────────────── errors ──────────────────────────────────────*/

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("provider %s failed with status %d", e.Op, e.Status)
}

// IsAlreadyExists reports whether err means the domain is already attached
// to this project, which callers treat as success.
func IsAlreadyExists(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code {
	case "domain_already_exists", "domain_already_in_project":
		return true
	}
	return strings.Contains(strings.ToLower(pe.Message), "already exists")
}

// IsNotFound reports a 404 from the provider.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound
}

/*──────────────────────────── client ──────────────────────────────────────*/

// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	token     string
	projectID string
	teamID    string
	http      *http.Client
}

// New builds a Client.  timeout bounds every call.
func New(baseURL, token, projectID, teamID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		teamID:    teamID,
		http:      &http.Client{Timeout: timeout},
	}
}

// AddDomain attaches name to the project.
func (c *Client) AddDomain(ctx context.Context, name string) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	return c.do(ctx, "add", http.MethodPost, fmt.Sprintf("/v10/projects/%s/domains", url.PathEscape(c.projectID)), body)
}

// GetDomain returns the current project-domain payload.
func (c *Client) GetDomain(ctx context.Context, name string) (json.RawMessage, error) {
	return c.do(ctx, "get", http.MethodGet, c.domainPath(name), nil)
}

// VerifyDomain asks the provider to re-check DNS now.
func (c *Client) VerifyDomain(ctx context.Context, name string) (json.RawMessage, error) {
	return c.do(ctx, "verify", http.MethodPost, c.domainPath(name)+"/verify", nil)
}

// RemoveDomain detaches name from the project.
func (c *Client) RemoveDomain(ctx context.Context, name string) error {
	_, err := c.do(ctx, "remove", http.MethodDelete, c.domainPath(name), nil)
	return err
}

func (c *Client) domainPath(name string) string {
	return fmt.Sprintf("/v9/projects/%s/domains/%s", url.PathEscape(c.projectID), url.PathEscape(name))
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (json.RawMessage, error) {
	u := c.baseURL + path
	if c.teamID != "" {
		u += "?teamId=" + url.QueryEscape(c.teamID)
	}

	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("provider %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, parseError(op, resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("provider %s read failed: %w", op, err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(op, "ok").Inc()

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(raw), nil
}

// parseError decodes {"error":{"code","message"}}, falling back to the
// raw body text as the message.
func parseError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	pe := &ProviderError{Op: op, Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &env); err == nil && (env.Error.Code != "" || env.Error.Message != "") {
		pe.Code, pe.Message = env.Error.Code, env.Error.Message
		return pe
	}
	pe.Message = strings.TrimSpace(string(raw))
	return pe
}
