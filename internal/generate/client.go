// internal/generate/client.go
//
// Site generation against an OpenAI-compatible chat-completions API.
//
/*
Context
--------
The caller brings their own API key on every request; nothing here stores
it.  One call per request, no retries, no streaming.

Workflow
--------
  1. Resolve the optional catalog template; its prompt prefixes the user's.
  2. POST {base_url}/chat/completions with a fixed system instruction.
  3. Take choices[0].message.content and coerce it into a full document.

Non-2xx answers become *UpstreamError with the upstream message intact,
so the browser shows what the model provider said.

Notes
-----
  • Error bodies are read through a 64 KB limit.
  • Oxford commas, two spaces after periods.
*/
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/metrics"
)

const (
	maxErrorBody = 64 * 1024
	defaultTitle = "My Site"

	systemPrompt = "You are a web designer.  Reply with one complete, self-contained " +
		"HTML5 document using inline CSS and no external scripts.  Reply with HTML only."
)

// UpstreamError is a non-2xx answer from the model provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("generation failed with status %d", e.Status)
}

// ErrEmptyCompletion means the provider answered 2xx with no content.
var ErrEmptyCompletion = errors.New("model returned no content")

// Request is one generation call.
type Request struct {
	APIKey   string
	Prompt   string
	Template string
}

// Generator is safe for concurrent use.
type Generator struct {
	baseURL   string
	model     string
	maxTokens int
	catalog   *Catalog
	http      *http.Client
}

// New builds a Generator.  catalog may be nil, in which case any template
// id is rejected.
func New(baseURL, model string, maxTokens int, timeout time.Duration, catalog *Catalog) *Generator {
	if catalog == nil {
		catalog = &Catalog{byID: map[string]*Template{}}
	}
	return &Generator{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		catalog:   catalog,
		http:      &http.Client{Timeout: timeout},
	}
}

// Catalog exposes the template list for the templates endpoint.
func (g *Generator) Catalog() *Catalog { return g.catalog }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns a complete HTML document for req.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	title := defaultTitle
	prompt := strings.TrimSpace(req.Prompt)
	if req.Template != "" {
		t, err := g.catalog.Lookup(req.Template)
		if err != nil {
			return "", err
		}
		title = t.Name
		prompt = strings.TrimSpace(t.Prompt) + "\n\n" + prompt
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", err
	}

	text, err := g.complete(ctx, req.APIKey, body)
	if err != nil {
		metrics.GenerateTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warnw("generation failed", "template", req.Template, "err", err)
		return "", err
	}
	metrics.GenerateTotal.WithLabelValues("ok").Inc()
	return EnsureDocument(text, title), nil
}

func (g *Generator) complete(ctx context.Context, apiKey string, body []byte) (string, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	hreq.Header.Set("Authorization", "Bearer "+apiKey)
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", parseUpstream(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// parseUpstream decodes {"error":{"message"}}, falling back to the raw
// body text.
func parseUpstream(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	ue := &UpstreamError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		ue.Message = env.Error.Message
		return ue
	}
	ue.Message = strings.TrimSpace(string(raw))
	return ue
}
