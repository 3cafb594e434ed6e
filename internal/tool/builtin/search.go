package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const (
	searchHTTPTimeout    = 15 * time.Second
	searchMaxResults     = 5
	searchMaxResultChars = 300
	searchMaxQueryChars  = 1000
	searchMaxBody        = 5 << 20
	searchErrMaxBody     = 1 << 20
	searchErrBodyShow    = 200

)

// overridable in tests so braveSearch/tavilySearch can be exercised against
// an httptest.Server without a real API key or network access.
var (
	braveSearchURL  = "https://api.search.brave.com/res/v1/web/search"
	tavilySearchURL = "https://api.tavily.com/search"
)

// searchResult is a single normalized result shared by every provider.
type searchResult struct {
	Title       string
	URL         string
	Description string
}

func formatSearchResults(results []searchResult) string {
	if len(results) == 0 {
		return "no results found"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d results:\n\n", len(results))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[%d] %s\n    %s\n    %s\n\n", i+1, r.Title, r.URL, safeRuneTruncate(r.Description, searchMaxResultChars)))
	}
	return sb.String()
}

// searchProvider issues the provider-specific HTTP call and returns
// normalized results and a summary, or a Go error describing what went
// wrong, which Execute folds into a failed ExecutionResult.
type searchProvider func(ctx context.Context, client *http.Client, apiKey, query string) ([]searchResult, string, error)

// WebSearchTool provides web search through a pluggable provider (Brave or
// Tavily, selected at construction time by which API key is configured).
// Only one provider is active per instance, matching the teacher's split
// into two distinct tools — this runtime merges them behind one type (the
// registered name is brave_search or web_search by provider) since both realize the same "search" capability spec.md's tool catalog names.
type WebSearchTool struct {
	provider searchProvider
	apiKey   string
	name     string
	client   *http.Client
}

func NewBraveSearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{provider: braveSearch, apiKey: apiKey, name: "brave_search", client: &http.Client{}}
}

func NewTavilySearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{provider: tavilySearch, apiKey: apiKey, name: "web_search", client: &http.Client{}}
}

func (t *WebSearchTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        t.name,
		Description: "Search the web for a query and return the top results.",
		Category:    "network",
		Properties: map[string]agentcore.ParameterSchema{
			"query": {Type: "string", Description: "Search query."},
		},
		Required:     []string{"query"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityNetwork, agentcore.CapabilityExpensive},
		Version:      "1.0.0",
	}
}

func (t *WebSearchTool) Dependencies() []string { return nil }

func (t *WebSearchTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	q, _ := stringArg(args, "query")
	q = strings.TrimSpace(q)
	if q == "" {
		return tool.ValidationResult{Valid: false, Errors: []string{"query must not be empty"}}
	}
	if len([]rune(q)) > searchMaxQueryChars {
		return tool.ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("query exceeds %d characters", searchMaxQueryChars)}}
	}
	return tool.ValidationResult{Valid: true}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any, _ agentcore.Context) (agentcore.ExecutionResult, error) {
	query, _ := stringArg(args, "query")
	query = strings.TrimSpace(query)

	httpCtx, cancel := context.WithTimeout(ctx, searchHTTPTimeout)
	defer cancel()

	results, summary, err := t.provider(httpCtx, t.client, t.apiKey, query)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	output := formatSearchResults(results)
	if summary != "" {
		output = fmt.Sprintf("summary: %s\n\n%s", summary, output)
	}
	return agentcore.ExecutionResult{Success: true, Output: output}, nil
}

func (t *WebSearchTool) Rollback(_ context.Context, _ string) error { return tool.ErrRollbackUnsupported }

// Init validates the API key is configured; a tool with no key fails fast
// at registry.InitAll rather than on every search call.
func (t *WebSearchTool) Init(_ context.Context) error {
	if t.apiKey == "" {
		return fmt.Errorf("%s: no API key configured", t.name)
	}
	return nil
}

func (t *WebSearchTool) Close() error { return nil }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func braveSearch(ctx context.Context, client *http.Client, apiKey, query string) ([]searchResult, string, error) {
	u, err := url.Parse(braveSearchURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", searchMaxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, searchErrMaxBody))
		return nil, "", fmt.Errorf("brave search error (HTTP %d): %s", resp.StatusCode, safeRuneTruncate(strings.TrimSpace(string(body)), searchErrBodyShow))
	}

	var parsed braveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, searchMaxBody)).Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("parse response: %w", err)
	}

	results := make([]searchResult, len(parsed.Web.Results))
	for i, r := range parsed.Web.Results {
		results[i] = searchResult{Title: r.Title, URL: r.URL, Description: r.Description}
	}
	return results, "", nil
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer,omitempty"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func tavilySearch(ctx context.Context, client *http.Client, apiKey, query string) ([]searchResult, string, error) {
	reqBody, err := json.Marshal(tavilyRequest{APIKey: apiKey, Query: query, MaxResults: searchMaxResults})
	if err != nil {
		return nil, "", fmt.Errorf("build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilySearchURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, searchErrMaxBody))
		return nil, "", fmt.Errorf("tavily search error (HTTP %d): %s", resp.StatusCode, safeRuneTruncate(strings.TrimSpace(string(body)), searchErrBodyShow))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, searchMaxBody)).Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("parse response: %w", err)
	}

	results := make([]searchResult, len(parsed.Results))
	for i, r := range parsed.Results {
		results[i] = searchResult{Title: r.Title, URL: r.URL, Description: r.Content}
	}
	return results, parsed.Answer, nil
}
