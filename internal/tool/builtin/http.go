package builtin

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const (
	httpMaxResponseChars = 8000
	httpDefaultTimeout   = 10 * time.Second
)

// privateNetworks lists address ranges an outbound fetch must never reach,
// blocking the most common SSRF pivots into internal infrastructure.
var privateNetworks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8", "10.0.0.0/8", "100.64.0.0/10", "127.0.0.0/8",
		"169.254.0.0/16", "172.16.0.0/12", "192.168.0.0/16",
		"::1/128", "fc00::/7", "fe80::/10",
	} {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			privateNetworks = append(privateNetworks, network)
		}
	}
}

func isPrivateAddr(host string) bool {
	ips, err := net.LookupIP(host)
	if err != nil {
		return false // let the dial fail naturally; this is a best-effort guard
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() {
			return true
		}
		for _, n := range privateNetworks {
			if n.Contains(ip) {
				return true
			}
		}
	}
	return false
}

// HTTPFetchTool issues a GET request to a URL, rejecting targets that
// resolve to a private or loopback address.
type HTTPFetchTool struct {
	client *http.Client
}

func NewHTTPFetchTool() *HTTPFetchTool {
	return &HTTPFetchTool{client: &http.Client{Timeout: httpDefaultTimeout}}
}

func (t *HTTPFetchTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "http_fetch",
		Description: "Fetch a URL over HTTP GET and return its response body (truncated).",
		Category:    "network",
		Properties: map[string]agentcore.ParameterSchema{
			"url": {Type: "string", Description: "URL to fetch."},
		},
		Required:     []string{"url"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityNetwork, agentcore.CapabilityExpensive},
		Version:      "1.0.0",
	}
}

func (t *HTTPFetchTool) Dependencies() []string { return nil }

func (t *HTTPFetchTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	raw, _ := stringArg(args, "url")
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return tool.ValidationResult{Valid: false, Errors: []string{"url must start with http:// or https://"}}
	}
	return tool.ValidationResult{Valid: true}
}

func (t *HTTPFetchTool) Execute(ctx context.Context, args map[string]any, _ agentcore.Context) (agentcore.ExecutionResult, error) {
	raw, _ := stringArg(args, "url")

	host, _, err := net.SplitHostPort(strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://"))
	if err != nil {
		host = strings.SplitN(strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://"), "/", 2)[0]
	}
	if isPrivateAddr(host) {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("refusing to fetch %q: resolves to a private address", raw)}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}, nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, httpMaxResponseChars*4))
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("read response failed: %v", err)}, nil
	}

	text := string(body)
	if len(text) > httpMaxResponseChars {
		text = text[:httpMaxResponseChars] + "... (truncated)"
	}

	return agentcore.ExecutionResult{
		Success: resp.StatusCode < 400,
		Output:  text,
		Metadata: map[string]any{
			"status_code": resp.StatusCode,
		},
	}, nil
}

func (t *HTTPFetchTool) Rollback(_ context.Context, _ string) error { return tool.ErrRollbackUnsupported }
func (t *HTTPFetchTool) Init(_ context.Context) error               { return nil }
func (t *HTTPFetchTool) Close() error                               { return nil }
