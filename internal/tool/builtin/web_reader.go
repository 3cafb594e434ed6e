package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const (
	webReaderTimeout      = 15 * time.Second
	webReaderMaxBody      = 2 << 20
	webReaderMaxChars     = 8000
	webReaderUserAgent    = "agentrt/0.1 (Web Reader Tool)"
	webReaderMaxRedirects = 10
)

var webReaderClient = &http.Client{
	Timeout: webReaderTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= webReaderMaxRedirects {
			return fmt.Errorf("exceeded maximum redirects (%d)", webReaderMaxRedirects)
		}
		return nil
	},
}

// WebReaderTool fetches a URL and extracts its main text content, stripping
// navigation/script/style chrome so the page reads like an article rather
// than raw HTML. It complements HTTPFetchTool, which returns the raw body.
type WebReaderTool struct{}

func NewWebReaderTool() *WebReaderTool { return &WebReaderTool{} }

func (t *WebReaderTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "web_reader",
		Description: "Fetch a web page and extract its title and main text content.",
		Category:    "network",
		Properties: map[string]agentcore.ParameterSchema{
			"url": {Type: "string", Description: "URL to read, must start with http:// or https://."},
		},
		Required:     []string{"url"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityNetwork, agentcore.CapabilityExpensive},
		Version:      "1.0.0",
	}
}

func (t *WebReaderTool) Dependencies() []string { return nil }

func (t *WebReaderTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	raw, _ := stringArg(args, "url")
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return tool.ValidationResult{Valid: false, Errors: []string{"url must start with http:// or https://"}}
	}
	return tool.ValidationResult{Valid: true}
}

func (t *WebReaderTool) Execute(ctx context.Context, args map[string]any, _ agentcore.Context) (agentcore.ExecutionResult, error) {
	raw, _ := stringArg(args, "url")
	raw = strings.TrimSpace(raw)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}, nil
	}
	req.Header.Set("User-Agent", webReaderUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := webReaderClient.Do(req)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)}, nil
	}

	limited := io.LimitReader(resp.Body, webReaderMaxBody)
	contentType := resp.Header.Get("Content-Type")
	ctLower := strings.ToLower(contentType)

	if strings.Contains(ctLower, "application/json") {
		raw, _ := io.ReadAll(limited)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err == nil {
			return agentcore.ExecutionResult{Success: true, Output: truncateWebContent(pretty.String())}, nil
		}
		return agentcore.ExecutionResult{Success: true, Output: truncateWebContent(string(raw))}, nil
	}
	if strings.Contains(ctLower, "text/plain") {
		raw, _ := io.ReadAll(limited)
		return agentcore.ExecutionResult{Success: true, Output: truncateWebContent(string(raw))}, nil
	}
	if !strings.Contains(ctLower, "text/html") && !strings.Contains(ctLower, "application/xhtml") {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("unsupported content type: %s", contentType)}, nil
	}

	utf8Reader, err := charset.NewReader(limited, contentType)
	if err != nil {
		utf8Reader = limited
	}

	title, description, content, err := extractPageContent(utf8Reader)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("content parse failed: %v", err)}, nil
	}

	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "title: %s\n\n", title)
	}
	if description != "" {
		fmt.Fprintf(&sb, "summary: %s\n\n", description)
	}
	if content == "" {
		sb.WriteString("(no main content extracted)")
	} else {
		sb.WriteString(truncateWebContent(content))
	}

	return agentcore.ExecutionResult{Success: true, Output: sb.String()}, nil
}

func (t *WebReaderTool) Rollback(_ context.Context, _ string) error { return tool.ErrRollbackUnsupported }
func (t *WebReaderTool) Init(_ context.Context) error               { return nil }
func (t *WebReaderTool) Close() error                               { return nil }

func truncateWebContent(content string) string {
	runes := []rune(content)
	if len(runes) > webReaderMaxChars {
		return string(runes[:webReaderMaxChars]) + "\n\n...(truncated)"
	}
	return content
}

var webReaderSkipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "footer": true, "form": true,
	"aside": true, "iframe": true, "svg": true,
}

// extractPageContent walks the HTML token stream, collecting the <title>, a
// meta description, and the visible text of the page while skipping
// non-content chrome. <header> is skipped only at page level so a
// within-<article> header (a post byline, say) survives.
func extractPageContent(r io.Reader) (title, description, content string, err error) {
	tokenizer := html.NewTokenizer(r)

	var sb strings.Builder
	var inTitle, inSkip bool
	skipDepth := 0
	articleDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			result := collapseBlankLines(strings.TrimSpace(sb.String()))
			if parseErr := tokenizer.Err(); parseErr != io.EOF {
				return title, description, result, parseErr
			}
			return title, description, result, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "meta" && hasAttr && description == "" {
				var nameVal, propertyVal, contentVal string
				for {
					key, val, more := tokenizer.TagAttr()
					switch string(key) {
					case "name":
						nameVal = strings.ToLower(string(val))
					case "property":
						propertyVal = strings.ToLower(string(val))
					case "content":
						contentVal = string(val)
					}
					if !more {
						break
					}
				}
				if nameVal == "description" && contentVal != "" {
					description = contentVal
				} else if propertyVal == "og:description" && contentVal != "" {
					description = contentVal
				}
				continue
			}

			if tt == html.SelfClosingTagToken {
				continue
			}
			if tagName == "title" {
				inTitle = true
			}
			if tagName == "article" {
				articleDepth++
			}
			if tagName == "header" && articleDepth == 0 {
				inSkip = true
				skipDepth++
			}
			if webReaderSkipTags[tagName] {
				inSkip = true
				skipDepth++
			}
			if !inSkip && isBlockElement(tagName) && sb.Len() > 0 {
				s := sb.String()
				if s[len(s)-1] != '\n' {
					sb.WriteString("\n")
				}
			}
			if !inSkip && (tagName == "td" || tagName == "th") && sb.Len() > 0 {
				s := sb.String()
				if s[len(s)-1] != '\n' && s[len(s)-1] != '|' {
					sb.WriteString(" | ")
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "title" {
				inTitle = false
			}
			if tagName == "article" && articleDepth > 0 {
				articleDepth--
			}
			isPageHeader := tagName == "header" && articleDepth == 0
			if (webReaderSkipTags[tagName] || isPageHeader) && skipDepth > 0 {
				skipDepth--
				if skipDepth == 0 {
					inSkip = false
				}
			}

		case html.TextToken:
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			if inTitle && title == "" {
				title = text
				continue
			}
			if !inSkip {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	blankCount := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, line)
			}
		} else {
			blankCount = 0
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
		"li", "tr", "br", "hr", "blockquote", "pre",
		"article", "section", "main",
		"table", "thead", "tbody", "tfoot":
		return true
	}
	return false
}
