// Package llmclient implements llm.Provider against any OpenAI-compatible
// chat completions endpoint.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	openailib "github.com/sashabaranov/go-openai"

	"github.com/pocketomega/agentrt/internal/llm"
)

// Client implements llm.Provider using the OpenAI-compatible protocol.
type Client struct {
	client *openailib.Client
	config *Config
}

// NewClient creates a Client from an explicit Config.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("openai: config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("openai: invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(config.HTTPTimeout) * time.Second}

	return &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewClientFromEnv creates a Client from the LLM_* environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("openai: load config from env: %w", err)
	}
	return NewClient(config)
}

// Name returns the provider's display name, including its configured model.
func (c *Client) Name() string {
	return fmt.Sprintf("openai-compatible (%s)", c.config.Model)
}

func (c *Client) buildRequest(req llm.Request) openailib.ChatCompletionRequest {
	messages := make([]openailib.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openailib.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	out := openailib.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.ResponseFormat == "json" {
		out.ResponseFormat = &openailib.ChatCompletionResponseFormat{Type: openailib.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

// Complete issues one chat completion call, retrying any failed call up to
// config.MaxRetries times with a linear backoff; it does not tell transient
// errors from permanent ones.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	openaiReq := c.buildRequest(req)

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, openaiReq)
		if lastErr == nil {
			break
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] retry %d/%d after %v, error: %v", attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return llm.Response{}, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return llm.Response{}, fmt.Errorf("openai: call failed after %d retries: %w", c.config.MaxRetries, lastErr)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai: no choices returned")
	}

	return llm.Response{
		Content: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// CompleteStream streams content deltas to onChunk, falling back to a
// synchronous Complete call if the stream cannot be opened at all.
func (c *Client) CompleteStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk)) (llm.Response, error) {
	openaiReq := c.buildRequest(req)
	openaiReq.Stream = true
	openaiReq.StreamOptions = &openailib.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		log.Printf("[LLM] stream creation failed, falling back to sync: %v", err)
		resp, err := c.Complete(ctx, req)
		if err == nil {
			onChunk(llm.StreamChunk{Content: resp.Content, Done: true, Usage: resp.Usage})
		}
		return resp, err
	}
	defer stream.Close()

	var content string
	var usage llm.Usage
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if content != "" {
				log.Printf("[LLM] stream interrupted after %d chars: %v", len(content), err)
				break
			}
			return llm.Response{}, fmt.Errorf("openai: stream recv: %w", err)
		}
		if chunk.Usage != nil {
			usage = llm.Usage{PromptTokens: chunk.Usage.PromptTokens, CompletionTokens: chunk.Usage.CompletionTokens}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content += delta
		onChunk(llm.StreamChunk{Content: delta})
	}

	resp := llm.Response{Content: content, Usage: usage}
	onChunk(llm.StreamChunk{Done: true, Usage: usage})
	return resp, nil
}
