package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"NewsDigest/internal/config"
	"NewsDigest/internal/textgen"
)

// ChatClient implements textgen.Generator backed by OpenAI-compatible
// chat completion APIs.
type ChatClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

var (
	_ textgen.Generator = (*ChatClient)(nil)
	_ textgen.Pinger    = (*ChatClient)(nil)
)

// NewChatClient builds a client from configuration. Per-call deadlines come
// from the caller's context.
func NewChatClient(cfg config.LLMConfig, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ChatClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the instruction as the system message and the rendered
// payloads as the user message, returning the first choice's content.
func (c *ChatClient) Generate(ctx context.Context, req textgen.Request) (string, error) {
	if err := c.configured(); err != nil {
		return "", err
	}
	prompt, err := req.Prompt()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(req.Instruction)},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", textgen.ErrMalformed, err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: chat response has no content", textgen.ErrMalformed)
	}
	return decoded.Choices[0].Message.Content, nil
}

// Ping lists models on the same API to check the key and reachability.
func (c *ChatClient) Ping(ctx context.Context) error {
	if err := c.configured(); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(c.endpoint), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", textgen.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: llm endpoint rejected credentials: %s", textgen.ErrUnavailable, resp.Status)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: llm endpoint unhealthy: %s", textgen.ErrUnavailable, resp.Status)
	}
	return nil
}

func (c *ChatClient) configured() error {
	if c == nil {
		return fmt.Errorf("%w: chat client is nil", textgen.ErrUnavailable)
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return fmt.Errorf("%w: chat client misconfigured", textgen.ErrUnavailable)
	}
	return nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("send chat request: %w", err)
	}
	return textgen.Transient(fmt.Errorf("send chat request: %w", err))
}

func statusError(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("chat api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return textgen.Transient(err)
	}
	return err
}

// modelsURL maps ".../chat/completions" to ".../models".
func modelsURL(endpoint string) string {
	base := strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/chat/completions")
	return base + "/models"
}
