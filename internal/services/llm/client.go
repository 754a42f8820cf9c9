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
	"sync/atomic"
	"time"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
	defaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	maxErrorBody       = 2048
)

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system turn.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User builds a user turn.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Usage totals the tokens billed across every successful completion.
type Usage struct {
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
}

// Client wraps a chat completions endpoint that answers in JSON.
type Client struct {
	cfg         Config
	endpoint    string
	httpClient  *http.Client
	temperature float64
	retry       RetryPolicy
	sleeper     func(time.Duration)

	requests         atomic.Int64
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTemperature sets the sampling temperature (defaults to 0).
func WithTemperature(temperature float64) Option {
	return func(c *Client) { c.temperature = temperature }
}

// WithRetryPolicy replaces the default retry policy. Zero fields keep their defaults.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) { c.retry = c.retry.merge(policy) }
}

// WithSleeper replaces the wait between attempts; tests use it to avoid real delays.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = Config{
		APIKey:         strings.TrimSpace(cfg.APIKey),
		BaseURL:        strings.TrimSpace(cfg.BaseURL),
		Model:          strings.TrimSpace(cfg.Model),
		Referer:        strings.TrimSpace(cfg.Referer),
		Title:          strings.TrimSpace(cfg.Title),
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		endpoint:   cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryPolicy(),
	}
	if client.endpoint == "" {
		client.endpoint = defaultEndpoint
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Usage reports the accumulated token usage of this client.
func (c *Client) Usage() Usage {
	return Usage{
		Requests:         c.requests.Load(),
		PromptTokens:     c.promptTokens.Load(),
		CompletionTokens: c.completionTokens.Load(),
	}
}

// CompleteJSON issues a system plus user prompt and returns the raw JSON
// payload produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	return c.Complete(ctx, "llm complete", System(systemPrompt), User(userPrompt))
}

// Complete sends messages in order and returns the model's JSON answer. op
// prefixes every error.
func (c *Client) Complete(ctx context.Context, op string, messages ...Message) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%s: api key required", op)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("%s: no messages", op)
	}
	body, err := json.Marshal(chatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    c.temperature,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	})
	if err != nil {
		return "", fmt.Errorf("%s: encode body: %w", op, err)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		content, err := c.attempt(ctx, op, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt)
		if !retry {
			if attempt == 1 {
				return "", err
			}
			return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, lastErr)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// HealthCheck issues a tiny request to verify the key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.Complete(ctx, "llm health",
		System("You must respond with JSON only."),
		User(`Respond with {"ok":true}`),
	)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, e.Body)
}

// attempt performs one request and extracts the answer. An answer without
// content is an emptyContentError, which the retry policy treats as transient.
func (c *Client) attempt(ctx context.Context, op string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: http error (timeout=%s): %w", op, c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		text := strings.TrimSpace(string(raw))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: text, RetryAfter: retryAfter}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("%s: api error: %s", op, strings.TrimSpace(completion.Error.Message))
	}
	c.recordUsage(completion)

	content, finishReason := extractCompletionPayload(completion)
	if content != "" {
		return content, nil
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", op)
	}
	return "", &emptyContentError{
		Op:           op,
		FinishReason: finishReason,
		Refusal:      extractCompletionRefusal(completion),
		Snippet:      summarizePayloadSnippet(string(raw)),
	}
}

func (c *Client) recordUsage(completion chatCompletionResponse) {
	c.requests.Add(1)
	if completion.Usage != nil {
		c.promptTokens.Add(int64(completion.Usage.PromptTokens))
		c.completionTokens.Add(int64(completion.Usage.CompletionTokens))
	}
}
