package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.0-flash"
	defaultHTTPTimeout = 120 * time.Second
	defaultMIMEType    = "image/jpeg"
)

// Failure kinds reported by the analysis endpoint. RateLimited and
// Unreachable are worth retrying; the rest will fail the same way every time.
const (
	KindRateLimited     = "rate_limited"
	KindUnreachable     = "unreachable"
	KindUnauthorized    = "unauthorized"
	KindInvalidResponse = "invalid_response"
)

// Error describes a failed analysis call with enough detail for the pipeline
// to decide between retrying and parking the record.
type Error struct {
	Kind       string
	StatusCode int
	Message    string
	// RetryAfter carries the server-requested delay on rate limit responses.
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("vision %s: http %d: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("vision %s: %s", e.Kind, e.Message)
}

// ErrorKind implements the failure classification contract used by the catalog.
func (e *Error) ErrorKind() string { return e.Kind }

// Retryable reports whether another attempt could plausibly succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindUnreachable
}

// RetryAfterDelay reports the server-requested backoff, zero when the
// response carried none.
func (e *Error) RetryAfterDelay() time.Duration { return e.RetryAfter }

func (e *Error) Unwrap() error { return e.cause }

// Config holds connection settings for the vision API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client calls a Gemini-compatible generateContent endpoint to produce stock
// metadata for a single image. Each Analyze call is a single attempt; retry
// scheduling belongs to the pipeline.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the vision client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a vision API client from configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.model == "" {
		client.model = defaultModel
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Request describes one image analysis call.
type Request struct {
	ImageData []byte
	MIMEType  string
	Hint      string
}

// Result is the structured metadata extracted from the model response. Raw
// preserves the exact payload text for diagnostics.
type Result struct {
	Title       string
	Description string
	Keywords    []string
	Category    string
	Raw         string
}

// Analyze sends the image and prompt to the model and returns validated
// metadata. Failures carry an *Error classifying what went wrong; context
// cancellation is passed through untouched.
func (c *Client) Analyze(ctx context.Context, req Request) (Result, error) {
	var empty Result
	if len(req.ImageData) == 0 {
		return empty, errors.New("vision analyze: image data required")
	}
	if c.apiKey == "" {
		return empty, &Error{Kind: KindUnauthorized, Message: "api key not configured"}
	}

	mimeType := strings.TrimSpace(req.MIMEType)
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	payload := generateRequest{
		Contents: []requestContent{{
			Parts: []requestPart{
				{Text: AnalysisPrompt(req.Hint)},
				{InlineData: &inlineData{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(req.ImageData),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			Temperature:      0,
			ResponseMIMEType: "application/json",
		},
	}

	body, err := c.generate(ctx, payload)
	if err != nil {
		return empty, err
	}

	text, err := extractResponseText(body)
	if err != nil {
		return empty, err
	}

	return DecodeVisionJSON(text)
}

// HealthCheck verifies the endpoint, model, and API key with a minimal
// text-only request.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return &Error{Kind: KindUnauthorized, Message: "api key not configured"}
	}
	payload := generateRequest{
		Contents: []requestContent{{
			Parts: []requestPart{{Text: "Reply with the single word OK."}},
		}},
	}
	body, err := c.generate(ctx, payload)
	if err != nil {
		return err
	}
	if _, err := extractResponseText(body); err != nil {
		return err
	}
	return nil
}

// generate performs one generateContent round trip and returns the raw
// response body after HTTP-level classification.
func (c *Client) generate(ctx context.Context, payload generateRequest) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vision: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?%s", c.baseURL, c.model,
		url.Values{"key": {c.apiKey}}.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("vision: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Message: "read response: " + err.Error(), cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, resp.Header, body)
	}
	return body, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("vision: %w", context.Canceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUnreachable, Message: "request timed out", cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindUnreachable, Message: "request timed out", cause: err}
	}
	return &Error{Kind: KindUnreachable, Message: "request failed: " + err.Error(), cause: err}
}

func classifyStatus(status int, header http.Header, body []byte) error {
	message := apiErrorMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindUnauthorized, StatusCode: status, Message: message}
	case status == http.StatusBadRequest && mentionsAPIKey(message):
		return &Error{Kind: KindUnauthorized, StatusCode: status, Message: message}
	case status == http.StatusTooManyRequests:
		retryAfter, _ := parseRetryAfter(header.Get("Retry-After"))
		return &Error{Kind: KindRateLimited, StatusCode: status, Message: message, RetryAfter: retryAfter}
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return &Error{Kind: KindUnreachable, StatusCode: status, Message: message}
	default:
		return &Error{Kind: KindInvalidResponse, StatusCode: status, Message: message}
	}
}

// apiErrorMessage prefers the structured error message the API returns and
// falls back to a flattened body snippet.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		message := strings.TrimSpace(envelope.Error.Message)
		if message != "" {
			return message
		}
		if status := strings.TrimSpace(envelope.Error.Status); status != "" {
			return status
		}
	}
	return summarizePayloadSnippet(string(body))
}

func mentionsAPIKey(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "api key") || strings.Contains(lowered, "api_key")
}

// extractResponseText pulls the model text out of a generateContent response,
// concatenating multi-part candidates.
func extractResponseText(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{
			Kind:    KindInvalidResponse,
			Message: "decode response: " + err.Error() + " (payload snippet: " + summarizePayloadSnippet(string(body)) + ")",
			cause:   err,
		}
	}
	if resp.Error != nil {
		return "", classifyStatus(resp.Error.Code, nil, body)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &Error{Kind: KindInvalidResponse, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason}
	}
	if len(resp.Candidates) == 0 {
		return "", &Error{
			Kind:    KindInvalidResponse,
			Message: "no candidates returned (payload snippet: " + summarizePayloadSnippet(string(body)) + ")",
		}
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", &Error{
			Kind:    KindInvalidResponse,
			Message: "empty response content (payload snippet: " + summarizePayloadSnippet(string(body)) + ")",
		}
	}
	return text, nil
}

// DecodeVisionJSON parses the model's metadata payload, tolerating code
// fences and keywords supplied either as an array or a comma-separated
// string, and validates the structural minimum for a usable result.
func DecodeVisionJSON(content string) (Result, error) {
	var empty Result
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return empty, &Error{Kind: KindInvalidResponse, Message: "empty payload"}
	}

	var parsed visionPayload
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		sanitized := sanitizeJSONPayload(trimmed)
		if sanitized == "" || sanitized == trimmed {
			return empty, &Error{
				Kind:    KindInvalidResponse,
				Message: "parse payload: " + err.Error() + " (payload snippet: " + summarizePayloadSnippet(trimmed) + ")",
				cause:   err,
			}
		}
		if err := json.Unmarshal([]byte(sanitized), &parsed); err != nil {
			return empty, &Error{
				Kind:    KindInvalidResponse,
				Message: "parse payload: " + err.Error() + " (sanitized payload snippet: " + summarizePayloadSnippet(sanitized) + ")",
				cause:   err,
			}
		}
	}

	result := Result{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Keywords:    parsed.Keywords.values(),
		Category:    strings.TrimSpace(parsed.Category),
		Raw:         content,
	}
	if result.Title == "" {
		return empty, &Error{Kind: KindInvalidResponse, Message: "missing title in payload"}
	}
	if result.Description == "" {
		return empty, &Error{Kind: KindInvalidResponse, Message: "missing description in payload"}
	}
	if len(result.Keywords) == 0 {
		return empty, &Error{Kind: KindInvalidResponse, Message: "no keywords in payload"}
	}
	return result, nil
}

type visionPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Keywords    flexibleStrings `json:"keywords"`
	Category    string          `json:"category"`
}

// flexibleStrings accepts either a JSON array of strings or a single
// comma-separated string, which models emit interchangeably.
type flexibleStrings []string

func (f *flexibleStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = cleanStrings(list)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*f = cleanStrings(strings.Split(joined, ","))
		return nil
	}
	return fmt.Errorf("keywords must be an array or comma-separated string")
}

func (f flexibleStrings) values() []string {
	if len(f) == 0 {
		return nil
	}
	out := make([]string, len(f))
	copy(out, f)
	return out
}

func cleanStrings(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}

type generateRequest struct {
	Contents         []requestContent  `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
