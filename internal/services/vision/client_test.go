package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func metadataResponse(t *testing.T, text string) []byte {
	t.Helper()
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{"text": text},
					},
				},
				"finishReason": "STOP",
			},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return encoded
}

func TestClientAnalyzeSuccess(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/demo-model:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Fatalf("expected key query parameter, got %q", r.URL.RawQuery)
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MIMEType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("expected one content with prompt and image parts, got %+v", req.Contents)
		}
		prompt := req.Contents[0].Parts[0].Text
		if !strings.Contains(prompt, "stock photography") || !strings.Contains(prompt, "sunrise over the bay") {
			t.Fatalf("prompt missing instructions or hint: %q", prompt)
		}
		inline := req.Contents[0].Parts[1].InlineData
		if inline == nil || inline.MIMEType != "image/png" {
			t.Fatalf("expected inline image data with mime type, got %+v", inline)
		}
		decoded, err := base64.StdEncoding.DecodeString(inline.Data)
		if err != nil || string(decoded) != string(image) {
			t.Fatalf("inline data does not round trip: %v", err)
		}
		_, _ = w.Write(metadataResponse(t, `{"Title":"Harbor at dawn","Description":"Small fishing boats moored in a calm harbor at sunrise.","Keywords":["harbor","sunrise","boats"],"Category":"Nature"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Analyze(context.Background(), Request{
		ImageData: image,
		MIMEType:  "image/png",
		Hint:      "sunrise over the bay",
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.Title != "Harbor at dawn" {
		t.Fatalf("expected title, got %q", result.Title)
	}
	if result.Description == "" || result.Category != "Nature" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Keywords) != 3 || result.Keywords[0] != "harbor" {
		t.Fatalf("unexpected keywords %v", result.Keywords)
	}
}

func TestClientAnalyzeCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(metadataResponse(t, "```json\n{\"Title\":\"Forest path\",\"Description\":\"A dirt path winds through dense summer forest.\",\"Keywords\":[\"forest\",\"path\"],\"Category\":\"Nature\"}\n```"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	result, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.Title != "Forest path" {
		t.Fatalf("expected title from fenced payload, got %q", result.Title)
	}
	if !strings.Contains(result.Raw, "```") {
		t.Fatalf("expected raw payload to retain code fence, got %q", result.Raw)
	}
}

func TestClientAnalyzeKeywordsCommaString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(metadataResponse(t, `{"Title":"City street","Description":"Pedestrians cross a rainy city street at night.","Keywords":"city, street, rain, night","Category":"Buildings/Landmarks"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	result, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	want := []string{"city", "street", "rain", "night"}
	if len(result.Keywords) != len(want) {
		t.Fatalf("expected %d keywords, got %v", len(want), result.Keywords)
	}
	for i, keyword := range want {
		if result.Keywords[i] != keyword {
			t.Fatalf("keyword %d: expected %q, got %q", i, keyword, result.Keywords[i])
		}
	}
}

func TestClientAnalyzeRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	var visionErr *Error
	if !errors.As(err, &visionErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if visionErr.Kind != KindRateLimited {
		t.Fatalf("expected rate_limited, got %q", visionErr.Kind)
	}
	if visionErr.RetryAfter != 7*time.Second {
		t.Fatalf("expected retry-after 7s, got %v", visionErr.RetryAfter)
	}
	if !visionErr.Retryable() {
		t.Fatal("rate limit should be retryable")
	}
}

func TestClientAnalyzeUnauthorized(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"Permission denied","status":"PERMISSION_DENIED"}}`},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
			_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
			var visionErr *Error
			if !errors.As(err, &visionErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if visionErr.Kind != KindUnauthorized {
				t.Fatalf("expected unauthorized, got %q", visionErr.Kind)
			}
			if visionErr.Retryable() {
				t.Fatal("credential failures should not be retryable")
			}
		})
	}
}

func TestClientAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"The service is currently unavailable.","status":"UNAVAILABLE"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	var visionErr *Error
	if !errors.As(err, &visionErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if visionErr.Kind != KindUnreachable || !visionErr.Retryable() {
		t.Fatalf("expected retryable unreachable, got %+v", visionErr)
	}
	if !strings.Contains(visionErr.Message, "currently unavailable") {
		t.Fatalf("expected API error message, got %q", visionErr.Message)
	}
}

func TestClientAnalyzeInvalidPayload(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"not json", "the image shows a harbor at dawn"},
		{"missing description", `{"Title":"Harbor","Keywords":["harbor"],"Category":"Nature"}`},
		{"no keywords", `{"Title":"Harbor","Description":"Boats in a harbor.","Keywords":[],"Category":"Nature"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(metadataResponse(t, tc.text))
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
			var visionErr *Error
			if !errors.As(err, &visionErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if visionErr.Kind != KindInvalidResponse {
				t.Fatalf("expected invalid_response, got %q", visionErr.Kind)
			}
			if visionErr.Retryable() {
				t.Fatal("invalid payloads should not be retryable")
			}
		})
	}
}

func TestClientAnalyzeBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"promptFeedback": map[string]any{"blockReason": "SAFETY"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	var visionErr *Error
	if !errors.As(err, &visionErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if visionErr.Kind != KindInvalidResponse || !strings.Contains(visionErr.Message, "SAFETY") {
		t.Fatalf("expected blocked prompt error, got %+v", visionErr)
	}
}

func TestClientAnalyzeEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	var visionErr *Error
	if !errors.As(err, &visionErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if visionErr.Kind != KindInvalidResponse || !strings.Contains(visionErr.Message, "no candidates") {
		t.Fatalf("expected no-candidates error, got %+v", visionErr)
	}
}

func TestClientAnalyzeMissingKey(t *testing.T) {
	client := NewClient(Config{APIKey: "", BaseURL: "http://localhost:1", Model: "demo"})
	_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	var visionErr *Error
	if !errors.As(err, &visionErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if visionErr.Kind != KindUnauthorized {
		t.Fatalf("expected unauthorized, got %q", visionErr.Kind)
	}
}

func TestClientAnalyzeConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Analyze(context.Background(), Request{ImageData: []byte{0x1}})
	var visionErr *Error
	if !errors.As(err, &visionErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if visionErr.Kind != KindUnreachable || !visionErr.Retryable() {
		t.Fatalf("expected retryable unreachable, got %+v", visionErr)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(metadataResponse(t, "OK"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Request is missing required authentication credential.","status":"UNAUTHENTICATED"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestAnalysisPromptIncludesHint(t *testing.T) {
	prompt := AnalysisPrompt("  macro shot of a honeybee  ")
	if !strings.Contains(prompt, "macro shot of a honeybee") {
		t.Fatalf("expected hint in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "trust the context") {
		t.Fatalf("expected override instruction, got %q", prompt)
	}
	if AnalysisPrompt("") != MetadataPrompt {
		t.Fatal("empty hint should return the base prompt")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if delay, ok := parseRetryAfter("30"); !ok || delay != 30*time.Second {
		t.Fatalf("expected 30s, got %v ok=%v", delay, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative seconds should be rejected")
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	if delay, ok := parseRetryAfter(future); !ok || delay <= 0 {
		t.Fatalf("expected positive delay from HTTP date, got %v ok=%v", delay, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty header should report absent")
	}
}
