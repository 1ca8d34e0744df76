package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectContextLimit(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   bool
		actual int
		max    int
	}{
		{
			name:   "anthropic",
			body:   `{"type":"error","error":{"type":"invalid_request_error","message":"prompt is too long: 209924 tokens > 200000 maximum"}}`,
			want:   true,
			actual: 209924,
			max:    200000,
		},
		{
			name:   "openai",
			body:   `{"error":{"message":"This model's maximum context length is 128000 tokens. However, your messages resulted in 273619 tokens. Please reduce the length of the messages.","type":"invalid_request_error","param":"messages","code":"context_length_exceeded"}}`,
			want:   true,
			actual: 273619,
			max:    128000,
		},
		{
			name:   "openai compatible phrasing",
			body:   `{"error":{"message":"This endpoint's maximum context length is 1000000 tokens. However, you requested about 2315418 tokens (2315418 of text input)."}}`,
			want:   true,
			actual: 2315418,
			max:    1000000,
		},
		{
			name:   "gemini",
			body:   `{"error":{"code":400,"message":"The input token count (1189769) exceeds the maximum number of tokens allowed (1048576).","status":"INVALID_ARGUMENT"}}`,
			want:   true,
			actual: 1189769,
			max:    1048576,
		},
		{
			name: "no figures disclosed",
			body: `{"error":"the request exceeds the available context size. try increasing the context size or enable context shift"}`,
			want: true,
		},
		{
			name: "unrelated error",
			body: `{"error":"internal server error"}`,
			want: false,
		},
		{
			name: "rate limit message",
			body: `{"error":"rate limit exceeded, slow down"}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cle := detectContextLimit(tt.body)
			if (cle != nil) != tt.want {
				t.Fatalf("detectContextLimit() = %v, want match %v", cle, tt.want)
			}
			if cle == nil {
				return
			}
			if cle.info.ActualTokens != tt.actual {
				t.Errorf("ActualTokens = %d, want %d", cle.info.ActualTokens, tt.actual)
			}
			if cle.info.MaxTokens != tt.max {
				t.Errorf("MaxTokens = %d, want %d", cle.info.MaxTokens, tt.max)
			}
		})
	}
}

func TestContextLimitInfo(t *testing.T) {
	cle := detectContextLimit(`{"error":{"message":"prompt is too long: 120000 tokens > 100000 maximum"}}`)
	info, ok := ContextLimitInfo(cle)
	if !ok {
		t.Fatal("expected context limit info")
	}
	if info.ActualTokens != 120000 || info.MaxTokens != 100000 {
		t.Errorf("info = %+v, want actual 120000 max 100000", info)
	}

	if _, ok := ContextLimitInfo(nil); ok {
		t.Error("nil should carry no context limit info")
	}
	if _, ok := ContextLimitInfo(errors.New("boom")); ok {
		t.Error("plain error should carry no context limit info")
	}
	if _, ok := ContextLimitInfo(&serverError{statusCode: 500, body: "oops"}); ok {
		t.Error("server error should carry no context limit info")
	}
}

func TestContextLimit_NotRetryable(t *testing.T) {
	cle := detectContextLimit(`{"error":{"message":"prompt is too long: 5 tokens > 4 maximum"}}`)
	if isRetryable(cle) {
		t.Error("context limit error should not be retryable")
	}
}

func TestAnthropic_ContextLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(400)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"prompt is too long: 215000 tokens > 200000 maximum"}}`))
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "test-key",
		model:  "claude-sonnet-4-20250514",
		client: &http.Client{
			Transport: &rewriteTransport{
				base:    server.Client().Transport,
				baseURL: server.URL,
			},
		},
	}

	_, err := a.Review(context.Background(), ReviewRequest{
		SystemPrompt: "test",
		UserPrompt:   "test",
	})
	if err == nil {
		t.Fatal("Expected context limit error")
	}
	info, ok := ContextLimitInfo(err)
	if !ok {
		t.Fatalf("Expected context limit info, got: %v", err)
	}
	if info.ActualTokens != 215000 || info.MaxTokens != 200000 {
		t.Errorf("info = %+v, want actual 215000 max 200000", info)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for context limit, got %d", attempts)
	}
}

func TestOllama_ContextLimitOn500(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(500)
		w.Write([]byte(`{"error":"the request exceeds the available context size. try increasing the context size or enable context shift"}`))
	}))
	defer server.Close()

	o := &Ollama{
		model:   "llama3",
		baseURL: server.URL,
		client:  server.Client(),
	}

	_, err := o.Review(context.Background(), ReviewRequest{
		SystemPrompt: "test",
		UserPrompt:   "test",
	})
	if err == nil {
		t.Fatal("Expected context limit error")
	}
	info, ok := ContextLimitInfo(err)
	if !ok {
		t.Fatalf("Expected context limit info, got: %v", err)
	}
	if info.ActualTokens != 0 || info.MaxTokens != 0 {
		t.Errorf("info = %+v, want zero token figures", info)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}
