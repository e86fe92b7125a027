package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"corella/internal/services/llm"
)

func chatResponse(content string) string {
	encoded := strings.ReplaceAll(content, `"`, `\"`)
	encoded = strings.ReplaceAll(encoded, "\n", `\n`)
	return `{"choices":[{"message":{"content":"` + encoded + `"},"finish_reason":"stop"}]}`
}

func newTestClient(serverURL string, opts ...llm.Option) *llm.Client {
	base := []llm.Option{
		llm.WithSleeper(func(time.Duration) {}),
		llm.WithRetryBackoff(time.Millisecond, 10*time.Millisecond),
	}
	return llm.NewClient(llm.Config{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "test-model",
	}, append(base, opts...)...)
}

func TestCompleteJSONReturnsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(chatResponse(`{"matched_abn":"11111111111"}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if !strings.Contains(content, "11111111111") {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestCompleteJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatResponse(`{"ok":true}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL, llm.WithRetryMaxAttempts(3))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, llm.WithRetryMaxAttempts(3))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 401)", calls.Load())
	}
}

func TestCompleteJSONHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(chatResponse(`{"ok":true}`)))
	}))
	defer server.Close()

	var slept time.Duration
	client := llm.NewClient(llm.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	},
		llm.WithRetryMaxAttempts(2),
		llm.WithSleeper(func(d time.Duration) { slept += d }),
	)

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if slept != time.Second {
		t.Fatalf("slept = %v, want 1s from Retry-After", slept)
	}
}

func TestCompleteJSONFailsAfterExhaustingRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, llm.WithRetryMaxAttempts(3))
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleteJSONStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL, llm.WithRetryMaxAttempts(5))
	if _, err := client.CompleteJSON(ctx, "system", "user"); err == nil {
		t.Fatal("expected error with canceled context")
	}
}

func TestCompleteJSONRequiresPrompts(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	if _, err := client.CompleteJSON(context.Background(), "", "user"); err == nil {
		t.Fatal("expected error for empty system prompt")
	}
	if _, err := client.CompleteJSON(context.Background(), "system", ""); err == nil {
		t.Fatal("expected error for empty user prompt")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse(`{"ok":true}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type decision struct {
		MatchedABN *string `json:"matched_abn"`
	}

	cases := []struct {
		name    string
		payload string
		wantABN string
	}{
		{"plain", `{"matched_abn":"11111111111"}`, "11111111111"},
		{"code fence", "```json\n{\"matched_abn\":\"22222222222\"}\n```", "22222222222"},
		{"bare fence", "```\n{\"matched_abn\":\"33333333333\"}\n```", "33333333333"},
		{"surrounding prose", "Here is my answer: {\"matched_abn\":\"44444444444\"} hope that helps", "44444444444"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var parsed decision
			if err := llm.DecodeJSON(tc.payload, &parsed); err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if parsed.MatchedABN == nil || *parsed.MatchedABN != tc.wantABN {
				t.Fatalf("matched_abn = %v, want %s", parsed.MatchedABN, tc.wantABN)
			}
		})
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var parsed map[string]any
	if err := llm.DecodeJSON("", &parsed); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if err := llm.DecodeJSON("not json at all", &parsed); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
}
