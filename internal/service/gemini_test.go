package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
)

func testService(key, baseURL string, retryable ...string) *GeminiService {
	if len(retryable) == 0 {
		retryable = []string{"INVALID_ARGUMENT"}
	}
	return NewGeminiService(&config.Config{
		GeminiKey:         key,
		GeminiBaseURL:     baseURL,
		RetryableStatuses: retryable,
	})
}

func okResponse(text string) string {
	return fmt.Sprintf(`{
		"candidates": [{"content": {"parts": [{"text": %q}]}}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 20}
	}`, text)
}

func apiError(status, message string) string {
	return fmt.Sprintf(`{"error": {"code": 400, "message": %q, "status": %q}}`, message, status)
}

func TestCredentialPrecheck(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, okResponse("hi"))
	}))
	defer server.Close()

	session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.3}

	t.Run("empty key", func(t *testing.T) {
		svc := testService("", server.URL)
		_, _, err := svc.Converse(context.Background(), session, nil, "hello", nil)
		gwErr, ok := AsGatewayError(err)
		if !ok || gwErr.Kind != KindAuth {
			t.Fatalf("expected auth error, got %v", err)
		}
	})

	t.Run("wrong provider key format", func(t *testing.T) {
		svc := testService("sk-abc123", server.URL)
		_, _, err := svc.Converse(context.Background(), session, nil, "hello", nil)
		gwErr, ok := AsGatewayError(err)
		if !ok || gwErr.Kind != KindAuth {
			t.Fatalf("expected auth error, got %v", err)
		}
	})

	if calls.Load() != 0 {
		t.Fatalf("credential prechecks must not hit the network, got %d calls", calls.Load())
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name       string
		httpStatus int
		body       string
		wantKind   GatewayErrorKind
	}{
		{"http 401", http.StatusUnauthorized, apiError("UNAUTHENTICATED", "bad key"), KindAuth},
		{"status UNAUTHENTICATED", http.StatusBadRequest, apiError("UNAUTHENTICATED", "bad key"), KindAuth},
		{"http 404", http.StatusNotFound, apiError("NOT_FOUND", "no such model"), KindModelUnavailable},
		{"http 403", http.StatusForbidden, apiError("PERMISSION_DENIED", "not entitled"), KindModelUnavailable},
		{"http 500", http.StatusInternalServerError, `{"error": {"message": "boom"}}`, KindTransport},
		{"unparseable body", http.StatusBadGateway, "<html>bad gateway</html>", KindTransport},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.httpStatus)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			svc := testService("good-key", server.URL)
			session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.3}
			_, _, err := svc.Converse(context.Background(), session, nil, "hello", nil)
			gwErr, ok := AsGatewayError(err)
			if !ok {
				t.Fatalf("expected GatewayError, got %v", err)
			}
			if gwErr.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", gwErr.Kind, tc.wantKind)
			}
		})
	}
}

func TestRetryWithoutThinkingBudget(t *testing.T) {
	t.Run("retries once on retryable status", func(t *testing.T) {
		var requests []generateRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			requests = append(requests, req)
			if len(requests) == 1 {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, apiError("INVALID_ARGUMENT", "thinking not supported"))
				return
			}
			fmt.Fprint(w, okResponse("recovered"))
		}))
		defer server.Close()

		svc := testService("good-key", server.URL)
		session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.3}
		reply, usage, err := svc.Converse(context.Background(), session, nil, "hello", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "recovered" {
			t.Fatalf("reply = %q", reply)
		}
		if usage.PromptTokens != 10 || usage.CompletionTokens != 20 {
			t.Fatalf("usage = %+v", usage)
		}
		if len(requests) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(requests))
		}
		if requests[0].GenerationConfig.ThinkingConfig == nil {
			t.Fatal("first request must carry the thinking budget")
		}
		if requests[1].GenerationConfig.ThinkingConfig != nil {
			t.Fatal("retry must drop the thinking budget")
		}
	})

	t.Run("no retry on non-retryable status", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, apiError("FAILED_PRECONDITION", "nope"))
		}))
		defer server.Close()

		svc := testService("good-key", server.URL)
		session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.3}
		_, _, err := svc.Converse(context.Background(), session, nil, "hello", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Fatalf("expected 1 request, got %d", calls.Load())
		}
	})

	t.Run("retryable set is configurable", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, apiError("FAILED_PRECONDITION", "nope"))
		}))
		defer server.Close()

		svc := testService("good-key", server.URL, "FAILED_PRECONDITION")
		session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.3}
		_, _, err := svc.Converse(context.Background(), session, nil, "hello", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 2 {
			t.Fatalf("expected 2 requests, got %d", calls.Load())
		}
	})
}

func TestConverseRequestShape(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, okResponse("ok"))
	}))
	defer server.Close()

	svc := testService("good-key", server.URL)
	session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.7}

	t.Run("first turn carries file before text", func(t *testing.T) {
		file := &domain.TransferFile{Name: "notes.png", MimeType: "image/png", Data: []byte{1, 2, 3}}
		_, _, err := svc.Converse(context.Background(), session, nil, "summarize this", file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(captured.Contents) != 1 {
			t.Fatalf("contents = %d, want 1", len(captured.Contents))
		}
		parts := captured.Contents[0].Parts
		if len(parts) != 2 {
			t.Fatalf("parts = %d, want 2", len(parts))
		}
		if parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/png" {
			t.Fatalf("first part must be inline data, got %+v", parts[0])
		}
		if parts[1].Text != "summarize this" {
			t.Fatalf("second part text = %q", parts[1].Text)
		}
		if captured.GenerationConfig.Temperature != 0.7 {
			t.Fatalf("temperature = %v", captured.GenerationConfig.Temperature)
		}
	})

	t.Run("later turns are text only with mapped roles", func(t *testing.T) {
		history := []domain.SessionMessage{
			{Role: domain.RoleUser, Body: "summarize this"},
			{Role: domain.RoleAssistant, Body: "here is a summary"},
		}
		_, _, err := svc.Converse(context.Background(), session, history, "go deeper", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(captured.Contents) != 3 {
			t.Fatalf("contents = %d, want 3", len(captured.Contents))
		}
		if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
			t.Fatalf("roles = %s, %s", captured.Contents[0].Role, captured.Contents[1].Role)
		}
		last := captured.Contents[2]
		if len(last.Parts) != 1 || last.Parts[0].InlineData != nil {
			t.Fatalf("later turn must be text only, got %+v", last.Parts)
		}
		if last.Parts[0].Text != "go deeper" {
			t.Fatalf("text = %q", last.Parts[0].Text)
		}
	})
}

func TestSolveDefaults(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, okResponse("solved"))
	}))
	defer server.Close()

	svc := testService("good-key", server.URL)
	file := &domain.TransferFile{Name: "problem.jpg", MimeType: "image/jpeg", Data: []byte{9}}

	_, _, err := svc.Solve(context.Background(), "gemini-3-pro-preview", file, "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := captured.Contents[0].Parts
	if parts[len(parts)-1].Text != defaultSolveQuestion {
		t.Fatalf("blank question must fall back to the default, got %q", parts[len(parts)-1].Text)
	}
	if captured.GenerationConfig.Temperature != config.SolverTemperature {
		t.Fatalf("temperature = %v", captured.GenerationConfig.Temperature)
	}
	if captured.GenerationConfig.ThinkingConfig == nil ||
		captured.GenerationConfig.ThinkingConfig.ThinkingBudget != config.SolverThinkingBudget {
		t.Fatalf("thinking config = %+v", captured.GenerationConfig.ThinkingConfig)
	}
}

func TestEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": [], "usageMetadata": {"promptTokenCount": 5}}`)
	}))
	defer server.Close()

	svc := testService("good-key", server.URL)
	session := &domain.StudySession{Model: "gemini-3-pro-preview", Temperature: 0.3}
	_, _, err := svc.Converse(context.Background(), session, nil, "hello", nil)
	gwErr, ok := AsGatewayError(err)
	if !ok || gwErr.Kind != KindTransport {
		t.Fatalf("expected transport error for empty candidates, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&GatewayError{Kind: KindAuth, Message: "x"}, "⚠️ Authentication failed: the API key is missing, invalid or expired."},
		{&GatewayError{Kind: KindModelUnavailable, Message: "x"}, "⚠️ Model unavailable: this key has no access to the requested model."},
		{&GatewayError{Kind: KindTransport, Message: "timeout"}, "❌ Request failed: timeout"},
		{fmt.Errorf("plain"), "❌ The request failed. Please try again."},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
