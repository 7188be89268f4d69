package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := resilience.NewExecutor(resilience.Policy{
		MaxAttempts:     2,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		BreakerDisabled: true,
	}, log)
	client := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		ChatModel:  "gpt-4o-mini",
		EmbedModel: "text-embedding-3-small",
	}, exec, log)
	return client, server
}

func TestGenerateAnswerSendsContextAndAuth(t *testing.T) {
	var got chatRequest
	var auth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: " Sesongkort koster 1500. "}}}})
	})

	hits := []domain.SearchHit{{Chunk: domain.Chunk{Title: "Billetter", Source: "kb/billetter.md", Text: "Sesongkort koster 1500."}}}
	history := []domain.Turn{{Question: "Hei", Answer: "Hei!"}}

	answer, err := client.GenerateAnswer(context.Background(), "Hva koster sesongkort?", hits, history)
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "Sesongkort koster 1500." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if got.Temperature != 0.2 || got.MaxTokens != 150 {
		t.Fatalf("unexpected sampling params: %+v", got)
	}
	// system + (user, assistant) + user
	if len(got.Messages) != 4 || got.Messages[0].Role != "system" || got.Messages[3].Content != "Hva koster sesongkort?" {
		t.Fatalf("unexpected message layout: %+v", got.Messages)
	}
}

func TestEmbedOrdersVectorsByIndex(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`)
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("vectors not ordered by index: %v", vectors)
	}
}

func TestEmbedRejectsShortResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"index":0,"embedding":[1,0]}]}`)
	})

	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for missing vectors")
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	})

	if _, err := client.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	})

	_, err := client.Embed(context.Background(), []string{"a"})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("401 must not be retried, got %d calls", calls)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want resilience.Class
	}{
		{"rate limited", &HTTPStatusError{Status: 429}, resilience.Class{Retryable: true, CountFailure: true}},
		{"server error", &HTTPStatusError{Status: 503}, resilience.Class{Retryable: true, CountFailure: true}},
		{"bad request", &HTTPStatusError{Status: 400}, resilience.Class{}},
		{"cancelled", context.Canceled, resilience.Class{}},
		{"transport", errors.New("connection refused"), resilience.Class{Retryable: true, CountFailure: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
