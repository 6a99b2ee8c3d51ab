package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := []Option{
		WithSleeper(func(time.Duration) {}),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	}
	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	}, append(base, opts...)...)
	return client, server
}

func chatReply(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestInstructReturnsContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Write([]byte(chatReply("the answer")))
	})

	got, err := client.Instruct(context.Background(), "some document", "Answer the question.")
	if err != nil {
		t.Fatalf("Instruct: %v", err)
	}
	if got != "the answer" {
		t.Errorf("content = %q, want %q", got, "the answer")
	}
}

func TestInstructRequiresInstruction(t *testing.T) {
	client := NewClient(Config{APIKey: "key", Model: "m"})
	if _, err := client.Instruct(context.Background(), "text", "  "); err == nil {
		t.Fatal("expected error for empty instruction")
	}
}

func TestCompleteJSONSetsResponseFormat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat["type"] != jsonResponseType {
			t.Errorf("response_format = %v", req.ResponseFormat)
		}
		w.Write([]byte(chatReply(`{"ok":true}`)))
	})

	got, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("content = %q", got)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatReply("recovered")))
	})

	got, err := client.Instruct(context.Background(), "text", "instruction")
	if err != nil {
		t.Fatalf("Instruct: %v", err)
	}
	if got != "recovered" {
		t.Errorf("content = %q", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var slept []time.Duration
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(chatReply("ok")))
	}, WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(time.Millisecond, 10*time.Second))

	if _, err := client.Instruct(context.Background(), "text", "instruction"); err != nil {
		t.Fatalf("Instruct: %v", err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Errorf("slept = %v, want [3s]", slept)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	if _, err := client.Instruct(context.Background(), "text", "instruction"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestScoreRenormalizes(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Write([]byte(chatReply("The document is quite impressive, about a 12 out of 10.")))
		default:
			w.Write([]byte(chatReply("12")))
		}
	})

	got, err := client.Score(context.Background(), "doc text", "Rate the document 0-10.", 10)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got != 10 {
		t.Errorf("score = %v, want 10 (clamped)", got)
	}
}

func TestDeltaFallback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"delta":{"content":"streamed"}}]}`))
	})

	got, err := client.Instruct(context.Background(), "text", "instruction")
	if err != nil {
		t.Fatalf("Instruct: %v", err)
	}
	if got != "streamed" {
		t.Errorf("content = %q", got)
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	cases := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain", content: `{"name":"a"}`, want: "a"},
		{name: "fenced", content: "```json\n{\"name\":\"b\"}\n```", want: "b"},
		{name: "fenced no lang", content: "```\n{\"name\":\"c\"}\n```", want: "c"},
		{name: "prose wrapped", content: "Here you go: {\"name\":\"d\"} hope that helps", want: "d"},
		{name: "empty", content: "   ", wantErr: true},
		{name: "garbage", content: "not json at all", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got payload
			err := DecodeLLMJSON(tc.content, &got)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLLMJSON: %v", err)
			}
			if got.Name != tc.want {
				t.Errorf("name = %q, want %q", got.Name, tc.want)
			}
		})
	}
}

func TestEmptyChoicesExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"choices":[]}`))
	}, WithRetryMaxAttempts(2))

	_, err := client.Instruct(context.Background(), "text", "instruction")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Errorf("error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestTruncateUTF8KeepsRunesWhole(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short input untouched", "hello", 10, "hello"},
		{"ascii cut exact", "hello", 3, "hel"},
		{"multibyte rune not split", "aé", 2, "a"},
		{"cut lands on rune start", "aéb", 3, "aé"},
		{"all multibyte", "ééé", 3, "é"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateUTF8(tc.in, tc.max)
			if got != tc.want {
				t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
		})
	}
}
