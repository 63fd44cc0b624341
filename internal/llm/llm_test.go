package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChat(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"m1","choices":[{"message":{"role":"assistant","content":"0.4"}}],"usage":{"total_tokens":12}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", WithAPIKey("k"), WithModel("m1"))
	resp, err := c.Chat(context.Background(), []Message{SystemMessage("s"), UserMessage("u")}, &ChatOptions{MaxTokens: 8})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if resp.Content != "0.4" || resp.Model != "m1" || resp.Usage.TotalTokens != 12 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if auth != "Bearer k" {
		t.Errorf("Authorization: got %q", auth)
	}
	if got.Model != "m1" || len(got.Messages) != 2 || got.Messages[1].Role != RoleUser {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 8 {
		t.Error("max_tokens not sent")
	}
	if got.Temperature != nil {
		t.Error("zero temperature should be omitted")
	}
}

func TestChatNoKeyOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "" {
			t.Errorf("unexpected Authorization %q", h)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Chat(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ErrNoAPIKey},
		{"rate limit", http.StatusTooManyRequests, `slow down`, ErrRateLimit},
		{"model", http.StatusBadRequest, `{"error":{"message":"nope","code":"model_not_found"}}`, ErrInvalidModel},
		{"empty", http.StatusOK, `{"choices":[]}`, ErrEmptyReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Chat(context.Background(), []Message{UserMessage("x")}, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestChatProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Chat(context.Background(), nil, nil)
	if !errors.Is(err, ErrProviderDown) {
		t.Errorf("got %v, want ErrProviderDown", err)
	}
}
