package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/seenimoa/tickersent/internal/llm"
)

type fakeChat struct {
	reply string
	err   error
	last  []llm.Message
}

func (f *fakeChat) Chat(_ context.Context, msgs []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	f.last = msgs
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}

func TestParseLLMScore(t *testing.T) {
	tests := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{"0.6", 0.6, false},
		{"-0.25", -0.25, false},
		{"Score: +1", 1, false},
		{" .5\n", 0.5, false},
		{"neutral", 0, true},
		{"1.5", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLLMScore(tt.reply)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLLMScore(%q): expected error, got %v", tt.reply, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseLLMScore(%q) = %v, %v; want %v", tt.reply, got, err, tt.want)
		}
	}
}

func TestLLMScorer(t *testing.T) {
	chat := &fakeChat{reply: "0.7"}
	s := NewLLMScorer(chat, 0)

	got, err := s.Score("AMZN beats earnings")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.7 {
		t.Errorf("got %v, want 0.7", got)
	}
	if len(chat.last) != 2 || chat.last[1].Content != "AMZN beats earnings" {
		t.Errorf("unexpected prompt: %+v", chat.last)
	}

	chat.err = llm.ErrProviderDown
	if _, err := s.Score("x"); !errors.Is(err, llm.ErrProviderDown) {
		t.Errorf("expected provider error, got %v", err)
	}
}
