package sentiment

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/seenimoa/tickersent/internal/llm"
)

const llmSystemPrompt = `You rate the sentiment of a single financial news headline for the stock it mentions.
Reply with one number between -1 (very bearish) and 1 (very bullish), 0 for neutral. No other text.`

var numberRe = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// LLMScorer asks a chat model for a score. Replies that hold no number, or a
// number outside [-1, 1], are errors.
type LLMScorer struct {
	chat    llm.Chatter
	timeout time.Duration
}

// NewLLMScorer wraps chat. timeout bounds each call; <= 0 means 30s.
func NewLLMScorer(chat llm.Chatter, timeout time.Duration) *LLMScorer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMScorer{chat: chat, timeout: timeout}
}

// Score implements Scorer.
func (s *LLMScorer) Score(text string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.chat.Chat(ctx, []llm.Message{
		llm.SystemMessage(llmSystemPrompt),
		llm.UserMessage(text),
	}, &llm.ChatOptions{MaxTokens: 8})
	if err != nil {
		return 0, err
	}
	return parseLLMScore(resp.Content)
}

// parseLLMScore takes the first number in reply.
func parseLLMScore(reply string) (float64, error) {
	m := numberRe.FindString(reply)
	if m == "" {
		return 0, fmt.Errorf("no score in reply %q", reply)
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing score %q: %w", m, err)
	}
	if v < -1 || v > 1 {
		return 0, fmt.Errorf("score %v outside [-1, 1]", v)
	}
	return v, nil
}
