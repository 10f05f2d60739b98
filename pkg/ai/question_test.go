package ai

import (
	"context"
	"strings"
	"testing"
)

// chatRecorder captures the chat call GenerateQuestion makes.
type chatRecorder struct {
	messages []ChatMessage
	options  GenerateOptions
	reply    string
}

func (c *chatRecorder) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...GenerateOption) error {
	return nil
}

func (c *chatRecorder) GenerateChat(ctx context.Context, messages []ChatMessage, opts ...GenerateOption) (string, error) {
	c.messages = messages
	for _, o := range opts {
		o(&c.options)
	}
	return c.reply, nil
}

func (c *chatRecorder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, nil
}

func (c *chatRecorder) ResetMetrics()            {}
func (c *chatRecorder) GetMetrics() ModelMetrics { return ModelMetrics{} }

func TestGenerateQuestionSendsExchangeAsChatTurns(t *testing.T) {
	rec := &chatRecorder{reply: " \"What makes that matter to you?\" "}

	question, err := GenerateQuestion(context.Background(), rec, QuestionRequest{
		Topic:               "choosing a phone",
		StrategyName:        "deepen",
		StrategyDescription: "Probe the focus concept for underlying reasons.",
		FocusLabel:          "long battery life",
		RecentExchange: []ChatMessage{
			{Role: "assistant", Message: "What do you value most in a phone?"},
			{Role: "user", Message: "Honestly the battery lasts forever."},
		},
	})
	if err != nil {
		t.Fatalf("GenerateQuestion: %v", err)
	}
	if question != "What makes that matter to you?" {
		t.Errorf("question = %q, want trimmed reply", question)
	}

	if len(rec.messages) != 2 {
		t.Fatalf("sent %d chat turns, want the exchange verbatim", len(rec.messages))
	}
	if rec.messages[0].Role != "assistant" || rec.messages[1].Role != "user" {
		t.Errorf("roles = %s/%s, want assistant/user", rec.messages[0].Role, rec.messages[1].Role)
	}

	if len(rec.options.SystemPrompts) != 1 {
		t.Fatalf("system prompts = %d, want 1", len(rec.options.SystemPrompts))
	}
	system := rec.options.SystemPrompts[0]
	for _, fragment := range []string{"choosing a phone", "Probe the focus concept", "long battery life"} {
		if !strings.Contains(system, fragment) {
			t.Errorf("system prompt missing %q", fragment)
		}
	}
}

func TestGenerateQuestionSeedsOpeningTurn(t *testing.T) {
	rec := &chatRecorder{reply: "To start, what comes to mind about your last move?"}

	_, err := GenerateQuestion(context.Background(), rec, QuestionRequest{
		Topic:        "moving house",
		StrategyName: "opening",
	})
	if err != nil {
		t.Fatalf("GenerateQuestion: %v", err)
	}

	if len(rec.messages) != 1 || rec.messages[0].Role != "user" {
		t.Fatalf("messages = %+v, want a single seeded user turn", rec.messages)
	}
	if rec.messages[0].Message != QuestionOpeningTurn {
		t.Errorf("seed turn = %q, want QuestionOpeningTurn", rec.messages[0].Message)
	}
	if !strings.Contains(rec.options.SystemPrompts[0], "none; open new ground") {
		t.Errorf("system prompt does not mark the absent focus")
	}
}

func TestGenerateQuestionRejectsEmptyReply(t *testing.T) {
	rec := &chatRecorder{reply: `""`}

	_, err := GenerateQuestion(context.Background(), rec, QuestionRequest{
		Topic:        "anything",
		StrategyName: "deepen",
	})
	if err == nil {
		t.Fatal("expected error for empty question")
	}
}
