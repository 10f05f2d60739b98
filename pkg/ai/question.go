package ai

import (
	"context"
	"fmt"
	"strings"
)

// QuestionRequest bundles everything the question generator needs: the
// winning strategy's description, the optional focus concept label and the
// tail of the conversation for phrasing continuity.
type QuestionRequest struct {
	Topic               string
	StrategyName        string
	StrategyDescription string

	// FocusLabel is empty when the strategy binds to no concept; the prompt
	// then explicitly forbids steering back to earlier concepts.
	FocusLabel string

	RecentExchange []ChatMessage
}

// GenerateQuestion produces the next interviewer question for the selected
// strategy and focus. The model returns plain text, not JSON; the engine's
// decision is already made and only the phrasing is delegated.
func GenerateQuestion(
	ctx context.Context,
	client InterviewAIClient,
	req QuestionRequest,
	opts ...GenerateOption,
) (string, error) {
	approach := req.StrategyDescription
	if approach == "" {
		approach = req.StrategyName
	}

	focus := req.FocusLabel
	if focus == "" {
		focus = "none; open new ground"
	}

	messages := make([]ChatMessage, 0, len(req.RecentExchange)+1)
	messages = append(messages, req.RecentExchange...)
	if len(messages) == 0 || messages[len(messages)-1].Role != "user" {
		messages = append(messages, ChatMessage{Role: "user", Message: QuestionOpeningTurn})
	}

	system := fmt.Sprintf(QuestionSystemPrompt, req.Topic, approach, focus)
	opts = append(opts, WithSystemPrompts(system))

	question, err := client.GenerateChat(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate question: %w", err)
	}

	question = strings.TrimSpace(strings.Trim(strings.TrimSpace(question), `"`))
	if question == "" {
		return "", fmt.Errorf("model returned an empty question")
	}
	return question, nil
}
