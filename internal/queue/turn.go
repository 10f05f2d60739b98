package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/delve-hq/delve/backend/pkg/interview"
	"github.com/delve-hq/delve/backend/pkg/leaselock"
	"github.com/delve-hq/delve/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// TurnMessage is the payload published to the turn queue when a respondent
// answer arrives over the API.
type TurnMessage struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// PublishTurn enqueues one respondent answer for processing.
func PublishTurn(ch *amqp091.Channel, msg TurnMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return PublishFIFO(ch, TurnQueue, data)
}

// ProcessTurnMessage handles one turn message. The session's lease is held
// for the whole pipeline so concurrent workers never interleave turns of the
// same session.
func ProcessTurnMessage(
	ctx context.Context,
	client *interview.Client,
	locks *leaselock.Client,
	body string,
) error {
	var msg TurnMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("unparseable turn message: %w", err)
	}
	if msg.SessionID == "" {
		return fmt.Errorf("turn message without session id")
	}

	return locks.WithSessionTurn(ctx, msg.SessionID, func(ctx context.Context) error {
		result, err := client.ProcessTurn(ctx, msg.SessionID, msg.Answer)
		if err != nil {
			return err
		}

		logger.Info("[Queue] Turn processed",
			"session", result.SessionID,
			"turn", result.Turn,
			"strategy", result.Selection.Strategy,
			"has_focus", result.Selection.HasFocus,
			"completed", result.Completed,
		)
		return nil
	})
}
