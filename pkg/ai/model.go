package ai

import (
	"context"
	"errors"
)

// ErrContentBlocked indicates the provider refused the turn on safety
// grounds. Callers treat this as terminal for the turn.
var ErrContentBlocked = errors.New("content blocked by safety filters")

// Turn is one role-tagged entry of a conversation replayed to the model.
type Turn struct {
	Role string
	Text string
}

// ChatModel sends a full conversation plus an instruction prompt and returns
// the model's raw text. All providers implement this interface.
type ChatModel interface {
	SendTurn(ctx context.Context, history []Turn, prompt string) (string, error)
}
