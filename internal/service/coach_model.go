package service

import (
	"context"

	"github.com/maeum-coach/coaching-server-go/internal/model"
)

// CoachModel is the language-model capability used by the coaching flow.
// *llm.Client implements it.
type CoachModel interface {
	// Complete returns the raw reply text.
	Complete(ctx context.Context, systemPrompt string, history []model.Message) (string, error)
	// Generate returns a cleaned single-question reply.
	Generate(ctx context.Context, systemPrompt string, history []model.Message) (string, error)
	GenerateStructured(ctx context.Context, systemPrompt string, history []model.Message) (*model.CoachResponse, error)
}
