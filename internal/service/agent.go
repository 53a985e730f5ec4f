// Package service wires the conversational pipeline and the repository write
// commands together.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/fetch"
	"github.com/easeaico/context-agent/internal/logging"
	"github.com/easeaico/context-agent/internal/prompt"
	"github.com/easeaico/context-agent/internal/resolve"
)

// MemoryLimit is how many memories are recalled for each turn.
const MemoryLimit = 3

// ErrEmptyMessage is returned when a turn is started with blank input.
var ErrEmptyMessage = errors.New("message must not be empty")

// Memory is the subset of the memory service the agent needs.
type Memory interface {
	Insert(ctx context.Context, text string, metadata map[string]any) (string, error)
	Query(ctx context.Context, text string, k int) ([]string, error)
}

// Resolver finds the URL a message refers to.
type Resolver interface {
	Resolve(text string) (resolve.ResolvedURL, bool)
}

// Fetcher retrieves the text behind a resolved URL. It never fails; problems
// are described in the returned content.
type Fetcher interface {
	Fetch(ctx context.Context, u resolve.ResolvedURL) fetch.Content
}

// Completer is the language model boundary.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Turn is everything assembled for one message.
type Turn struct {
	Message  string
	Memories []string
	Fetched  *fetch.Content
	Prompt   string
	Response string
}

// Agent runs the per-message pipeline: recall memories, fetch the first URL
// in the message, compose the prompt and ask the model.
type Agent struct {
	memory    Memory
	resolver  Resolver
	fetcher   Fetcher
	completer Completer
	logger    *zap.Logger
}

// NewAgent creates an Agent from its collaborators.
func NewAgent(memory Memory, resolver Resolver, fetcher Fetcher, completer Completer, logger *zap.Logger) *Agent {
	return &Agent{
		memory:    memory,
		resolver:  resolver,
		fetcher:   fetcher,
		completer: completer,
		logger:    logging.OrNop(logger),
	}
}

// Prepare assembles the prompt for message without calling the model.
// A failing memory lookup is logged and the turn continues without memories.
func (a *Agent) Prepare(ctx context.Context, message string) (Turn, error) {
	if strings.TrimSpace(message) == "" {
		return Turn{}, ErrEmptyMessage
	}
	turn := Turn{Message: message}

	memories, err := a.memory.Query(ctx, message, MemoryLimit)
	if err != nil {
		a.logger.Warn("memory lookup failed", zap.Error(err))
	}
	turn.Memories = memories

	var block *prompt.FetchedBlock
	if u, ok := a.resolver.Resolve(message); ok {
		content := a.fetcher.Fetch(ctx, u)
		turn.Fetched = &content
		block = &prompt.FetchedBlock{URL: u.Raw, Text: content.Text}

		a.logger.Info("fetched url",
			zap.String("url", u.Raw),
			zap.Stringer("classification", u.Classification),
			zap.Stringer("status", content.Status),
			zap.Bool("truncated", content.Truncated))
	}

	turn.Prompt = prompt.Compose(message, turn.Memories, block)
	return turn, nil
}

// Respond runs a full turn and returns the model output verbatim.
func (a *Agent) Respond(ctx context.Context, message string) (Turn, error) {
	turn, err := a.Prepare(ctx, message)
	if err != nil {
		return Turn{}, err
	}

	a.logger.Debug("sending prompt",
		zap.Int("memories", len(turn.Memories)),
		zap.Int("prompt_len", len(turn.Prompt)))

	out, err := a.completer.Complete(ctx, turn.Prompt)
	if err != nil {
		return turn, fmt.Errorf("model call failed: %w", err)
	}
	turn.Response = out
	return turn, nil
}
