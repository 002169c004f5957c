// Package ai provides the nutrition assistant: it routes each message to a
// prompt, calls the language model and remembers the conversation.
package ai

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// MaxMessageLength bounds a single user message, in bytes
const MaxMessageLength = 2000

// Options configures completions
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Reply is the assistant's answer to one message
type Reply struct {
	Text  string `json:"text"`
	Route Route  `json:"route"`
}

// Assistant answers nutrition questions
type Assistant struct {
	model   outbound.ChatModel
	router  Router
	memory  *Memory
	opts    Options
	metrics *monitoring.MetricsCollector
	tracing *monitoring.TracingProvider
	logger  *zap.Logger
}

// NewAssistant creates the assistant. metrics and tracing may be nil.
func NewAssistant(
	model outbound.ChatModel,
	router Router,
	memory *Memory,
	opts Options,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
	logger *zap.Logger,
) *Assistant {
	return &Assistant{
		model:   model,
		router:  router,
		memory:  memory,
		opts:    opts,
		metrics: metrics,
		tracing: tracing,
		logger:  logger.Named("assistant"),
	}
}

// Welcome returns the greeting shown before the first message
func (a *Assistant) Welcome() string {
	return WelcomeMessage
}

// History returns the remembered turns of a conversation, oldest first
func (a *Assistant) History(ctx context.Context, conversationID string) ([]outbound.ChatMessage, error) {
	return a.memory.Load(ctx, conversationID)
}

// Reset starts the conversation over
func (a *Assistant) Reset(ctx context.Context, conversationID string) error {
	return a.memory.Reset(ctx, conversationID)
}

// Ask answers one message and appends the exchange to the conversation
func (a *Assistant) Ask(ctx context.Context, conversationID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("Please type a message.")
	}
	if len(message) > MaxMessageLength {
		return nil, apperrors.NewValidationError("Message is too long. Try a shorter one!")
	}

	history, err := a.memory.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	decision, err := a.router.Route(ctx, history, message)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(a.model.Name(), err)
	}

	text, err := a.complete(ctx, decision, history)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(a.model.Name(), err)
	}

	history = append(history,
		outbound.ChatMessage{Role: outbound.RoleUser, Content: message},
		outbound.ChatMessage{Role: outbound.RoleAssistant, Content: text},
	)
	if err := a.memory.Save(ctx, conversationID, history); err != nil {
		a.logger.Warn("Failed to save conversation", zap.String("conversation", conversationID), zap.Error(err))
	}

	return &Reply{Text: text, Route: decision.Route}, nil
}

func (a *Assistant) complete(ctx context.Context, decision Decision, history []outbound.ChatMessage) (text string, err error) {
	ctx, span := a.tracing.StartAISpan(ctx, a.model.Name(), string(decision.Route))
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		a.metrics.AIRequest(a.model.Name(), string(decision.Route), status, time.Since(start))
		monitoring.RecordError(span, err)
		span.End()
	}()

	prompt := render(templateFor(decision.Route), history, decision.Input)
	text, err = a.model.Complete(ctx, outbound.ChatRequest{
		Model:       a.opts.Model,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		Messages:    []outbound.ChatMessage{{Role: outbound.RoleUser, Content: prompt}},
	})
	if err != nil {
		a.logger.Error("AI completion failed", zap.String("route", string(decision.Route)), zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(text), nil
}
