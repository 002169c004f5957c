package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/ports/outbound"
)

// Route names the prompt a message is answered with
type Route string

const (
	RouteNutrition Route = "nutrition"
	RouteOffTopic  Route = "off_topic"
	RouteDefault   Route = "DEFAULT"
)

// Decision is a routing result. Input may be a rephrased version of the message.
type Decision struct {
	Route Route
	Input string
}

// Router picks the prompt for a message
type Router interface {
	Route(ctx context.Context, history []outbound.ChatMessage, input string) (Decision, error)
}

var nutritionKeywords = []string{
	"calorie", "kcal", "protein", "fat", "carb", "macro", "nutrition", "diet",
	"weight", "height", "age", "kg", "lb", "cm", "feet", "inch",
	"male", "female", "man", "woman", "sex", "gender",
	"exercise", "workout", "gym", "run", "walk", "active", "activity", "sedentary",
	"muscle", "lose", "gain", "maintain", "bulk", "cut", "eat", "meal", "food", "intake", "target", "goal",
}

// KeywordRouter classifies messages locally. Messages with a word starting
// with a nutrition term, or with a number, go to the nutrition prompt, as do
// follow-ups in a conversation already under way; anything else is off topic.
type KeywordRouter struct{}

// Route implements Router
func (KeywordRouter) Route(_ context.Context, history []outbound.ChatMessage, input string) (Decision, error) {
	words := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		for _, kw := range nutritionKeywords {
			if strings.HasPrefix(w, kw) {
				return Decision{Route: RouteNutrition, Input: input}, nil
			}
		}
	}
	if strings.IndexFunc(input, unicode.IsDigit) >= 0 || len(history) > 0 {
		return Decision{Route: RouteNutrition, Input: input}, nil
	}
	return Decision{Route: RouteOffTopic, Input: input}, nil
}

// LLMRouter asks the model to choose a prompt and falls back to another
// router when the answer cannot be parsed.
type LLMRouter struct {
	model    outbound.ChatModel
	request  outbound.ChatRequest
	fallback Router
	logger   *zap.Logger
}

// NewLLMRouter creates a model-backed router
func NewLLMRouter(model outbound.ChatModel, modelName string, fallback Router, logger *zap.Logger) *LLMRouter {
	return &LLMRouter{
		model:    model,
		request:  outbound.ChatRequest{Model: modelName, Temperature: 0, MaxTokens: 300},
		fallback: fallback,
		logger:   logger.Named("ai-router"),
	}
}

type routerOutput struct {
	Destination string `json:"destination"`
	NextInputs  string `json:"next_inputs"`
}

// Route implements Router
func (r *LLMRouter) Route(ctx context.Context, history []outbound.ChatMessage, input string) (Decision, error) {
	req := r.request
	req.Messages = []outbound.ChatMessage{{Role: outbound.RoleUser, Content: render(routerTemplate, history, input)}}

	raw, err := r.model.Complete(ctx, req)
	if err == nil {
		var decision Decision
		decision, err = parseRouterOutput(raw, input)
		if err == nil {
			return decision, nil
		}
	}
	if ctx.Err() != nil {
		return Decision{}, ctx.Err()
	}

	r.logger.Debug("Router fell back to local classifier", zap.Error(err))
	return r.fallback.Route(ctx, history, input)
}

var errUnknownDestination = errors.New("router returned an unknown destination")

// parseRouterOutput extracts the JSON object from a markdown code block
func parseRouterOutput(raw, input string) (Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Decision{}, errors.New("router output has no JSON object")
	}

	var out routerOutput
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return Decision{}, err
	}

	next := strings.TrimSpace(out.NextInputs)
	if next == "" {
		next = input
	}

	switch route := Route(strings.TrimSpace(out.Destination)); route {
	case RouteNutrition, RouteOffTopic, RouteDefault:
		return Decision{Route: route, Input: next}, nil
	default:
		return Decision{}, errUnknownDestination
	}
}
