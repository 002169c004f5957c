package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/ports/outbound"
	"github.com/macromojo/macromojo/test/testutils"
)

func TestKeywordRouter_Route(t *testing.T) {
	tests := []struct {
		name    string
		history []outbound.ChatMessage
		input   string
		want    Route
	}{
		{"Keyword", nil, "How many calories should I eat?", RouteNutrition},
		{"KeywordPrefix", nil, "I want to start bulking", RouteNutrition},
		{"Number", nil, "I am 34", RouteNutrition},
		{"OffTopic", nil, "Tell me a joke", RouteOffTopic},
		{"FollowUp", []outbound.ChatMessage{{Role: outbound.RoleUser, Content: "hi"}}, "Tell me more", RouteNutrition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := KeywordRouter{}.Route(context.Background(), tt.history, tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.Route)
			assert.Equal(t, tt.input, decision.Input)
		})
	}
}

func TestParseRouterOutput(t *testing.T) {
	t.Run("CodeBlock_ShouldParse", func(t *testing.T) {
		raw := "```json\n{\n  \"destination\": \"nutrition\",\n  \"next_inputs\": \"I am 70 kg, male, 30 years\"\n}\n```"

		decision, err := parseRouterOutput(raw, "70kg male 30")

		require.NoError(t, err)
		assert.Equal(t, RouteNutrition, decision.Route)
		assert.Equal(t, "I am 70 kg, male, 30 years", decision.Input)
	})

	t.Run("EmptyNextInputs_ShouldKeepOriginal", func(t *testing.T) {
		decision, err := parseRouterOutput(`{"destination": "DEFAULT", "next_inputs": ""}`, "hello")

		require.NoError(t, err)
		assert.Equal(t, RouteDefault, decision.Route)
		assert.Equal(t, "hello", decision.Input)
	})

	t.Run("UnknownDestination_ShouldFail", func(t *testing.T) {
		_, err := parseRouterOutput(`{"destination": "recipes"}`, "hello")

		assert.ErrorIs(t, err, errUnknownDestination)
	})

	t.Run("NoJSON_ShouldFail", func(t *testing.T) {
		_, err := parseRouterOutput("nutrition", "hello")

		assert.Error(t, err)
	})
}

func TestLLMRouter_Route(t *testing.T) {
	ctx := context.Background()

	t.Run("ValidAnswer_ShouldUseModelChoice", func(t *testing.T) {
		model := &testutils.MockChatModel{}
		model.On("Complete", ctx, mock.MatchedBy(func(req outbound.ChatRequest) bool {
			return req.Temperature == 0 && req.Model == "gpt-4o-mini"
		})).Return(`{"destination": "off_topic", "next_inputs": "weather?"}`, nil)
		router := NewLLMRouter(model, "gpt-4o-mini", KeywordRouter{}, zap.NewNop())

		decision, err := router.Route(ctx, nil, "what's the weather like")

		require.NoError(t, err)
		assert.Equal(t, Decision{Route: RouteOffTopic, Input: "weather?"}, decision)
	})

	t.Run("ModelFails_ShouldFallBack", func(t *testing.T) {
		model := &testutils.MockChatModel{}
		model.On("Complete", ctx, mock.Anything).Return("", errors.New("timeout"))
		router := NewLLMRouter(model, "gpt-4o-mini", KeywordRouter{}, zap.NewNop())

		decision, err := router.Route(ctx, nil, "how much protein")

		require.NoError(t, err)
		assert.Equal(t, RouteNutrition, decision.Route)
	})

	t.Run("CancelledContext_ShouldReturnError", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		model := &testutils.MockChatModel{}
		model.On("Complete", cancelled, mock.Anything).Return("", context.Canceled)
		router := NewLLMRouter(model, "gpt-4o-mini", KeywordRouter{}, zap.NewNop())

		_, err := router.Route(cancelled, nil, "protein")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRender_ShouldFillPlaceholders(t *testing.T) {
	history := []outbound.ChatMessage{
		{Role: outbound.RoleSystem, Content: "ignored"},
		{Role: outbound.RoleUser, Content: "hi"},
		{Role: outbound.RoleAssistant, Content: "hello"},
	}

	out := render(routerTemplate, history, "70 kg")

	assert.Contains(t, out, "Human: hi\nAI: hello")
	assert.Contains(t, out, "<< INPUT >>\n70 kg")
	assert.Contains(t, out, "nutrition: Good for providing nutrition recommendation")
	assert.NotContains(t, out, "ignored")
	assert.NotContains(t, out, "{input}")
}
