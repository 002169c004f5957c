package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/test/testutils"
)

func newTestBreaker(now *time.Time, changes *[]string) *Breaker {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, func(from, to BreakerState) {
		*changes = append(*changes, from.String()+"->"+to.String())
	})
	b.now = func() time.Time { return *now }
	return b
}

func TestBreaker_ConsecutiveFailures_ShouldOpen(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var changes []string
	b := newTestBreaker(&now, &changes)
	boom := errors.New("boom")

	b.Record(boom)
	assert.Equal(t, StateClosed, b.State())
	b.Record(boom)

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, []string{"closed->open"}, changes)
}

func TestBreaker_SuccessBetweenFailures_ShouldStayClosed(t *testing.T) {
	now := time.Now()
	var changes []string
	b := newTestBreaker(&now, &changes)

	b.Record(errors.New("boom"))
	b.Record(nil)
	b.Record(errors.New("boom"))

	assert.Equal(t, StateClosed, b.State())
	assert.Empty(t, changes)
}

func TestBreaker_AfterCooldown_ShouldAllowOneTrial(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var changes []string
	b := newTestBreaker(&now, &changes)
	b.Record(errors.New("boom"))
	b.Record(errors.New("boom"))

	now = now.Add(time.Minute + time.Second)

	require.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one trial while half-open")

	b.Record(nil)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, changes)
}

func TestBreaker_FailedTrial_ShouldReopen(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var changes []string
	b := newTestBreaker(&now, &changes)
	b.Record(errors.New("boom"))
	b.Record(errors.New("boom"))
	now = now.Add(2 * time.Minute)
	require.True(t, b.Allow())

	b.Record(errors.New("still down"))

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestFallbackModel_OpenCircuit_ShouldSkipPrimary(t *testing.T) {
	// Arrange
	ctx := context.Background()
	req := testRequest()
	primary := &testutils.MockChatModel{ProviderName: "openai"}
	secondary := &testutils.MockChatModel{ProviderName: "ollama"}
	primary.On("Complete", ctx, req).Return("", errors.New("boom")).Times(2)
	secondary.On("Complete", ctx, req).Return("from fallback", nil).Times(3)

	model := &FallbackModel{
		primary:  primary,
		fallback: secondary,
		breaker:  NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour}, nil),
		logger:   zap.NewNop(),
	}

	// Act
	for i := 0; i < 3; i++ {
		reply, err := model.Complete(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "from fallback", reply)
	}

	// Assert
	primary.AssertNumberOfCalls(t, "Complete", 2)
	secondary.AssertNumberOfCalls(t, "Complete", 3)
	assert.Equal(t, StateOpen, model.breaker.State())
}
