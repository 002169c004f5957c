package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/ports/outbound"
)

// errCircuitOpen is logged when the primary is skipped
var errCircuitOpen = errors.New("provider circuit is open")

// FallbackModel answers with the primary provider and retries once on the
// fallback when the primary fails. A primary that keeps failing is skipped
// until its breaker cools down.
type FallbackModel struct {
	primary  outbound.ChatModel
	fallback outbound.ChatModel
	breaker  *Breaker
	logger   *zap.Logger
}

var _ outbound.ChatModel = (*FallbackModel)(nil)

// NewFallbackModel chains the configured providers
func NewFallbackModel(providers Providers, logger *zap.Logger) outbound.ChatModel {
	if providers.Fallback == nil {
		return providers.Primary
	}
	log := logger.Named("ai-fallback")
	return &FallbackModel{
		primary:  providers.Primary,
		fallback: providers.Fallback,
		breaker: NewBreaker(DefaultBreakerConfig(), func(from, to BreakerState) {
			log.Info("AI provider circuit changed",
				zap.String("provider", providers.Primary.Name()),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		}),
		logger: log,
	}
}

// Name reports the primary provider
func (f *FallbackModel) Name() string { return f.primary.Name() }

// Complete tries the primary, then the fallback
func (f *FallbackModel) Complete(ctx context.Context, req outbound.ChatRequest) (string, error) {
	err := errCircuitOpen
	if f.breaker == nil || f.breaker.Allow() {
		var reply string
		reply, err = f.primary.Complete(ctx, req)
		if ctx.Err() == nil && f.breaker != nil {
			f.breaker.Record(err)
		}
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
	}

	f.logger.Warn("Primary AI provider unavailable, using fallback",
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.fallback.Name()),
		zap.Error(err))
	return f.fallback.Complete(ctx, req)
}
