// Package ai selects and health-checks the language model providers
package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/ai/ollama"
	"github.com/macromojo/macromojo/internal/infrastructure/ai/openai"
	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/ports/outbound"
)

// Provider is a chat model that can report its own health
type Provider interface {
	outbound.ChatModel
	HealthCheck(ctx context.Context) error
}

// Providers holds the configured primary provider and its optional fallback
type Providers struct {
	Primary  Provider
	Fallback Provider
}

// NewProviders builds the providers named by cfg.Provider. With openai as
// primary, the local Ollama server serves as fallback.
func NewProviders(cfg config.AIConfig, logger *zap.Logger) Providers {
	local := ollama.NewClient(cfg, logger)
	if cfg.Provider == "ollama" {
		return Providers{Primary: local}
	}
	return Providers{Primary: openai.NewClient(cfg, logger), Fallback: local}
}

// All lists the configured providers, primary first
func (p Providers) All() []Provider {
	if p.Fallback == nil {
		return []Provider{p.Primary}
	}
	return []Provider{p.Primary, p.Fallback}
}

// HealthChecker provides health check functionality for AI services
type HealthChecker struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewHealthChecker creates a new AI health checker
func NewHealthChecker(providers Providers, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		providers: providers.All(),
		timeout:   5 * time.Second,
		logger:    logger.Named("ai-health"),
	}
}

// HealthStatus represents the health status of AI services
type HealthStatus struct {
	Overall   string            `json:"overall"`
	Providers map[string]bool   `json:"providers"`
	Details   map[string]string `json:"details"`
	LastCheck time.Time         `json:"last_check"`
}

// CheckHealth probes every provider
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Providers: make(map[string]bool),
		Details:   make(map[string]string),
		LastCheck: time.Now(),
	}

	healthy := 0
	for _, p := range h.providers {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p.HealthCheck(checkCtx)
		cancel()

		if err != nil {
			status.Providers[p.Name()] = false
			status.Details[p.Name()] = fmt.Sprintf("Unavailable: %v", err)
			h.logger.Debug("AI provider health check failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		status.Providers[p.Name()] = true
		status.Details[p.Name()] = "Available"
		healthy++
	}

	switch {
	case healthy == 0:
		status.Overall = "critical"
	case healthy < len(h.providers):
		status.Overall = "degraded"
	default:
		status.Overall = "healthy"
	}
	return status
}

// Check returns an error when no provider is available
func (h *HealthChecker) Check(ctx context.Context) error {
	status := h.CheckHealth(ctx)
	if status.Overall == "critical" {
		return fmt.Errorf("no AI providers available: %v", status.Details)
	}
	return nil
}
