package agent

import (
	"context"
	"fmt"
	"time"
)

// Reconnect policy after a side-channel failure mid-question.
const (
	reconnectAttempts = 3
	reconnectBaseWait = time.Second
)

// Connect establishes the MCP side channel and discovers the tool
// catalog. Calling it on a live connection just verifies the server is
// still responsive.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectLocked(ctx)
}

func (a *Agent) connectLocked(ctx context.Context) error {
	if a.live {
		if err := a.channel.Ping(ctx); err == nil {
			return nil
		}
		a.logger.Warn("side channel unresponsive, reinitializing")
		a.live = false
	}

	if err := a.channel.Initialize(ctx); err != nil {
		return fmt.Errorf("connecting side channel: %w", err)
	}

	defs, err := a.channel.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("discovering tools: %w", err)
	}

	// Providers take the OpenAI function-wrapped shape; Anthropic
	// conversion happens inside the client.
	toolDefs := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		toolDefs = append(toolDefs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.InputSchema,
			},
		})
	}

	a.toolDefs = toolDefs
	a.live = true
	a.logger.Info("side channel connected", "tools", len(toolDefs))
	return nil
}

// GetInsight answers one question end to end. A mid-question side
// channel failure triggers a bounded reconnect, then the question is
// retried once.
func (a *Agent) GetInsight(ctx context.Context, question string) (*Result, error) {
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if err := a.Connect(ctx); err != nil {
		return nil, err
	}

	result, err := a.ask(ctx, question)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	a.logger.Warn("question failed, attempting reconnect", "error", err)
	a.markDown()
	if rerr := a.reconnect(ctx); rerr != nil {
		return nil, fmt.Errorf("reconnect after failure: %w (original: %v)", rerr, err)
	}

	result, retryErr := a.ask(ctx, question)
	if retryErr != nil {
		return nil, fmt.Errorf("retry after reconnect: %w", retryErr)
	}
	return result, nil
}

// reconnect retries the connection with linearly growing waits.
func (a *Agent) reconnect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Connect(ctx); err == nil {
			a.logger.Info("side channel reconnected", "attempt", attempt)
			return nil
		} else {
			lastErr = err
			a.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
		}
		if attempt < reconnectAttempts {
			a.sleep(time.Duration(attempt) * reconnectBaseWait)
		}
	}
	return lastErr
}

// Disconnect tears the side channel down. Teardown errors are logged,
// never returned; the agent is marked offline regardless.
func (a *Agent) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.channel.Close(); err != nil {
		a.logger.Warn("closing side channel", "error", err)
	}
	a.live = false
	a.toolDefs = nil
	a.logger.Info("agent disconnected")
}

func (a *Agent) markDown() {
	a.mu.Lock()
	a.live = false
	a.mu.Unlock()
}

// Live reports whether the side channel is currently considered
// healthy.
func (a *Agent) Live() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}
