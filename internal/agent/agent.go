// Package agent runs the insight conversation loop: the model is
// given the analytics tool catalog over the MCP side channel and
// iterates tool calls until it can answer the athlete's question.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runlens/runlens/internal/llm"
	"github.com/runlens/runlens/internal/mcp"
	"github.com/runlens/runlens/internal/observability"
)

// DefaultMaxIterations bounds the tool-call loop for one question.
const DefaultMaxIterations = 10

// State is the conversation loop state.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateExecutingTools
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is one answered question.
type Result struct {
	Answer       string `json:"answer"`
	Model        string `json:"model"`
	Iterations   int    `json:"iterations"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Exhausted    bool   `json:"exhausted"`
}

// Config assembles an Agent.
type Config struct {
	LLM           llm.Client
	Provider      string // metrics label, e.g. "anthropic"
	Model         string
	Channel       *mcp.Client
	MaxIterations int
	Logger        *slog.Logger
}

// Agent owns the model conversation and the tool side channel. Safe
// for concurrent questions; connection state is shared.
type Agent struct {
	llm      llm.Client
	provider string
	model    string
	channel  *mcp.Client
	maxIter  int
	logger   *slog.Logger

	mu       sync.Mutex
	live     bool
	toolDefs []map[string]any

	// sleep is swapped in tests so reconnect backoff does not stall
	// the suite.
	sleep func(time.Duration)
}

func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	return &Agent{
		llm:      cfg.LLM,
		provider: cfg.Provider,
		model:    cfg.Model,
		channel:  cfg.Channel,
		maxIter:  maxIter,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

const systemPrompt = `You are a running coach and data analyst. You answer questions about the athlete's training history using the analytics tools available to you.

Call tools to gather the data you need before answering. Tool results are JSON; read the numbers carefully and do not invent statistics the tools did not return. Pace values are minutes per mile. When a tool returns an error payload, adjust the arguments and try again or explain what you could not determine.

Answer concisely in plain language a runner would enjoy reading. Use Markdown formatting where it helps.`

// ask runs the conversation loop for one question. The caller holds a
// live side channel.
func (a *Agent) ask(ctx context.Context, question string) (*Result, error) {
	askID := uuid.NewString()
	logger := a.logger.With("ask", askID)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt + "\n\nToday's date is " + time.Now().Format("Monday, January 2, 2006") + "."},
		{Role: "user", Content: question},
	}
	toolDefs := a.toolDefinitions()

	var totalInput, totalOutput int
	iterations := 0
	state := StateAwaitingModel
	var pending []llm.ToolCall

	for {
		switch state {
		case StateAwaitingModel:
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("question cancelled: %w", err)
			}
			if iterations >= a.maxIter {
				logger.Warn("iteration budget reached, forcing final answer", "max_iterations", a.maxIter)
				return a.finalAnswer(ctx, logger, messages, iterations, totalInput, totalOutput)
			}

			resp, err := a.chat(ctx, messages, toolDefs)
			if err != nil {
				return nil, fmt.Errorf("model call failed (iteration %d): %w", iterations, err)
			}
			totalInput += resp.InputTokens
			totalOutput += resp.OutputTokens
			iterations++
			messages = append(messages, resp.Message)

			logger.Debug("model responded",
				"state", state.String(),
				"iteration", iterations,
				"tool_calls", len(resp.Message.ToolCalls),
				"input_tokens", resp.InputTokens,
				"output_tokens", resp.OutputTokens,
			)

			if len(resp.Message.ToolCalls) == 0 {
				state = StateDone
				return &Result{
					Answer:       resp.Message.Content,
					Model:        a.model,
					Iterations:   iterations,
					InputTokens:  totalInput,
					OutputTokens: totalOutput,
				}, nil
			}
			pending = resp.Message.ToolCalls
			state = StateExecutingTools

		case StateExecutingTools:
			for _, tc := range pending {
				start := time.Now()
				result, err := a.channel.CallTool(ctx, tc.Function.Name, tc.Function.Arguments)
				if err != nil {
					var toolErr *mcp.ToolError
					if errors.As(err, &toolErr) {
						// The tool itself failed; feed the error
						// payload back so the model can adjust its
						// call instead of tearing down the channel.
						result = toolErr.Payload
					} else {
						// Transport-level failure; surface it so the
						// lifecycle layer can reconnect and retry.
						return nil, fmt.Errorf("side channel call %s: %w", tc.Function.Name, err)
					}
				}
				logger.Debug("tool call completed",
					"tool", tc.Function.Name,
					"elapsed", time.Since(start).Round(time.Millisecond),
					"result_len", len(result),
				)
				messages = append(messages, llm.Message{
					Role:       "tool",
					Content:    result,
					ToolCallID: tc.ID,
				})
			}
			pending = nil
			state = StateAwaitingModel

		default:
			return nil, fmt.Errorf("conversation in unexpected state %s", state)
		}
	}
}

// finalAnswer makes one last model call with no tools offered, forcing
// prose out of whatever was gathered so far.
func (a *Agent) finalAnswer(ctx context.Context, logger *slog.Logger, messages []llm.Message, iterations, totalInput, totalOutput int) (*Result, error) {
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Answer now with what you have. Do not request any more tools.",
	})
	resp, err := a.chat(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("forced final answer failed: %w", err)
	}
	logger.Info("answered after exhausting iterations", "iterations", iterations)
	return &Result{
		Answer:       resp.Message.Content,
		Model:        a.model,
		Iterations:   iterations,
		InputTokens:  totalInput + resp.InputTokens,
		OutputTokens: totalOutput + resp.OutputTokens,
		Exhausted:    true,
	}, nil
}

func (a *Agent) chat(ctx context.Context, messages []llm.Message, toolDefs []map[string]any) (*llm.ChatResponse, error) {
	resp, err := a.llm.Chat(ctx, a.model, messages, toolDefs)
	if err != nil {
		observability.LLMRequests.WithLabelValues(a.provider, "error").Inc()
		return nil, err
	}
	observability.LLMRequests.WithLabelValues(a.provider, "ok").Inc()
	observability.LLMTokens.WithLabelValues(a.provider, "input").Add(float64(resp.InputTokens))
	observability.LLMTokens.WithLabelValues(a.provider, "output").Add(float64(resp.OutputTokens))
	return resp, nil
}

func (a *Agent) toolDefinitions() []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toolDefs
}
