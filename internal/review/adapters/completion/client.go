// Package completion asks a language model for review verdicts and ground
// truths through dspy-go.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/XiaoConstantine/anthropic-go/anthropic"
	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/XiaoConstantine/dspy-go/pkg/llms"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// Generator is the part of core.LLM the client needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error)
}

// Factory builds a Generator for a model name.
type Factory func(model string) (Generator, error)

// ProviderFactory picks the dspy-go provider from the model name.
func ProviderFactory(anthropicKey, geminiKey string) Factory {
	return func(model string) (Generator, error) {
		switch {
		case strings.HasPrefix(model, "claude"):
			if anthropicKey == "" {
				return nil, fmt.Errorf("model %s needs an Anthropic API key", model)
			}
			return llms.NewAnthropicLLM(anthropicKey, anthropic.ModelID(model))
		case strings.HasPrefix(model, "gemini"):
			if geminiKey == "" {
				return nil, fmt.Errorf("model %s needs a Gemini API key", model)
			}
			return llms.NewGeminiLLM(geminiKey, core.ModelID(model))
		default:
			return nil, fmt.Errorf("unsupported model: %s", model)
		}
	}
}

// Client implements domain.Completer.
type Client struct {
	factory Factory
	limits  Limits
	logger  *slog.Logger

	mu         sync.Mutex
	generators map[string]Generator
}

// New creates a completion client.
func New(factory Factory, limits Limits, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Client{
		factory:    factory,
		limits:     limits,
		logger:     logger,
		generators: make(map[string]Generator),
	}
}

// GetModelMaxTokenLimit returns the input token budget of model.
func (c *Client) GetModelMaxTokenLimit(model string) int {
	return c.limits.Lookup(model).Input
}

// GetModelMaxOutputLimit returns the output token budget of model.
func (c *Client) GetModelMaxOutputLimit(model string) int {
	return c.limits.Lookup(model).Output
}

// CreateCompletion asks model to review formatted against groundTruths.
// maxTokens bounds the prompt; oversized context is truncated to fit.
func (c *Client) CreateCompletion(ctx context.Context, model, formatted string, groundTruths []string, appName string, maxTokens int) (domain.CompletionResult, error) {
	gen, err := c.generator(model)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	prompt := reviewPrompt(appName, groundTruths, "")
	budget := maxTokens - estimateTokens(prompt)
	body, truncated := truncateToTokens(formatted, budget)
	if truncated {
		c.logger.Warn("review context truncated", "model", model, "max_tokens", maxTokens)
	}
	prompt = reviewPrompt(appName, groundTruths, body)

	resp, err := gen.Generate(ctx, prompt, core.WithMaxTokens(c.GetModelMaxOutputLimit(model)))
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("generating review with %s: %w", model, err)
	}

	return domain.CompletionResult{
		Answer:       strings.TrimSpace(resp.Content),
		GroundTruths: groundTruths,
		TokenUsage:   usageOf(resp, prompt),
	}, nil
}

// CreateGroundTruthCompletion extracts checkable requirements from a task
// specification. The answer is expected to be a JSON array of strings.
func (c *Client) CreateGroundTruthCompletion(ctx context.Context, model, specification, appName string) (string, error) {
	gen, err := c.generator(model)
	if err != nil {
		return "", err
	}

	prompt := groundTruthPrompt(appName, specification)
	resp, err := gen.Generate(ctx, prompt, core.WithMaxTokens(c.GetModelMaxOutputLimit(model)))
	if err != nil {
		return "", fmt.Errorf("generating ground truths with %s: %w", model, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func (c *Client) generator(model string) (Generator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen, ok := c.generators[model]; ok {
		return gen, nil
	}
	gen, err := c.factory(model)
	if err != nil {
		return nil, fmt.Errorf("creating model %s: %w", model, err)
	}
	c.generators[model] = gen
	return gen, nil
}

func usageOf(resp *core.LLMResponse, prompt string) domain.TokenUsage {
	if resp.Usage == nil {
		in, out := estimateTokens(prompt), estimateTokens(resp.Content)
		return domain.TokenUsage{Input: in, Output: out, Total: in + out}
	}
	u := domain.TokenUsage{
		Input:  resp.Usage.PromptTokens,
		Output: resp.Usage.CompletionTokens,
		Total:  resp.Usage.TotalTokens,
	}
	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	return u
}
