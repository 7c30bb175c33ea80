package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Config carries the tunables the Gemini advisor needs. Values come
// from the application config; defaults are applied here so a partially
// populated config stays safe.
type Config struct {
	APIKey string
	Model  string

	// ReviewTimeout bounds run advice and critic calls, StoryTimeout
	// bounds narrative generation.
	ReviewTimeout time.Duration
	StoryTimeout  time.Duration

	// CriticAmountThreshold is the absolute amount above which a
	// posting is considered high-risk.
	CriticAmountThreshold decimal.Decimal
}

const (
	defaultModel         = "gemini-2.0-flash"
	defaultReviewTimeout = 15 * time.Second
	defaultStoryTimeout  = 60 * time.Second
)

var defaultCriticThreshold = decimal.NewFromInt(5000)

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.ReviewTimeout <= 0 {
		c.ReviewTimeout = defaultReviewTimeout
	}
	if c.StoryTimeout <= 0 {
		c.StoryTimeout = defaultStoryTimeout
	}
	if c.CriticAmountThreshold.IsZero() {
		c.CriticAmountThreshold = defaultCriticThreshold
	}
}

// GeminiAdvisor implements Advisor against the Gemini API
type GeminiAdvisor struct {
	client   *genai.Client
	cfg      Config
	validate *validator.Validate
	logger   *zap.Logger
}

// NewGeminiAdvisor creates the advisor. It fails only on client
// construction; individual calls degrade to nil results instead.
func NewGeminiAdvisor(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiAdvisor, error) {
	cfg.applyDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("advisor API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAdvisor{
		client:   client,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

// Model returns the configured model name
func (g *GeminiAdvisor) Model() string {
	return g.cfg.Model
}

// Review asks for run-level advice and passes the response through the
// guardrail. Timeouts and malformed output yield a nil result.
func (g *GeminiAdvisor) Review(ctx context.Context, req ReviewRequest) (*ReviewAdvice, error) {
	prompt, err := buildReviewPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build review prompt: %w", err)
	}

	raw, err := g.generate(ctx, g.cfg.ReviewTimeout, reviewSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var advice ReviewAdvice
	if err := decodeStrict(raw, &advice, g.validate); err != nil {
		return nil, err
	}
	filterAdvice(&advice, req.Whitelist)
	return &advice, nil
}

// Story generates the tenant narrative under the longer watchdog
func (g *GeminiAdvisor) Story(ctx context.Context, req StoryRequest) (*StoryNarrative, error) {
	prompt, err := buildStoryPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build story prompt: %w", err)
	}

	raw, err := g.generate(ctx, g.cfg.StoryTimeout, storySystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var narrative StoryNarrative
	if err := decodeStrict(raw, &narrative, g.validate); err != nil {
		return nil, err
	}
	return &narrative, nil
}

// generate runs a single JSON-mode completion under a watchdog timeout
func (g *GeminiAdvisor) generate(ctx context.Context, timeout time.Duration, systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("advisor generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("advisor returned an empty response")
	}
	return text, nil
}

// Ensure GeminiAdvisor implements Advisor
var _ Advisor = (*GeminiAdvisor)(nil)
