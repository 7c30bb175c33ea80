package advisor

import (
	"context"

	"go.uber.org/zap"
)

// criticOutput is the raw schema the model must produce
type criticOutput struct {
	Verdict string   `json:"verdict" validate:"required,oneof=ok warn fail"`
	Reasons []string `json:"reasons"`
}

// Critic checks a posting for high-risk signals. Below the amount
// threshold (and outside bulk adjustments) it returns ok without
// calling the LLM. When the LLM is needed but unavailable, the verdict
// degrades to warn so reviewers still see the posting was unchecked.
func (g *GeminiAdvisor) Critic(ctx context.Context, input CriticInput) CriticResult {
	if !input.IsBulkAdjustment && input.Amount.Abs().LessThanOrEqual(g.cfg.CriticAmountThreshold) {
		return CriticResult{Verdict: VerdictOK, Reasons: []string{}, CalledLLM: false}
	}

	prompt, err := buildCriticPrompt(input)
	if err != nil {
		g.logger.Warn("critic prompt build failed", zap.Error(err))
		return uncheckedResult()
	}

	raw, err := g.generate(ctx, g.cfg.ReviewTimeout, criticSystemPrompt, prompt)
	if err != nil {
		g.logger.Warn("critic unavailable, posting proceeds unchecked", zap.Error(err))
		return uncheckedResult()
	}

	var out criticOutput
	if err := decodeStrict(raw, &out, g.validate); err != nil {
		g.logger.Warn("critic returned malformed output", zap.Error(err))
		return uncheckedResult()
	}

	reasons := out.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return CriticResult{Verdict: out.Verdict, Reasons: reasons, CalledLLM: true}
}

func uncheckedResult() CriticResult {
	return CriticResult{
		Verdict:   VerdictWarn,
		Reasons:   []string{"high-risk posting could not be verified"},
		CalledLLM: true,
	}
}
