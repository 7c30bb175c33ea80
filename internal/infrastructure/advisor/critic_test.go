package advisor

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testAdvisor(t *testing.T) *GeminiAdvisor {
	t.Helper()
	cfg := Config{APIKey: "test"}
	cfg.applyDefaults()
	return &GeminiAdvisor{cfg: cfg, validate: validator.New(), logger: zap.NewNop()}
}

func TestCriticShortCircuitBelowThreshold(t *testing.T) {
	adv := testAdvisor(t)

	tests := []struct {
		name   string
		amount string
	}{
		{"small expense", "-42.17"},
		{"exactly at threshold", "5000"},
		{"negative at threshold", "-5000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adv.Critic(context.Background(), CriticInput{
				Amount:        decimal.RequireFromString(tt.amount),
				Currency:      "USD",
				DebitAccount:  "6000",
				CreditAccount: "1000",
				Source:        "RECONCILIATION",
			})

			assert.Equal(t, VerdictOK, result.Verdict)
			assert.False(t, result.CalledLLM)
			assert.Empty(t, result.Reasons)
		})
	}
}

func TestCriticDisabledAdvisorAlwaysOK(t *testing.T) {
	adv := NewDisabled()

	result := adv.Critic(context.Background(), CriticInput{
		Amount:           decimal.RequireFromString("999999"),
		IsBulkAdjustment: true,
	})

	assert.Equal(t, VerdictOK, result.Verdict)
	assert.False(t, result.CalledLLM)
}

func TestUncheckedResultDegradesToWarn(t *testing.T) {
	result := uncheckedResult()

	assert.Equal(t, VerdictWarn, result.Verdict)
	assert.True(t, result.CalledLLM)
	assert.NotEmpty(t, result.Reasons)
}
