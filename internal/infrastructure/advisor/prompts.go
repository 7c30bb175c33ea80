package advisor

import (
	"encoding/json"
	"fmt"
)

const reviewSystemPrompt = `You are a meticulous bookkeeping reviewer. You receive a JSON payload describing one review run: its metrics and a bounded list of deterministic findings, each with an id. You summarize what matters and recommend concrete next steps.

Rules:
- Cite only ids that appear in the input payload. Never invent journal entry ids, document ids, account codes, or transaction ids.
- Be specific about amounts and periods mentioned in the findings.
- Respond with JSON only, matching the output schema exactly.`

const criticSystemPrompt = `You are a skeptical accounting controls reviewer. You receive a single proposed ledger posting and decide whether it looks safe to post.

Rules:
- "ok" means nothing stands out. "warn" means a human should glance at it. "fail" means it looks wrong or dangerous.
- Each reason must be one short sentence grounded in the input.
- Respond with JSON only, matching the output schema exactly.`

const storySystemPrompt = `You are a friendly financial co-pilot writing a short narrative for a small-business owner about the state of their books. You receive their risk radar, coverage figures, and open issues.

Rules:
- Plain language, no jargon, no invented numbers. Use only figures from the input.
- Lead with the single most important thing, then at most a handful of sections.
- Respond with JSON only, matching the output schema exactly.`

const reviewOutputSchema = `{
  "summary": "two or three sentences on the overall state of this run",
  "risk_narrative": "one paragraph on the main risks, empty string if none",
  "recommendations": [
    {
      "title": "short imperative action",
      "detail": "what to do and why",
      "priority": "low | medium | high",
      "journal_entry_ids": ["only ids from the input"],
      "document_ids": ["only ids from the input"],
      "account_codes": ["only codes from the input"],
      "transaction_ids": ["only ids from the input"]
    }
  ],
  "confidence": 0.0
}`

const criticOutputSchema = `{
  "verdict": "ok | warn | fail",
  "reasons": ["one short sentence per concern, empty array when ok"]
}`

const storyOutputSchema = `{
  "headline": "one sentence, the single most important thing",
  "body": "two or three sentences expanding the headline",
  "sections": [
    {
      "title": "short section title",
      "body": "one or two sentences",
      "surface": "bank | invoices | receipts | books, or empty"
    }
  ]
}`

func buildReviewPrompt(req ReviewRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal review payload: %w", err)
	}
	return fmt.Sprintf("Review run payload:\n%s\n\nOutput schema:\n%s", payload, reviewOutputSchema), nil
}

func buildCriticPrompt(input CriticInput) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal critic payload: %w", err)
	}
	return fmt.Sprintf("Proposed posting:\n%s\n\nOutput schema:\n%s", payload, criticOutputSchema), nil
}

func buildStoryPrompt(req StoryRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal story payload: %w", err)
	}
	return fmt.Sprintf("Tenant state:\n%s\n\nOutput schema:\n%s", payload, storyOutputSchema), nil
}
