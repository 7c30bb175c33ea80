package advisor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/go-playground/validator/v10"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// stripFences removes markdown code fences the model sometimes wraps
// around its JSON despite the response MIME type.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if match := fencePattern.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}

// decodeStrict turns raw model output into a validated struct. It
// repairs common JSON defects first, then rejects anything that fails
// schema validation. Callers treat any error as advisor unavailable.
func decodeStrict(raw string, out any, validate *validator.Validate) error {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return fmt.Errorf("advisor returned an empty payload")
	}

	repaired, err := jsonrepair.RepairJSON(cleaned)
	if err != nil {
		return fmt.Errorf("advisor output is not repairable JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("failed to parse advisor output: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("advisor output failed schema validation: %w", err)
	}
	return nil
}

// filterAdvice drops every referenced id that is not in the whitelist.
// The model only ever cites from the payload it was given; anything
// else is treated as hallucinated.
func filterAdvice(advice *ReviewAdvice, wl Whitelist) {
	entries := toSet(wl.JournalEntryIDs)
	docs := toSet(wl.DocumentIDs)
	codes := toSet(wl.AccountCodes)
	txs := toSet(wl.TransactionIDs)

	for i := range advice.Recommendations {
		rec := &advice.Recommendations[i]
		rec.JournalEntryIDs = keepAllowed(rec.JournalEntryIDs, entries)
		rec.DocumentIDs = keepAllowed(rec.DocumentIDs, docs)
		rec.AccountCodes = keepAllowed(rec.AccountCodes, codes)
		rec.TransactionIDs = keepAllowed(rec.TransactionIDs, txs)
	}
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func keepAllowed(ids []string, allowed map[string]bool) []string {
	if len(ids) == 0 {
		return nil
	}
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if allowed[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
