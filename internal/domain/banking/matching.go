package banking

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CandidateKind distinguishes what a suggestion points at
type CandidateKind string

const (
	CandidateKindJournalEntry CandidateKind = "JOURNAL_ENTRY"
	CandidateKindInvoice      CandidateKind = "INVOICE"
	CandidateKindBill         CandidateKind = "BILL"
)

// SuggestionMatchType distinguishes heuristic scores from rule hits
const (
	SuggestionTypeHeuristic = "HEURISTIC"
	SuggestionTypeRule      = "RULE"
)

// MatchCandidate is one potential counterpart for a bank transaction
type MatchCandidate struct {
	ID          uuid.UUID
	Kind        CandidateKind
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Suggestion is a ranked candidate with its confidence and reason
type Suggestion struct {
	CandidateID   uuid.UUID       `json:"candidate_id"`
	CandidateKind CandidateKind   `json:"candidate_kind"`
	AccountID     *uuid.UUID      `json:"account_id,omitempty"`
	Confidence    decimal.Decimal `json:"confidence"`
	Reason        string          `json:"reason"`
	MatchType     string          `json:"match_type"`
}

// Scoring weights and windows. Amount equality dominates, date proximity is
// secondary, token overlap breaks ties.
const (
	weightAmount = 0.60
	weightDate   = 0.25
	weightTokens = 0.15

	dateWindowDays = 15

	ruleConfidence = 0.95
	minConfidence  = 0.20
)

var amountTolerance = decimal.NewFromFloat(0.01)

// MatchingEngine ranks candidates for a bank transaction
type MatchingEngine struct {
	rules []BankRule
}

// NewMatchingEngine creates an engine over the tenant's active rules
func NewMatchingEngine(rules []BankRule) *MatchingEngine {
	active := make([]BankRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	return &MatchingEngine{rules: active}
}

// Score ranks the candidates for one transaction, best first. A matching
// bank rule short-circuits to a RULE suggestion ahead of the heuristic
// list; heuristic scores below the floor are dropped.
func (e *MatchingEngine) Score(tx *BankTransaction, candidates []MatchCandidate) []Suggestion {
	suggestions := make([]Suggestion, 0, len(candidates)+1)

	if rule := e.matchRule(tx.Description); rule != nil {
		accountID := rule.AccountID
		suggestions = append(suggestions, Suggestion{
			CandidateID:   rule.ID,
			CandidateKind: CandidateKindJournalEntry,
			AccountID:     &accountID,
			Confidence:    decimal.NewFromFloat(ruleConfidence),
			Reason:        fmt.Sprintf("matches rule %q", rule.Name),
			MatchType:     SuggestionTypeRule,
		})
	}

	txTokens := Tokenize(tx.Description)
	txAmount := tx.AbsoluteAmount()

	scored := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		confidence, reason := scoreCandidate(txAmount, tx.TransactionDate, txTokens, c)
		if confidence < minConfidence {
			continue
		}
		scored = append(scored, Suggestion{
			CandidateID:   c.ID,
			CandidateKind: c.Kind,
			Confidence:    decimal.NewFromFloat(confidence).Round(4),
			Reason:        reason,
			MatchType:     SuggestionTypeHeuristic,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Confidence.GreaterThan(scored[j].Confidence)
	})

	return append(suggestions, scored...)
}

// Best returns the top suggestion or nil
func (e *MatchingEngine) Best(tx *BankTransaction, candidates []MatchCandidate) *Suggestion {
	ranked := e.Score(tx, candidates)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

func (e *MatchingEngine) matchRule(description string) *BankRule {
	for i := range e.rules {
		if e.rules[i].Matches(description) {
			return &e.rules[i]
		}
	}
	return nil
}

func scoreCandidate(txAmount decimal.Decimal, txDate time.Time, txTokens []string, c MatchCandidate) (float64, string) {
	var score float64
	var reason string

	diff := txAmount.Sub(c.Amount.Abs()).Abs()
	if diff.LessThanOrEqual(amountTolerance) {
		score += weightAmount
		reason = "amount matches"
	} else {
		// Near misses earn partial credit up to 10% off.
		if !txAmount.IsZero() {
			ratio, _ := diff.Div(txAmount).Float64()
			if ratio < 0.10 {
				score += weightAmount * (1 - ratio/0.10) * 0.5
				reason = "amount close"
			}
		}
	}

	days := txDate.Sub(c.Date).Hours() / 24
	if days < 0 {
		days = -days
	}
	if days <= dateWindowDays {
		score += weightDate * (1 - days/dateWindowDays)
		if reason != "" {
			reason += ", "
		}
		reason += fmt.Sprintf("%d days apart", int(days))
	}

	if overlap := TokenOverlap(txTokens, Tokenize(c.Description)); overlap > 0 {
		score += weightTokens * overlap
		if reason != "" {
			reason += ", "
		}
		reason += "description overlap"
	}

	if reason == "" {
		reason = "weak match"
	}
	return score, reason
}
