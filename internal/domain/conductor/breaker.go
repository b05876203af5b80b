package conductor

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Default safety thresholds applied when a SafetyPolicy field is zero.
const (
	DefaultMaxAutoReplies     uint = 8
	DefaultTokenBudgetWarning uint = 50_000
	DefaultTokenBudgetLimit   uint = 100_000
)

// SafetyPolicy bounds automatic turn progression. It is configuration,
// not session state.
type SafetyPolicy struct {
	MaxAutoReplies     uint
	TokenBudgetWarning uint
	TokenBudgetLimit   uint
}

// withDefaults fills zero fields with the default thresholds.
func (p SafetyPolicy) withDefaults() SafetyPolicy {
	if p.MaxAutoReplies == 0 {
		p.MaxAutoReplies = DefaultMaxAutoReplies
	}
	if p.TokenBudgetWarning == 0 {
		p.TokenBudgetWarning = DefaultTokenBudgetWarning
	}
	if p.TokenBudgetLimit == 0 {
		p.TokenBudgetLimit = DefaultTokenBudgetLimit
	}
	return p
}

// BreakerDecision is the admission-control outcome for one turn.
// Exactly one of Pause, ContinueWithWarning, or ContinueWithinBudget.
type BreakerDecision interface {
	breakerDecision()
}

// Pause halts automatic progression until the user confirms.
type Pause struct {
	Message string
}

// ContinueWithWarning admits the turn but carries a budget warning.
type ContinueWithWarning struct {
	Warning string
}

// ContinueWithinBudget admits the turn with no caveats.
type ContinueWithinBudget struct{}

func (Pause) breakerDecision() {}
func (ContinueWithWarning) breakerDecision() {}
func (ContinueWithinBudget) breakerDecision() {}

// grouped renders n with thousands separators ("100,000").
var grouped = message.NewPrinter(language.English)

// Admit runs the circuit breaker checks in order: auto-reply ceiling,
// token hard limit, token warning threshold. First match wins.
func Admit(autoReplyCount, tokenCount uint, policy SafetyPolicy) BreakerDecision {
	p := policy.withDefaults()

	if autoReplyCount >= p.MaxAutoReplies {
		return Pause{Message: fmt.Sprintf(
			"Circuit breaker: Maximum %d auto-replies reached. Click continue to proceed.",
			p.MaxAutoReplies,
		)}
	}
	if tokenCount >= p.TokenBudgetLimit {
		return Pause{Message: grouped.Sprintf(
			"Token budget exceeded (%d / %d). Session paused.",
			tokenCount, p.TokenBudgetLimit,
		)}
	}
	if tokenCount >= p.TokenBudgetWarning {
		pct := math.Round(float64(tokenCount) / float64(p.TokenBudgetLimit) * 100)
		return ContinueWithWarning{Warning: fmt.Sprintf(
			"Warning: Token usage at %.0f%% of budget", pct,
		)}
	}
	return ContinueWithinBudget{}
}
