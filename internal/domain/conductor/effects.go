package conductor

import "github.com/roundtable-dev/roundtable/internal/domain/session"

// Effect is a declarative side effect implied by a selector decision.
// The engine never applies effects itself; the turn orchestrator does,
// in list order.
type Effect interface {
	effect()
}

// MergeBlackboard replaces the session blackboard with Next.
type MergeBlackboard struct {
	Next session.Blackboard
}

// RecordIntervention appends a conductor steering message to the transcript.
type RecordIntervention struct {
	Content   string
	Reasoning string
}

func (MergeBlackboard) effect() {}
func (RecordIntervention) effect() {}

// PlanEffects derives the ordered effect list (0-2 items) implied by a
// selector decision: a blackboard merge when the patch sets any field,
// then an intervention record when flagged with a non-empty message.
func PlanEffects(current session.Blackboard, d Decision) []Effect {
	var effects []Effect
	if !d.BlackboardPatch.IsZero() {
		effects = append(effects, MergeBlackboard{Next: current.Merge(d.BlackboardPatch)})
	}
	if d.IsIntervention && d.InterventionMessage != "" {
		effects = append(effects, RecordIntervention{
			Content:   d.InterventionMessage,
			Reasoning: d.Reasoning,
		})
	}
	return effects
}
