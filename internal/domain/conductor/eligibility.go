package conductor

import "github.com/roundtable-dev/roundtable/internal/domain/persona"

// EligibleSpeaker is a persona that may be selected to speak this turn.
type EligibleSpeaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// MutedSpeaker is a persona excluded from selection for a counted number
// of remaining turns.
type MutedSpeaker struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RemainingTurns uint   `json:"remaining_turns"`
}

// Eligibility partitions a session's personas for one turn. Eligible and
// Muted are disjoint; the conductor persona and the last speaker appear in
// neither unless they are themselves hushed.
type Eligibility struct {
	LastSpeakerID string
	Eligible      []EligibleSpeaker
	Muted         []MutedSpeaker
}

// ResolveEligibility computes who may speak next. Hushed personas are muted;
// the conductor and the most recent speaker are excluded from both lists.
// List order follows the input persona order.
func ResolveEligibility(personas []persona.Persona, conductorID, lastSpeakerID string) Eligibility {
	el := Eligibility{LastSpeakerID: lastSpeakerID}
	for i := range personas {
		p := &personas[i]
		switch {
		case p.IsHushed():
			el.Muted = append(el.Muted, MutedSpeaker{
				ID:             p.ID,
				Name:           p.Name,
				RemainingTurns: p.HushTurnsRemaining,
			})
		case p.ID == conductorID || p.ID == lastSpeakerID:
			// Excluded from selection, not counted as muted.
		default:
			el.Eligible = append(el.Eligible, EligibleSpeaker{
				ID:   p.ID,
				Name: p.Name,
				Role: p.Role,
			})
		}
	}
	return el
}
