package selectorllm

import (
	"strings"
	"text/template"

	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
)

// selectorPromptText instructs the model to act as the discussion conductor
// and answer with a single JSON object matching the decision schema.
const selectorPromptText = `You are the conductor of a multi-persona discussion.

Problem under discussion:
{{.Problem}}
{{- if .OutputGoal}}

Desired output:
{{.OutputGoal}}
{{- end}}

Shared blackboard:
- Consensus: {{orDash .Blackboard.Consensus}}
- Conflicts: {{orDash .Blackboard.Conflicts}}
- Next step: {{orDash .Blackboard.NextStep}}
- Facts: {{orDash .Blackboard.Facts}}

Eligible speakers:
{{- range .Eligible}}
- {{.ID}}: {{.Name}} ({{.Role}})
{{- end}}
{{- if .Muted}}

Muted speakers (do NOT select):
{{- range .Muted}}
- {{.ID}}: {{.Name}} (muted for {{.RemainingTurns}} more turns)
{{- end}}
{{- end}}
{{- if .LastSpeakerID}}

The last speaker was {{.LastSpeakerID}}; do not select them again.
{{- end}}

Pick who should speak next, or "WAIT_FOR_USER" if the discussion needs
human input. If the discussion has drifted, set is_intervention to true and
provide a short steering message. Update blackboard fields only when you
have something new to record.

Respond with a single JSON object and nothing else:
{"selected_persona_id": "...", "reasoning": "...", "is_intervention": false,
 "intervention_message": "", "blackboard_patch": {"consensus": "", "conflicts": "", "next_step": "", "facts": ""}}`

var selectorPrompt = template.Must(template.New("selector").Funcs(template.FuncMap{
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}).Parse(selectorPromptText))

// renderPrompt produces the system prompt for a selector request.
func renderPrompt(req conductor.Request) (string, error) {
	var sb strings.Builder
	if err := selectorPrompt.Execute(&sb, req); err != nil {
		return "", err
	}
	return sb.String(), nil
}
