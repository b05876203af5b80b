package messagequeue

// PersonaTurnTriggerPayload is the schema for turns.persona.trigger messages.
type PersonaTurnTriggerPayload struct {
	SessionID      string `json:"session_id"`
	PersonaID      string `json:"persona_id"`
	ModelID        string `json:"model_id"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	Reasoning      string `json:"reasoning"`
	IsIntervention bool   `json:"is_intervention"`
}

// PersonaTurnCompletePayload is the schema for turns.persona.complete messages.
type PersonaTurnCompletePayload struct {
	SessionID string `json:"session_id"`
	PersonaID string `json:"persona_id"`
	Content   string `json:"content"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	Error     string `json:"error,omitempty"`
}
