package domain

// Phase is the stage of the generation workflow for one session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAnalyzing Phase = "analyzing"
	PhaseSuccess   Phase = "success"
	PhaseError     Phase = "error"
)
