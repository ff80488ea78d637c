package domain

import "time"

// SessionAnalytics holds speech metrics produced by the external speech
// engine. The core never mutates these rows.
type SessionAnalytics struct {
	ID                  string    `json:"id"`
	SessionID           string    `json:"session_id"`
	UserSpeakingTimeMs  int64     `json:"user_speaking_time_ms"`
	AgentSpeakingTimeMs int64     `json:"agent_speaking_time_ms"`
	TotalWordsUser      int       `json:"total_words_user"`
	TotalWordsAgent     int       `json:"total_words_agent"`
	WordsPerMinute      float64   `json:"words_per_minute"`
	PauseCount          int       `json:"pause_count"`
	InterruptionCount   int       `json:"interruption_count"`
	FillerWordsCount    int       `json:"filler_words_count"`
	ConfidenceScore     *float64  `json:"confidence_score"`
	FluencyScore        *float64  `json:"fluency_score"`
	PaceScore           *float64  `json:"pace_score"`
	CreatedAt           time.Time `json:"created_at"`
}

// SessionSummary is narrative feedback written after a session completes.
type SessionSummary struct {
	ID                     string    `json:"id"`
	SessionID              string    `json:"session_id"`
	Summary                string    `json:"summary"`
	KeyPoints              []string  `json:"key_points"`
	ImprovementSuggestions []string  `json:"improvement_suggestions"`
	Strengths              []string  `json:"strengths"`
	AreasForImprovement    []string  `json:"areas_for_improvement"`
	OverallRating          *float64  `json:"overall_rating"`
	AIFeedback             *string   `json:"ai_feedback"`
	CreatedAt              time.Time `json:"created_at"`
}

// AgentRef is the slice of an agent joined onto session listings.
type AgentRef struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// SessionRecord is a session joined with its analytics, summary and agent.
type SessionRecord struct {
	Session
	Analytics []SessionAnalytics `json:"session_analytics"`
	Summary   *SessionSummary    `json:"session_summaries"`
	Agent     *AgentRef          `json:"custom_agents"`
}

// FirstAnalytics returns the earliest analytics row, if any.
func (r *SessionRecord) FirstAnalytics() (SessionAnalytics, bool) {
	if len(r.Analytics) == 0 {
		return SessionAnalytics{}, false
	}
	return r.Analytics[0], true
}

// Confidence returns the first analytics row's confidence score and whether
// one is defined.
func (r *SessionRecord) Confidence() (float64, bool) {
	a, ok := r.FirstAnalytics()
	if !ok || a.ConfidenceScore == nil {
		return 0, false
	}
	return *a.ConfidenceScore, true
}

// AgentName returns the joined agent's display name, or "".
func (r *SessionRecord) AgentName() string {
	if r.Agent == nil {
		return ""
	}
	return r.Agent.Name
}
