package domain

import "time"

// UserProgress is the per skill area rollup of a user's completed sessions.
type UserProgress struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	SkillArea         AgentType  `json:"skill_area"`
	TotalSessions     int        `json:"total_sessions"`
	TotalTimeMinutes  float64    `json:"total_time_minutes"`
	AverageConfidence float64    `json:"average_confidence"`
	AverageFluency    float64    `json:"average_fluency"`
	AveragePace       float64    `json:"average_pace"`
	LastSessionDate   *time.Time `json:"last_session_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// GoalMetric is what a goal measures.
type GoalMetric string

const (
	GoalMetricConfidence   GoalMetric = "confidence"
	GoalMetricFluency      GoalMetric = "fluency"
	GoalMetricPace         GoalMetric = "pace"
	GoalMetricSessionCount GoalMetric = "session_count"
)

// Valid reports whether m is a known metric.
func (m GoalMetric) Valid() bool {
	switch m {
	case GoalMetricConfidence, GoalMetricFluency, GoalMetricPace, GoalMetricSessionCount:
		return true
	}
	return false
}

// Goal is a user-defined practice target.
type Goal struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	TargetMetric GoalMetric `json:"target_metric"`
	TargetValue  float64    `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	Deadline     *time.Time `json:"deadline"`
	// Status reuses the session status values: active, paused, completed.
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
