package domain

import (
	"fmt"
	"strings"
	"time"
)

// AgentType is the practice category of a session.
type AgentType string

const (
	AgentTypeInterview    AgentType = "interview"
	AgentTypeConversation AgentType = "conversation"
	AgentTypeConfidence   AgentType = "confidence"
	AgentTypeNetworking   AgentType = "networking"
	AgentTypeCustom       AgentType = "custom"
)

// Categories lists the built-in practice categories in canonical order.
var Categories = []AgentType{
	AgentTypeInterview,
	AgentTypeConversation,
	AgentTypeConfidence,
	AgentTypeNetworking,
}

// ParseAgentType normalizes s and reports whether it names a known type.
func ParseAgentType(s string) (AgentType, bool) {
	t := AgentType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is a known agent type.
func (t AgentType) Valid() bool {
	return t == AgentTypeCustom || t.IsCategory()
}

// IsCategory reports whether t is one of the built-in categories.
func (t AgentType) IsCategory() bool {
	for _, c := range Categories {
		if t == c {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ParseStatus normalizes s and reports whether it names a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusActive, StatusPaused, StatusCompleted:
		return st, true
	}
	return st, false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Session is one timed practice interaction between a user and an agent.
// LastElapsedSeconds is the running time last reported by an open view; it
// is advisory until DurationSeconds is written on completion.
type Session struct {
	ID                 string         `json:"id"`
	OwnerID            string         `json:"user_id"`
	AgentType          AgentType      `json:"agent_type"`
	CustomAgentID      *string        `json:"custom_agent_id"`
	Title              string         `json:"title"`
	DurationSeconds    int            `json:"duration_seconds"`
	LastElapsedSeconds int            `json:"last_elapsed_seconds"`
	Status             Status         `json:"status"`
	Metadata           map[string]any `json:"session_metadata"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// DefaultTitle builds the title used when a session is created without one.
func DefaultTitle(label string, at time.Time) string {
	return fmt.Sprintf("%s Session - %s", label, at.Format("1/2/2006"))
}
