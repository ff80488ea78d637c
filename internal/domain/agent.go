package domain

import (
	"strings"
	"time"
)

// DefaultVoiceModel is used when an agent is saved without a voice.
const DefaultVoiceModel = "aura-asteria-en"

// Agent is a configurable coaching persona.
type Agent struct {
	ID string `json:"id"`
	// OwnerID is nil for system-provided personas.
	OwnerID           *string   `json:"user_id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	SystemPrompt      string    `json:"system_prompt"`
	VoiceModel        string    `json:"voice_model"`
	PersonalityTraits []string  `json:"personality_traits"`
	IsPublic          bool      `json:"is_public"`
	IsFeatured        bool      `json:"is_featured"`
	UsageCount        int64     `json:"usage_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Owner returns the owning user id, or "" for system personas.
func (a *Agent) Owner() string {
	if a.OwnerID == nil {
		return ""
	}
	return *a.OwnerID
}

// IsSystem reports whether the agent has no owning user.
func (a *Agent) IsSystem() bool {
	return a.OwnerID == nil
}

// Listed reports whether anyone may read the agent.
func (a *Agent) Listed() bool {
	return a.IsPublic || a.IsFeatured
}

// NormalizeTraits trims, drops blanks and removes duplicates while keeping
// first-seen order. Trait tags compare case-insensitively.
func NormalizeTraits(traits []string) []string {
	out := make([]string, 0, len(traits))
	seen := make(map[string]struct{}, len(traits))
	for _, t := range traits {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
