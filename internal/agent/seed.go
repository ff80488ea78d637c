package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ashureev/confido/internal/domain"
)

// SystemPersona describes a built-in featured agent.
type SystemPersona struct {
	Name         string
	Description  string
	SystemPrompt string
	VoiceModel   string
	Traits       []string
}

// SystemPersonas are the featured agents every installation ships with.
// Their names must match the category table used by Resolve.
var SystemPersonas = []SystemPersona{
	{
		Name:         "Senior Software Engineer Interview",
		Description:  "Practice technical and behavioral interview questions.",
		SystemPrompt: "You are a senior software engineer conducting a job interview. Ask one question at a time, probe for depth, and give concise feedback on clarity and structure.",
		VoiceModel:   "aura-orion-en",
		Traits:       []string{"professional", "probing", "fair"},
	},
	{
		Name:         "English Pronunciation Coach",
		Description:  "Everyday conversation with gentle pronunciation feedback.",
		SystemPrompt: "You are a friendly English conversation partner. Keep the conversation flowing and point out pronunciation or phrasing issues kindly.",
		VoiceModel:   domain.DefaultVoiceModel,
		Traits:       []string{"patient", "encouraging"},
	},
	{
		Name:         "TED Talk Presentation Coach",
		Description:  "Build stage confidence and a clear speaking style.",
		SystemPrompt: "You are a presentation coach who has prepared many TED speakers. Help the user structure ideas, speak with confidence, and connect with an audience.",
		VoiceModel:   "aura-luna-en",
		Traits:       []string{"energetic", "supportive", "direct"},
	},
}

// Seed creates any missing system personas as featured public agents and
// returns how many were created. Existing personas are left untouched so
// their usage counts survive reseeding.
func (s *Service) Seed(ctx context.Context, personas []SystemPersona) (int, error) {
	created := 0
	for _, p := range personas {
		existing, err := s.store.FindSystemAgentByName(ctx, p.Name)
		if err != nil {
			return created, internal("find system agent", err, "name", p.Name)
		}
		if existing != nil {
			continue
		}

		now := s.now()
		a := &domain.Agent{
			ID:         uuid.NewString(),
			IsFeatured: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		Input{
			Name:              p.Name,
			Description:       p.Description,
			SystemPrompt:      p.SystemPrompt,
			VoiceModel:        p.VoiceModel,
			PersonalityTraits: p.Traits,
			IsPublic:          true,
		}.apply(a)

		if err := s.store.CreateAgent(ctx, a); err != nil {
			return created, internal("seed system agent", err, "name", p.Name)
		}
		slog.Info("system persona seeded", "agent_id", a.ID, "name", a.Name)
		created++
	}
	return created, nil
}
