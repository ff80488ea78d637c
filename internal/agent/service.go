package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/store"
)

// Store is the persistence surface the agent service needs.
type Store interface {
	CreateAgent(ctx context.Context, a *domain.Agent) error
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	FindSystemAgentByName(ctx context.Context, name string) (*domain.Agent, error)
	UpdateAgent(ctx context.Context, a *domain.Agent) error
	DeleteAgent(ctx context.Context, id string) error
	ListAgentsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Agent, error)
	ListPublicAgents(ctx context.Context, limit int) ([]domain.Agent, error)
	ListFeaturedAgents(ctx context.Context) ([]domain.Agent, error)
}

// ListFilter selects which agents List returns.
type ListFilter string

const (
	FilterMine     ListFilter = "mine"
	FilterPublic   ListFilter = "public"
	FilterFeatured ListFilter = "featured"
)

// ParseListFilter accepts mine (also "my" or empty), public and featured.
func ParseListFilter(s string) (ListFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "my", "mine":
		return FilterMine, nil
	case "public":
		return FilterPublic, nil
	case "featured":
		return FilterFeatured, nil
	}
	return "", apperr.Newf(apperr.KindValidation, "unknown agent filter %q", s)
}

// Input carries the user-editable agent fields for create and update.
type Input struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	SystemPrompt      string   `json:"system_prompt"`
	VoiceModel        string   `json:"voice_model"`
	PersonalityTraits []string `json:"personality_traits"`
	IsPublic          bool     `json:"is_public"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.SystemPrompt) == "" {
		return apperr.Validation("name and system prompt are required")
	}
	return nil
}

// apply overwrites a's editable fields, filling defaults for omitted ones.
func (in Input) apply(a *domain.Agent) {
	a.Name = strings.TrimSpace(in.Name)
	a.Description = domain.StringPtr(in.Description)
	a.SystemPrompt = in.SystemPrompt
	a.VoiceModel = strings.TrimSpace(in.VoiceModel)
	if a.VoiceModel == "" {
		a.VoiceModel = domain.DefaultVoiceModel
	}
	a.PersonalityTraits = domain.NormalizeTraits(in.PersonalityTraits)
	a.IsPublic = in.IsPublic
}

// Service manages coaching personas.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an agent service backed by st.
func NewService(st Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Create saves a new agent owned by the actor. New agents are never
// featured and start with zero usage.
func (s *Service) Create(ctx context.Context, actor access.Actor, in Input) (*domain.Agent, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	owner := actor.UserID
	a := &domain.Agent{
		ID:        uuid.NewString(),
		OwnerID:   &owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(a)

	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, internal("create agent", err, "user_id", actor.UserID)
	}
	slog.Info("agent created", "agent_id", a.ID, "user_id", actor.UserID)
	return a, nil
}

// Get returns an agent the actor may read.
func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*domain.Agent, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.AgentResource(*a), access.Read); err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the editable fields of an agent the actor owns.
func (s *Service) Update(ctx context.Context, actor access.Actor, id string, in Input) (*domain.Agent, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.AgentResource(*a), access.Write); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	in.apply(a)
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAgent(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("agent")
		}
		return nil, internal("update agent", err, "agent_id", id)
	}
	return a, nil
}

// Delete removes an agent the actor owns.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Check(actor, access.AgentResource(*a), access.Write); err != nil {
		return err
	}
	if err := s.store.DeleteAgent(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("agent")
		}
		return internal("delete agent", err, "agent_id", id)
	}
	slog.Info("agent deleted", "agent_id", id, "user_id", actor.UserID)
	return nil
}

// List returns agents for a filter. Featured and public listings are open
// to anonymous callers; mine requires authentication.
func (s *Service) List(ctx context.Context, actor access.Actor, filter ListFilter, limit int) ([]domain.Agent, error) {
	var (
		agents []domain.Agent
		err    error
	)
	switch filter {
	case FilterFeatured:
		agents, err = s.store.ListFeaturedAgents(ctx)
	case FilterPublic:
		agents, err = s.store.ListPublicAgents(ctx, limit)
	default:
		if !actor.Authenticated() {
			return nil, access.Deny(access.ReasonUnauthenticated).Err()
		}
		agents, err = s.store.ListAgentsByOwner(ctx, actor.UserID, 0)
	}
	if err != nil {
		return nil, internal("list agents", err, "filter", string(filter))
	}
	return agents, nil
}

// Candidates returns the ordered list the resolver searches: featured
// agents followed by the actor's own.
func (s *Service) Candidates(ctx context.Context, actor access.Actor) ([]domain.Agent, error) {
	featured, err := s.store.ListFeaturedAgents(ctx)
	if err != nil {
		return nil, internal("list featured agents", err)
	}
	if !actor.Authenticated() {
		return featured, nil
	}
	mine, err := s.store.ListAgentsByOwner(ctx, actor.UserID, 0)
	if err != nil {
		return nil, internal("list owned agents", err, "user_id", actor.UserID)
	}
	return append(featured, mine...), nil
}

// Resolve finds the agent ref points at among the actor's candidates.
// ok is false when nothing matched; the caller should ask the user to pick.
func (s *Service) Resolve(ctx context.Context, actor access.Actor, ref string) (a domain.Agent, ok bool, err error) {
	if !actor.Authenticated() {
		return domain.Agent{}, false, access.Deny(access.ReasonUnauthenticated).Err()
	}
	candidates, err := s.Candidates(ctx, actor)
	if err != nil {
		return domain.Agent{}, false, err
	}
	a, ok = Resolve(ref, candidates)
	return a, ok, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, internal("get agent", err, "agent_id", id)
	}
	if a == nil {
		return nil, apperr.NotFound("agent")
	}
	return a, nil
}

// internal logs a backend failure and hides it behind a generic error.
func internal(op string, err error, attrs ...any) error {
	slog.Error(op+" failed", append(attrs, "error", err)...)
	return apperr.Internal(err)
}
