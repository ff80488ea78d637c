package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/store"
)

var (
	alice = access.Actor{UserID: "alice"}
	bob   = access.Actor{UserID: "bob"}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st)
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService(t)
	a, err := svc.Create(context.Background(), alice, Input{
		Name:              "  Pitch Partner ",
		SystemPrompt:      "listen to my pitch",
		PersonalityTraits: []string{"blunt", "Blunt", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "Pitch Partner", a.Name)
	assert.Equal(t, "alice", a.Owner())
	assert.Equal(t, domain.DefaultVoiceModel, a.VoiceModel)
	assert.Equal(t, []string{"blunt"}, a.PersonalityTraits)
	assert.Nil(t, a.Description)
	assert.False(t, a.IsPublic)
	assert.False(t, a.IsFeatured)
	assert.Zero(t, a.UsageCount)
}

func TestCreateRequiresNameAndPrompt(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), alice, Input{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), access.Anonymous, Input{Name: "x", SystemPrompt: "y"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	private, err := svc.Create(ctx, alice, Input{Name: "Private", SystemPrompt: "p"})
	require.NoError(t, err)
	public, err := svc.Create(ctx, alice, Input{Name: "Public", SystemPrompt: "p", IsPublic: true})
	require.NoError(t, err)

	_, err = svc.Get(ctx, alice, private.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, bob, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Get(ctx, access.Anonymous, private.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Get(ctx, access.Anonymous, public.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, alice, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a, err := svc.Create(ctx, alice, Input{Name: "Mine", SystemPrompt: "p", IsPublic: true})
	require.NoError(t, err)

	_, err = svc.Update(ctx, bob, a.ID, Input{Name: "Hijacked", SystemPrompt: "p"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = svc.Delete(ctx, bob, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Update(ctx, alice, a.ID, Input{Name: "", SystemPrompt: "p"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.Update(ctx, alice, a.ID, Input{Name: "Renamed", SystemPrompt: "q", VoiceModel: "aura-luna-en"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "aura-luna-en", updated.VoiceModel)
	assert.False(t, updated.IsPublic, "omitted is_public defaults to false")

	require.NoError(t, svc.Delete(ctx, alice, a.ID))
	_, err = svc.Get(ctx, alice, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSystemPersonaIsImmutable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Seed(ctx, SystemPersonas)
	require.NoError(t, err)

	featured, err := svc.List(ctx, access.Anonymous, FilterFeatured, 0)
	require.NoError(t, err)
	require.NotEmpty(t, featured)

	_, err = svc.Update(ctx, alice, featured[0].ID, Input{Name: "Mine now", SystemPrompt: "p"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	n, err := svc.Seed(ctx, SystemPersonas)
	require.NoError(t, err)
	assert.Equal(t, len(SystemPersonas), n)

	n, err = svc.Seed(ctx, SystemPersonas)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Seed(ctx, SystemPersonas)
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, Input{Name: "Mine", SystemPrompt: "p"})
	require.NoError(t, err)

	_, err = svc.List(ctx, access.Anonymous, FilterMine, 0)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	mine, err := svc.List(ctx, alice, FilterMine, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	public, err := svc.List(ctx, access.Anonymous, FilterPublic, 0)
	require.NoError(t, err)
	assert.Len(t, public, len(SystemPersonas))
}

func TestParseListFilter(t *testing.T) {
	f, err := ParseListFilter("my")
	require.NoError(t, err)
	assert.Equal(t, FilterMine, f)

	f, err = ParseListFilter("Featured")
	require.NoError(t, err)
	assert.Equal(t, FilterFeatured, f)

	_, err = ParseListFilter("everyone")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCandidatesOrderFeaturedThenMine(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Seed(ctx, SystemPersonas)
	require.NoError(t, err)
	mine, err := svc.Create(ctx, alice, Input{Name: "Interview Warmup", SystemPrompt: "p"})
	require.NoError(t, err)

	got, err := svc.Candidates(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, len(SystemPersonas)+1)
	assert.True(t, got[0].IsFeatured)
	assert.Equal(t, mine.ID, got[len(got)-1].ID)

	resolved, ok, err := svc.Resolve(ctx, alice, "interview")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Senior Software Engineer Interview", resolved.Name)

	resolved, ok, err = svc.Resolve(ctx, alice, "warmup")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mine.ID, resolved.ID)
}
