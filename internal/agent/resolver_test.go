package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/confido/internal/domain"
)

func persona(id, name string) domain.Agent {
	return domain.Agent{ID: id, Name: name, IsFeatured: true, IsPublic: true}
}

func TestResolveExactIDBeatsCategory(t *testing.T) {
	available := []domain.Agent{
		persona("a1", "Senior Software Engineer Interview"),
		persona("interview", "Custom X"),
	}
	got, ok := Resolve("interview", available)
	assert.True(t, ok)
	assert.Equal(t, "interview", got.ID)
}

func TestResolveCategoryBeatsSubstring(t *testing.T) {
	available := []domain.Agent{
		persona("a1", "Mock Interview Drill"),
		persona("a2", "Senior Software Engineer Interview"),
	}
	got, ok := Resolve("Interview", available)
	assert.True(t, ok)
	assert.Equal(t, "a2", got.ID)
}

func TestResolveNetworkingSharesConfidencePersona(t *testing.T) {
	available := []domain.Agent{persona("ted", "TED Talk Presentation Coach")}
	for _, ref := range []string{"confidence", "networking"} {
		got, ok := Resolve(ref, available)
		assert.True(t, ok, ref)
		assert.Equal(t, "ted", got.ID, ref)
	}
}

func TestResolveSubstringIsCaseInsensitive(t *testing.T) {
	available := []domain.Agent{
		persona("a1", "Sales Pitch Coach"),
		persona("a2", "Pitch Perfect"),
	}
	got, ok := Resolve("PITCH", available)
	assert.True(t, ok)
	assert.Equal(t, "a1", got.ID, "first element wins within a tier")
}

func TestResolveNoMatch(t *testing.T) {
	available := []domain.Agent{persona("a1", "Sales Pitch Coach")}

	_, ok := Resolve("karaoke", available)
	assert.False(t, ok)

	_, ok = Resolve("", available)
	assert.False(t, ok)

	_, ok = Resolve("interview", nil)
	assert.False(t, ok)
}

func TestResolveCategoryFallsThroughToSubstring(t *testing.T) {
	// No persona carries the mapped name, so tier 3 matches on "interview".
	available := []domain.Agent{persona("a1", "Behavioral Interview Drill")}
	got, ok := Resolve("interview", available)
	assert.True(t, ok)
	assert.Equal(t, "a1", got.ID)
}

func TestCategoryForPersona(t *testing.T) {
	c, ok := CategoryForPersona("TED Talk Presentation Coach")
	assert.True(t, ok)
	assert.Equal(t, domain.AgentTypeConfidence, c)

	_, ok = CategoryForPersona("Custom X")
	assert.False(t, ok)
}
