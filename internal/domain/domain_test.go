package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTraitsIsASet(t *testing.T) {
	got := NormalizeTraits([]string{" Friendly", "patient", "", "friendly ", "Direct"})
	assert.Equal(t, []string{"Friendly", "patient", "Direct"}, got)
}

func TestParseAgentType(t *testing.T) {
	typ, ok := ParseAgentType(" Interview ")
	assert.True(t, ok)
	assert.Equal(t, AgentTypeInterview, typ)
	assert.True(t, typ.IsCategory())

	typ, ok = ParseAgentType("custom")
	assert.True(t, ok)
	assert.False(t, typ.IsCategory())

	_, ok = ParseAgentType("karaoke")
	assert.False(t, ok)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("COMPLETED")
	assert.True(t, ok)
	assert.True(t, st.Terminal())

	st, ok = ParseStatus("paused")
	assert.True(t, ok)
	assert.False(t, st.Terminal())

	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}

func TestDefaultTitle(t *testing.T) {
	at := time.Date(2026, time.March, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "interview Session - 3/7/2026", DefaultTitle("interview", at))
}

func TestProfileDisplayName(t *testing.T) {
	p := Profile{Email: StringPtr("sam@example.com")}
	assert.Equal(t, "sam", p.DisplayName())

	p.FullName = StringPtr("Sam Rivera")
	assert.Equal(t, "Sam Rivera", p.DisplayName())

	assert.Equal(t, "User", (&Profile{}).DisplayName())
}

func TestSessionRecordConfidence(t *testing.T) {
	rec := SessionRecord{}
	_, ok := rec.Confidence()
	assert.False(t, ok)

	score := 0.8
	rec.Analytics = []SessionAnalytics{{ConfidenceScore: &score}, {}}
	got, ok := rec.Confidence()
	assert.True(t, ok)
	assert.InDelta(t, 0.8, got, 1e-9)
}
