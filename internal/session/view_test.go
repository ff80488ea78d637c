package session

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
)

func activeSession() domain.Session {
	return domain.Session{ID: "s1", Status: domain.StatusActive}
}

func TestViewPausedElapsedIsFrozen(t *testing.T) {
	clock := newFakeClock()
	v := newView(activeSession(), clock.Now)

	clock.Advance(12 * time.Second)
	require.NoError(t, v.Pause())
	assert.Equal(t, 12, v.ElapsedSeconds())

	clock.Advance(time.Minute)
	assert.Equal(t, 12, v.ElapsedSeconds())

	require.NoError(t, v.Resume())
	clock.Advance(3 * time.Second)
	assert.Equal(t, 15, v.ElapsedSeconds())
}

func TestViewRepeatedTogglesAreNoops(t *testing.T) {
	clock := newFakeClock()
	v := newView(activeSession(), clock.Now)

	clock.Advance(5 * time.Second)
	require.NoError(t, v.Resume())
	require.NoError(t, v.Pause())
	require.NoError(t, v.Pause())
	assert.Equal(t, 5, v.ElapsedSeconds())
	assert.Equal(t, domain.StatusPaused, v.Status())
}

func TestViewStartsFromStoredDuration(t *testing.T) {
	clock := newFakeClock()
	v := newView(domain.Session{ID: "s1", Status: domain.StatusPaused, DurationSeconds: 40}, clock.Now)
	clock.Advance(time.Minute)
	assert.Equal(t, 40, v.ElapsedSeconds())
}

func TestViewResumesFromLastReportedElapsed(t *testing.T) {
	clock := newFakeClock()
	v := newView(domain.Session{ID: "s1", Status: domain.StatusActive, LastElapsedSeconds: 300}, clock.Now)
	clock.Advance(10 * time.Second)
	assert.Equal(t, 310, v.ElapsedSeconds())

	done := newView(domain.Session{ID: "s2", Status: domain.StatusCompleted, DurationSeconds: 90, LastElapsedSeconds: 300}, clock.Now)
	assert.Equal(t, 90, done.ElapsedSeconds())
}

func TestViewNeverLeavesCompleted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		clock := newFakeClock()
		v := newView(activeSession(), clock.Now)
		completed := false
		var frozen int

		for step := 0; step < 20; step++ {
			clock.Advance(time.Duration(rng.Intn(5)) * time.Second)
			var err error
			switch rng.Intn(3) {
			case 0:
				err = v.Pause()
			case 1:
				err = v.Resume()
			case 2:
				var secs int
				secs, _, err = v.finish()
				if err == nil {
					completed = true
					frozen = secs
				}
			}
			if completed {
				assert.Equal(t, domain.StatusCompleted, v.Status())
				assert.Equal(t, frozen, v.ElapsedSeconds())
			}
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
				assert.True(t, completed)
			}
		}
	}
}

func TestViewRunTicksUntilCancelled(t *testing.T) {
	v := NewView(activeSession())
	ctx, cancel := context.WithCancel(context.Background())

	var ticks atomic.Int32
	finished := make(chan struct{})
	go func() {
		v.Run(ctx, 5*time.Millisecond, func(int, domain.Status) {
			ticks.Add(1)
		})
		close(finished)
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestViewRunStopsOnCompletion(t *testing.T) {
	v := NewView(activeSession())
	finished := make(chan struct{})
	go func() {
		v.Run(context.Background(), 5*time.Millisecond, func(int, domain.Status) {})
		close(finished)
	}()

	_, _, err := v.finish()
	require.NoError(t, err)
	v.closeDone()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after completion")
	}
}
