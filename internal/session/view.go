package session

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
)

// TickInterval is how often Run reports elapsed time.
const TickInterval = time.Second

// HeartbeatInterval is how often an open view's elapsed time is written
// back to storage by KeepAlive.
const HeartbeatInterval = 30 * time.Second

// View is the caller-owned timer for one open session. Elapsed time is the
// sum of active intervals; while paused it is frozen. Pause and resume
// never touch storage.
type View struct {
	mu          sync.Mutex
	sessionID   string
	status      domain.Status
	accumulated time.Duration
	activeSince time.Time
	now         func() time.Time
	done        chan struct{}
	closeOnce   sync.Once
}

// NewView opens a view on sess. A stored duration, or the elapsed time last
// reported for an unfinished session, is taken as already elapsed, and an
// active session starts timing immediately.
func NewView(sess domain.Session) *View {
	return newView(sess, time.Now)
}

func newView(sess domain.Session, now func() time.Time) *View {
	secs := sess.DurationSeconds
	if !sess.Status.Terminal() && sess.LastElapsedSeconds > secs {
		secs = sess.LastElapsedSeconds
	}
	v := &View{
		sessionID:   sess.ID,
		status:      sess.Status,
		accumulated: time.Duration(secs) * time.Second,
		now:         now,
		done:        make(chan struct{}),
	}
	switch sess.Status {
	case domain.StatusActive:
		v.activeSince = now()
	case domain.StatusCompleted:
		v.closeDone()
	}
	return v
}

func (v *View) closeDone() {
	v.closeOnce.Do(func() { close(v.done) })
}

// SessionID returns the viewed session's id.
func (v *View) SessionID() string {
	return v.sessionID
}

// Status returns the local state of the view.
func (v *View) Status() domain.Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Done is closed once the completion has been persisted.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Pause stops the clock. Pausing a paused view is a no-op.
func (v *View) Pause() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.status {
	case domain.StatusCompleted:
		return apperr.New(apperr.KindInvalidTransition, "cannot pause a completed session")
	case domain.StatusPaused:
		return nil
	}
	v.accumulated += v.now().Sub(v.activeSince)
	v.status = domain.StatusPaused
	return nil
}

// Resume restarts the clock. Resuming an active view is a no-op.
func (v *View) Resume() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.status {
	case domain.StatusCompleted:
		return apperr.New(apperr.KindInvalidTransition, "cannot resume a completed session")
	case domain.StatusActive:
		return nil
	}
	v.activeSince = v.now()
	v.status = domain.StatusActive
	return nil
}

// Elapsed returns the accumulated active time.
func (v *View) Elapsed() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.elapsedLocked()
}

// ElapsedSeconds returns Elapsed truncated to whole seconds.
func (v *View) ElapsedSeconds() int {
	return int(v.Elapsed() / time.Second)
}

func (v *View) elapsedLocked() time.Duration {
	if v.status == domain.StatusActive {
		return v.accumulated + v.now().Sub(v.activeSince)
	}
	return v.accumulated
}

// finish freezes the clock and marks the view completed. undo restores the
// previous state for a failed persist; Done is closed by the caller once the
// completion is stored.
func (v *View) finish() (secs int, undo func(), err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == domain.StatusCompleted {
		return 0, nil, apperr.New(apperr.KindInvalidTransition, "session already completed")
	}

	prevStatus, prevAccum := v.status, v.accumulated
	v.accumulated = v.elapsedLocked()
	v.status = domain.StatusCompleted
	secs = int(v.accumulated / time.Second)

	undo = func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.accumulated = prevAccum
		v.status = prevStatus
	}
	return secs, undo, nil
}

// Run calls onTick with the elapsed seconds once per interval until ctx is
// cancelled or the view is completed. It performs no storage I/O. A
// non-positive interval uses TickInterval.
func (v *View) Run(ctx context.Context, interval time.Duration, onTick func(elapsedSeconds int, status domain.Status)) {
	if interval <= 0 {
		interval = TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.done:
			return
		case <-ticker.C:
			v.mu.Lock()
			status := v.status
			secs := int(v.elapsedLocked() / time.Second)
			v.mu.Unlock()
			if status == domain.StatusCompleted {
				return
			}
			onTick(secs, status)
		}
	}
}
