package playback

import (
	"log/slog"
	"sync"
	"time"
)

type timerHandle interface {
	Stop() bool
}

type inactivityTimer struct {
	guildID     string
	scheduledAt time.Time
	handle      timerHandle
}

// InactivityScheduler keeps at most one live teardown timer per guild.
type InactivityScheduler struct {
	mu     sync.Mutex
	timers map[string]*inactivityTimer
	onFire func(guildID string)

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timerHandle
}

func NewInactivityScheduler() *InactivityScheduler {
	return &InactivityScheduler{
		timers: make(map[string]*inactivityTimer),
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) timerHandle {
			return time.AfterFunc(d, f)
		},
	}
}

// SetHandler sets the teardown callback invoked when a timer fires.
func (s *InactivityScheduler) SetHandler(fn func(guildID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFire = fn
}

// Arm replaces any timer for guildID with a new one firing after delay.
func (s *InactivityScheduler) Arm(guildID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[guildID]; ok {
		prev.handle.Stop()
	}
	entry := &inactivityTimer{
		guildID:     guildID,
		scheduledAt: s.now().Add(delay),
	}
	entry.handle = s.afterFunc(delay, func() { s.fire(entry) })
	s.timers[guildID] = entry
	slog.Debug("inactivity timer armed", "guild_id", guildID, "delay", delay)
}

func (s *InactivityScheduler) Disarm(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.timers[guildID]
	if !ok {
		return
	}
	entry.handle.Stop()
	delete(s.timers, guildID)
	slog.Debug("inactivity timer disarmed", "guild_id", guildID)
}

// ScheduledAt reports when the live timer for guildID fires.
func (s *InactivityScheduler) ScheduledAt(guildID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.timers[guildID]
	if !ok {
		return time.Time{}, false
	}
	return entry.scheduledAt, true
}

func (s *InactivityScheduler) Armed(guildID string) bool {
	_, ok := s.ScheduledAt(guildID)
	return ok
}

func (s *InactivityScheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *InactivityScheduler) fire(entry *inactivityTimer) {
	s.mu.Lock()
	if s.timers[entry.guildID] != entry {
		// Replaced or disarmed after the runtime timer had already fired.
		s.mu.Unlock()
		return
	}
	delete(s.timers, entry.guildID)
	handler := s.onFire
	s.mu.Unlock()

	slog.Info("inactivity timer fired", "guild_id", entry.guildID)
	if handler != nil {
		handler(entry.guildID)
	}
}
