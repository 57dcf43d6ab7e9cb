package playback

import (
	"sync"
	"testing"
	"time"
)

func TestArm_ReplacesPreviousTimer(t *testing.T) {
	clock := newFakeClock()
	s := newFakeScheduler(clock)
	var fired []string
	s.SetHandler(func(guildID string) { fired = append(fired, guildID) })

	s.Arm("guild-1", time.Minute)
	first := clock.last(t)
	s.Arm("guild-1", 2*time.Minute)
	second := clock.last(t)

	if !first.isStopped() {
		t.Fatal("expected the replaced timer to be stopped")
	}
	if s.Live() != 1 {
		t.Fatalf("expected one live timer, got %d", s.Live())
	}
	at, ok := s.ScheduledAt("guild-1")
	if !ok || !at.Equal(clock.Now().Add(2*time.Minute)) {
		t.Fatalf("unexpected schedule: %v (ok=%v)", at, ok)
	}

	first.fire()
	if len(fired) != 0 {
		t.Fatal("expected the replaced timer not to run the handler")
	}
	second.fire()
	if len(fired) != 1 || fired[0] != "guild-1" {
		t.Fatalf("expected one fire for guild-1, got %v", fired)
	}
	if s.Armed("guild-1") {
		t.Fatal("expected fired timer to be removed")
	}
}

func TestDisarm_PreventsFire(t *testing.T) {
	clock := newFakeClock()
	s := newFakeScheduler(clock)
	called := false
	s.SetHandler(func(string) { called = true })

	s.Arm("guild-1", time.Minute)
	timer := clock.last(t)
	s.Disarm("guild-1")
	s.Disarm("guild-1")
	timer.fire()

	if called {
		t.Fatal("expected disarmed timer not to run the handler")
	}
	if !timer.isStopped() {
		t.Fatal("expected runtime timer to be stopped")
	}
	if s.Live() != 0 {
		t.Fatalf("expected no live timers, got %d", s.Live())
	}
}

func TestArm_GuildsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	s := newFakeScheduler(clock)

	s.Arm("guild-1", time.Minute)
	s.Arm("guild-2", time.Minute)
	s.Disarm("guild-1")

	if s.Armed("guild-1") || !s.Armed("guild-2") {
		t.Fatal("expected only guild-2 to stay armed")
	}
	if clock.count() != 2 {
		t.Fatalf("expected two scheduled timers, got %d", clock.count())
	}
}

func TestArm_RealTimerFires(t *testing.T) {
	s := NewInactivityScheduler()
	var mu sync.Mutex
	var fired []string
	s.SetHandler(func(guildID string) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, guildID)
	})

	s.Arm("guild-1", 20*time.Millisecond)

	waitUntil(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, "expected inactivity handler to run")
	if s.Armed("guild-1") {
		t.Fatal("expected fired timer to be removed")
	}
}
