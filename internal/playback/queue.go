package playback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/music"
)

type State string

const (
	StateIdle      State = "idle"
	StatePlaying   State = "playing"
	StateDestroyed State = "destroyed"
)

// GuildQueue is the per-guild playback state. Its fields are only mutated
// from the controller's drain loop, except for retire and release, which
// QueueManager calls on destroy.
type GuildQueue struct {
	guildID       string
	textChannelID string
	conn          discord.VoiceConnection

	// ctx is cancelled on destroy and bounds every resource opened for this guild.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	pending   []music.Track
	current   audio.Resource
	inbox     []event
	busy      bool
	destroyed bool
}

func newGuildQueue(guildID, textChannelID string, conn discord.VoiceConnection) *GuildQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &GuildQueue{
		guildID:       guildID,
		textChannelID: textChannelID,
		conn:          conn,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (q *GuildQueue) GuildID() string {
	return q.guildID
}

func (q *GuildQueue) TextChannelID() string {
	return q.textChannelID
}

func (q *GuildQueue) VoiceChannelID() string {
	if q.conn == nil {
		return ""
	}
	return q.conn.ChannelID()
}

// Pending returns a copy of the queued tracks. While playing, the first
// entry is the current track.
func (q *GuildQueue) Pending() []music.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]music.Track, len(q.pending))
	copy(out, q.pending)
	return out
}

func (q *GuildQueue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case q.destroyed:
		return StateDestroyed
	case q.current != nil:
		return StatePlaying
	default:
		return StateIdle
	}
}

func (q *GuildQueue) NowPlaying() (music.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil || len(q.pending) == 0 {
		return music.Track{}, false
	}
	return q.pending[0], true
}

func (q *GuildQueue) isDestroyed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.destroyed
}

func (q *GuildQueue) hasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) > 0
}

// appendPending reports whether nothing was playing when the track was added.
func (q *GuildQueue) appendPending(t music.Track) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false
	}
	q.pending = append(q.pending, t)
	return q.current == nil
}

func (q *GuildQueue) head() (music.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed || len(q.pending) == 0 {
		return music.Track{}, false
	}
	return q.pending[0], true
}

func (q *GuildQueue) popHead() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return
	}
	q.pending[0] = music.Track{}
	q.pending = q.pending[1:]
}

func (q *GuildQueue) isCurrent(res audio.Resource) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return res != nil && q.current == res
}

// install makes res the current resource and returns the one it replaced.
// It fails once the queue is destroyed; the caller then owns res.
func (q *GuildQueue) install(res audio.Resource) (audio.Resource, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return nil, false
	}
	prev := q.current
	q.current = res
	return prev, true
}

func (q *GuildQueue) takeCurrent() audio.Resource {
	q.mu.Lock()
	defer q.mu.Unlock()
	res := q.current
	q.current = nil
	return res
}

// retire marks the queue destroyed so dispatch rejects new events. With
// idleOnly it refuses while a track is playing, queued, or still waiting in
// the inbox. The caller must follow a successful retire with release.
func (q *GuildQueue) retire(idleOnly bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false
	}
	if idleOnly && (q.current != nil || len(q.pending) > 0 || q.inboxHasEnqueue()) {
		return false
	}
	q.destroyed = true
	return true
}

func (q *GuildQueue) inboxHasEnqueue() bool {
	for _, ev := range q.inbox {
		if ev.kind == eventEnqueue {
			return true
		}
	}
	return false
}

// release frees the current resource and the voice connection of a retired
// queue.
func (q *GuildQueue) release() {
	q.mu.Lock()
	res := q.current
	q.current = nil
	q.pending = nil
	q.inbox = nil
	q.mu.Unlock()

	if res != nil {
		res.Release()
	}
	q.cancel()
	if q.conn != nil {
		if err := q.conn.Disconnect(); err != nil {
			slog.Warn("failed to disconnect voice connection", "guild_id", q.guildID, "error", err)
		}
	}
}
