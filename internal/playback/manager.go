package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	destroyReasonStopped        = "stopped"
	destroyReasonInactivity     = "inactivity"
	destroyReasonConnectionLost = "connection_lost"
	destroyReasonShutdown       = "shutdown"
)

// ConnectionFactory establishes the voice connection for a new GuildQueue.
type ConnectionFactory func(ctx context.Context) (discord.VoiceConnection, error)

// QueueManager owns the guild ID to GuildQueue mapping.
type QueueManager struct {
	inactivity *InactivityScheduler
	metrics    metrics.Recorder

	mu     sync.Mutex
	queues map[string]*GuildQueue
	group  singleflight.Group
}

func NewQueueManager(inactivity *InactivityScheduler, rec metrics.Recorder) *QueueManager {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &QueueManager{
		inactivity: inactivity,
		metrics:    rec,
		queues:     make(map[string]*GuildQueue),
	}
}

// GetOrCreate returns the guild's queue, joining voice through connect when
// none exists. Concurrent callers for the same guild share one creation;
// created is true only for the caller whose factory ran.
func (m *QueueManager) GetOrCreate(ctx context.Context, guildID, textChannelID string, connect ConnectionFactory) (*GuildQueue, bool, error) {
	if q, ok := m.Get(guildID); ok {
		return q, false, nil
	}
	created := false
	v, err, _ := m.group.Do(guildID, func() (any, error) {
		if q, ok := m.Get(guildID); ok {
			return q, nil
		}
		conn, err := connect(ctx)
		if err != nil {
			return nil, err
		}
		q := newGuildQueue(guildID, textChannelID, conn)
		m.mu.Lock()
		m.queues[guildID] = q
		m.mu.Unlock()
		created = true
		m.metrics.QueueCreated()
		slog.Info("guild queue created", "guild_id", guildID, "text_channel_id", textChannelID, "voice_channel_id", conn.ChannelID())
		return q, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create guild queue: %w", err)
	}
	return v.(*GuildQueue), created, nil
}

func (m *QueueManager) Get(guildID string) (*GuildQueue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[guildID]
	return q, ok
}

// Destroy removes the guild's queue, releasing its resource and connection.
// It returns the removed queue, or nil when there was none.
func (m *QueueManager) Destroy(guildID, reason string) *GuildQueue {
	m.inactivity.Disarm(guildID)
	return m.destroy(guildID, reason, false)
}

// DestroyIfIdle is Destroy for a queue that has nothing playing and nothing
// queued. The idle check and the removal happen under one lock, so an
// Enqueue either lands before and keeps the queue or sees it closed.
func (m *QueueManager) DestroyIfIdle(guildID, reason string) *GuildQueue {
	return m.destroy(guildID, reason, true)
}

func (m *QueueManager) destroy(guildID, reason string, idleOnly bool) *GuildQueue {
	m.mu.Lock()
	q, ok := m.queues[guildID]
	if !ok || !q.retire(idleOnly) {
		m.mu.Unlock()
		return nil
	}
	delete(m.queues, guildID)
	m.mu.Unlock()

	if idleOnly {
		m.inactivity.Disarm(guildID)
	}
	q.release()
	m.metrics.QueueDestroyed(reason)
	slog.Info("guild queue destroyed", "guild_id", guildID, "reason", reason)
	return q
}

func (m *QueueManager) DestroyAll(reason string) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.queues))
	for id := range m.queues {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.Destroy(id, reason) != nil {
			n++
		}
	}
	return n
}

func (m *QueueManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues)
}
