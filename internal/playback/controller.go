package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/metrics"
	"github.com/foxseedlab/ongaku/internal/music"
)

const errorNotificationTTL = 10 * time.Second

var errQueueClosed = errors.New("guild queue is closed")

type eventKind int

const (
	eventEnqueue eventKind = iota
	eventAdvance
	eventCompleted
	eventFailed
	eventSkip
	eventInactivity
)

func (k eventKind) String() string {
	switch k {
	case eventEnqueue:
		return "enqueue"
	case eventAdvance:
		return "advance"
	case eventCompleted:
		return "completed"
	case eventFailed:
		return "failed"
	case eventSkip:
		return "skip"
	case eventInactivity:
		return "inactivity"
	default:
		return "unknown"
	}
}

type event struct {
	kind     eventKind
	track    music.Track
	resource audio.Resource
	err      error
}

type EnqueueRequest struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string
	Track          music.Track

	// OnQueued, when set, is called once the track is accepted and before
	// any playback work for it starts.
	OnQueued func(EnqueueResult)
}

type EnqueueResult struct {
	// Created is true when this request created the guild's queue.
	Created bool
}

// Controller drives every GuildQueue through its playback state machine.
// Events for one guild are drained by a single goroutine at a time.
type Controller struct {
	discord         discord.Client
	queues          *QueueManager
	inactivity      *InactivityScheduler
	openers         audio.Openers
	metrics         metrics.Recorder
	inactivityDelay time.Duration
}

func NewController(dc discord.Client, queues *QueueManager, inactivity *InactivityScheduler, openers audio.Openers, rec metrics.Recorder, inactivityDelay time.Duration) *Controller {
	if rec == nil {
		rec = metrics.Nop{}
	}
	c := &Controller{
		discord:         dc,
		queues:          queues,
		inactivity:      inactivity,
		openers:         openers,
		metrics:         rec,
		inactivityDelay: inactivityDelay,
	}
	inactivity.SetHandler(c.handleInactivity)
	return c
}

// Enqueue appends a track to the guild's queue, creating the queue and
// joining the voice channel when needed.
func (c *Controller) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if req.VoiceChannelID == "" {
		return EnqueueResult{}, music.ErrNoVoiceChannel
	}
	// A queue can be torn down between lookup and dispatch; retry once with a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		q, created, err := c.queues.GetOrCreate(ctx, req.GuildID, req.TextChannelID, c.connectionFactory(req.GuildID, req.VoiceChannelID))
		if err != nil {
			return EnqueueResult{}, err
		}
		shouldDrain, err := c.post(q, event{kind: eventEnqueue, track: req.Track})
		if errors.Is(err, errQueueClosed) {
			continue
		}
		if err != nil {
			return EnqueueResult{}, err
		}
		result := EnqueueResult{Created: created}
		slog.Info("track enqueued", "guild_id", req.GuildID, "track_id", req.Track.ID, "title", req.Track.Title, "created_queue", created)
		if req.OnQueued != nil {
			req.OnQueued(result)
		}
		if shouldDrain {
			c.drain(q)
		}
		return result, nil
	}
	return EnqueueResult{}, errQueueClosed
}

// Advance runs one state machine step for the guild if nothing is playing.
func (c *Controller) Advance(guildID string) {
	q, ok := c.queues.Get(guildID)
	if !ok {
		return
	}
	if err := c.dispatch(q, event{kind: eventAdvance}); err != nil {
		slog.Debug("advance dropped", "guild_id", guildID, "error", err)
	}
}

// Skip stops the current track and moves on. It returns the skipped track.
func (c *Controller) Skip(guildID string) (music.Track, bool) {
	q, ok := c.queues.Get(guildID)
	if !ok {
		return music.Track{}, false
	}
	track, playing := q.NowPlaying()
	if !playing {
		return music.Track{}, false
	}
	if err := c.dispatch(q, event{kind: eventSkip}); err != nil {
		return music.Track{}, false
	}
	return track, true
}

// Stop destroys the guild's queue. It reports whether a queue existed.
func (c *Controller) Stop(guildID string) bool {
	return c.queues.Destroy(guildID, destroyReasonStopped) != nil
}

// HandleConnectionLost tears the guild session down after the voice
// connection to channelID went away underneath us. A loss reported for any
// other channel belongs to an earlier session and is ignored.
func (c *Controller) HandleConnectionLost(guildID, channelID string) bool {
	q, ok := c.queues.Get(guildID)
	if !ok {
		return false
	}
	if channelID != "" && q.VoiceChannelID() != channelID {
		slog.Info("ignoring connection loss for another voice channel", "guild_id", guildID, "channel_id", channelID, "queue_channel_id", q.VoiceChannelID())
		return false
	}
	return c.teardown(guildID, destroyReasonConnectionLost, messageConnectionLost)
}

// Snapshot returns the playing track, if any, and the tracks waiting after it.
func (c *Controller) Snapshot(guildID string) (*music.Track, []music.Track, bool) {
	q, ok := c.queues.Get(guildID)
	if !ok {
		return nil, nil, false
	}
	now, playing := q.NowPlaying()
	pending := q.Pending()
	if playing && len(pending) > 0 {
		return &now, pending[1:], true
	}
	return nil, pending, true
}

func (c *Controller) Shutdown() {
	n := c.queues.DestroyAll(destroyReasonShutdown)
	slog.Info("playback controller shut down", "destroyed_queues", n)
}

func (c *Controller) connectionFactory(guildID, voiceChannelID string) ConnectionFactory {
	return func(ctx context.Context) (discord.VoiceConnection, error) {
		conn, err := c.discord.JoinVoiceChannel(ctx, guildID, voiceChannelID)
		if err != nil {
			return nil, fmt.Errorf("failed to join voice channel %s: %w", voiceChannelID, err)
		}
		return conn, nil
	}
}

// dispatch queues ev for q and drains the inbox unless another goroutine is
// already draining it.
func (c *Controller) dispatch(q *GuildQueue, ev event) error {
	shouldDrain, err := c.post(q, ev)
	if err != nil {
		return err
	}
	if shouldDrain {
		c.drain(q)
	}
	return nil
}

// post appends ev to the inbox. It reports whether the caller now owns the
// drain loop and must run it.
func (c *Controller) post(q *GuildQueue, ev event) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false, errQueueClosed
	}
	q.inbox = append(q.inbox, ev)
	if q.busy {
		return false, nil
	}
	q.busy = true
	return true, nil
}

func (c *Controller) drain(q *GuildQueue) {
	for {
		q.mu.Lock()
		if q.destroyed || len(q.inbox) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		ev := q.inbox[0]
		q.inbox = q.inbox[1:]
		q.mu.Unlock()

		c.handle(q, ev)
	}
}

func (c *Controller) handle(q *GuildQueue, ev event) {
	switch ev.kind {
	case eventEnqueue:
		c.inactivity.Disarm(q.guildID)
		if idle := q.appendPending(ev.track); idle {
			c.advance(q)
		}
	case eventAdvance:
		if q.State() == StateIdle {
			c.advance(q)
		}
	case eventCompleted:
		if !q.isCurrent(ev.resource) {
			slog.Debug("ignoring event from stale resource", "guild_id", q.guildID, "event", ev.kind.String())
			return
		}
		q.popHead()
		if res := q.takeCurrent(); res != nil {
			res.Release()
		}
		c.advance(q)
	case eventFailed:
		if !q.isCurrent(ev.resource) {
			slog.Debug("ignoring event from stale resource", "guild_id", q.guildID, "event", ev.kind.String(), "error", ev.err)
			return
		}
		if errors.Is(ev.err, music.ErrConnectionLost) {
			slog.Warn("voice connection lost during playback", "guild_id", q.guildID, "error", ev.err)
			c.teardown(q.guildID, destroyReasonConnectionLost, messageConnectionLost)
			return
		}
		track, _ := q.head()
		c.skipAfterError(q, track, ev.err)
		c.advance(q)
	case eventSkip:
		res := q.takeCurrent()
		if res == nil {
			return
		}
		res.Release()
		q.popHead()
		c.advance(q)
	case eventInactivity:
		if q.State() == StatePlaying || q.hasPending() {
			slog.Info("inactivity timer fired for an active queue; ignoring", "guild_id", q.guildID)
			return
		}
		if c.queues.DestroyIfIdle(q.guildID, destroyReasonInactivity) == nil {
			slog.Info("queue became active before inactivity teardown", "guild_id", q.guildID)
			return
		}
		c.notify(q, messageLeftInactivity)
	}
}

// advance plays the head of the queue, skipping tracks that fail to open,
// and arms the inactivity timer once the queue is empty.
func (c *Controller) advance(q *GuildQueue) {
	for {
		head, ok := q.head()
		if !ok {
			if q.isDestroyed() {
				return
			}
			if res := q.takeCurrent(); res != nil {
				res.Release()
			}
			c.inactivity.Arm(q.guildID, c.inactivityDelay)
			slog.Info("queue drained", "guild_id", q.guildID, "inactivity_delay", c.inactivityDelay)
			return
		}

		res, strategy, err := c.open(q, head)
		if err != nil {
			if q.isDestroyed() {
				return
			}
			c.skipAfterError(q, head, err)
			continue
		}

		prev, installed := q.install(res)
		if !installed {
			res.Release()
			return
		}
		if prev != nil {
			prev.Release()
		}
		q.conn.Play(res, func(err error) { c.onPlaybackDone(q, res, err) })
		c.metrics.TrackStarted(strategy)
		slog.Info("playback started", "guild_id", q.guildID, "track_id", head.ID, "title", head.Title, "strategy", strategy)
		c.notify(q, nowPlayingMessage(head.Title))
		c.inactivity.Disarm(q.guildID)
		return
	}
}

// open tries the primary strategy, then the fallback exactly once.
func (c *Controller) open(q *GuildQueue, track music.Track) (audio.Resource, string, error) {
	primary := c.openers.Primary
	res, err := primary.Open(q.ctx, track.SourceLocator)
	if err == nil {
		return res, primary.Name(), nil
	}
	slog.Warn("stream open failed", "guild_id", q.guildID, "track_id", track.ID, "strategy", primary.Name(), "error", err)

	fallback := c.openers.Fallback
	if fallback == nil || q.ctx.Err() != nil {
		return nil, "", fmt.Errorf("%w: %w", music.ErrStreamOpenFailed, err)
	}
	res, ferr := fallback.Open(q.ctx, track.SourceLocator)
	if ferr != nil {
		slog.Warn("stream open failed", "guild_id", q.guildID, "track_id", track.ID, "strategy", fallback.Name(), "error", ferr)
		return nil, "", fmt.Errorf("%w: %w", music.ErrStreamOpenFailed, errors.Join(err, ferr))
	}
	return res, fallback.Name(), nil
}

// skipAfterError notifies, releases the current resource and drops the head.
func (c *Controller) skipAfterError(q *GuildQueue, track music.Track, err error) {
	reason := "stream_open"
	content := trackErrorMessage(track.Title)
	if errors.Is(err, music.ErrTransport) {
		reason = "transport"
		content = messagePlayerError
	}
	c.metrics.TrackFailed(reason)
	slog.Error("skipping track after playback error", "guild_id", q.guildID, "track_id", track.ID, "title", track.Title, "error", err)

	if msgID := c.notify(q, content); msgID != "" {
		c.discord.DeleteChannelMessageAfter(q.textChannelID, msgID, errorNotificationTTL)
	}
	if res := q.takeCurrent(); res != nil {
		res.Release()
	}
	q.popHead()
}

func (c *Controller) onPlaybackDone(q *GuildQueue, res audio.Resource, err error) {
	ev := event{kind: eventCompleted, resource: res}
	if err != nil {
		ev = event{kind: eventFailed, resource: res, err: err}
	}
	if derr := c.dispatch(q, ev); derr != nil {
		slog.Debug("playback event dropped", "guild_id", q.guildID, "event", ev.kind.String(), "error", derr)
	}
}

// handleInactivity runs on the timer goroutine. The idle check happens in
// the guild's drain loop like every other event.
func (c *Controller) handleInactivity(guildID string) {
	q, ok := c.queues.Get(guildID)
	if !ok {
		return
	}
	if err := c.dispatch(q, event{kind: eventInactivity}); err != nil {
		slog.Debug("inactivity event dropped", "guild_id", guildID, "error", err)
	}
}

func (c *Controller) teardown(guildID, reason, content string) bool {
	q := c.queues.Destroy(guildID, reason)
	if q == nil {
		return false
	}
	c.notify(q, content)
	return true
}

func (c *Controller) notify(q *GuildQueue, content string) string {
	msgID, err := c.discord.SendChannelMessage(q.textChannelID, content)
	if err != nil {
		slog.Warn("failed to send channel message", "guild_id", q.guildID, "channel_id", q.textChannelID, "error", err)
		return ""
	}
	return msgID
}
