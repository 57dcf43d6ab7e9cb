package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/metrics"
	"github.com/foxseedlab/ongaku/internal/music"
	"github.com/foxseedlab/ongaku/internal/resolver"
)

const joinVoiceTimeout = 15 * time.Second

type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (music.Track, error)
}

// CommandHandler turns chat commands and voice state changes into
// controller calls.
type CommandHandler struct {
	cfg        *config.Config
	discord    discord.Client
	resolver   Resolver
	controller *Controller
	metrics    metrics.Recorder

	mu        sync.RWMutex
	botUserID string
}

func NewCommandHandler(cfg *config.Config, dc discord.Client, r Resolver, controller *Controller, rec metrics.Recorder) *CommandHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CommandHandler{
		cfg:        cfg,
		discord:    dc,
		resolver:   r,
		controller: controller,
		metrics:    rec,
	}
}

func (h *CommandHandler) SetBotUserID(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.botUserID = userID
}

func (h *CommandHandler) getBotUserID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.botUserID
}

func (h *CommandHandler) HandleMessageCommand(event discord.MessageCommandEvent) {
	switch strings.ToLower(event.Command) {
	case commandPlay, commandPlayAlias:
		h.handlePlay(event)
	case commandSkip, commandSkipAlias:
		h.handleSkip(event)
	case commandStop, commandStopAlias:
		h.handleStop(event)
	case commandQueue, commandQueueAlias:
		h.handleQueue(event)
	default:
		slog.Debug("ignoring unknown command", "guild_id", event.GuildID, "command", event.Command)
	}
}

// HandleVoiceStateUpdate tears the session down when the bot itself is
// disconnected from voice by someone else.
func (h *CommandHandler) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	botUserID := h.getBotUserID()
	if botUserID == "" || event.UserID != botUserID {
		return
	}
	if event.BeforeChannelID == "" || event.AfterChannelID != "" {
		return
	}
	if h.controller.HandleConnectionLost(event.GuildID, event.BeforeChannelID) {
		slog.Warn("bot was disconnected from voice", "guild_id", event.GuildID, "channel_id", event.BeforeChannelID)
	}
}

func (h *CommandHandler) handlePlay(event discord.MessageCommandEvent) {
	slog.Info("play command received", "guild_id", event.GuildID, "channel_id", event.ChannelID, "user_id", event.UserID)
	voiceChannelID, err := h.discord.GetUserVoiceChannelID(event.GuildID, event.UserID)
	if err != nil {
		slog.Error("failed to resolve user voice channel", "error", err, "guild_id", event.GuildID, "user_id", event.UserID)
		h.reply(event, messageVoiceLookupFailed)
		return
	}
	if voiceChannelID == "" {
		h.reply(event, messageJoinVoiceFirst)
		return
	}
	query := strings.TrimSpace(event.Args)
	if query == "" {
		h.reply(event, messageEmptyQuery)
		return
	}

	status := &statusMessage{discord: h.discord, event: event}
	status.update(messageSearching)

	resolveCtx, cancel := context.WithTimeout(context.Background(), h.cfg.ResolveTimeout())
	defer cancel()
	track, err := h.resolver.Resolve(resolveCtx, resolver.Request{
		Query:       query,
		RequesterID: event.UserID,
		OnMetadata: func(searchText string) {
			status.update(metadataFoundMessage(searchText))
		},
	})
	h.metrics.ResolveFinished(resolutionResultLabel(err))
	if err != nil {
		slog.Warn("query resolution failed", "guild_id", event.GuildID, "query", query, "error", err)
		status.update(resolutionErrorMessage(err, query))
		return
	}

	joinCtx, cancelJoin := context.WithTimeout(context.Background(), joinVoiceTimeout)
	defer cancelJoin()
	_, err = h.controller.Enqueue(joinCtx, EnqueueRequest{
		GuildID:        event.GuildID,
		TextChannelID:  event.ChannelID,
		VoiceChannelID: voiceChannelID,
		Track:          track,
		OnQueued: func(result EnqueueResult) {
			status.update(addedToQueueMessage(track.Title, result.Created))
		},
	})
	if err != nil {
		slog.Error("failed to enqueue track", "error", err, "guild_id", event.GuildID, "voice_channel_id", voiceChannelID)
		status.update(messageJoinFailed)
	}
}

func (h *CommandHandler) handleSkip(event discord.MessageCommandEvent) {
	track, ok := h.controller.Skip(event.GuildID)
	if !ok {
		h.reply(event, messageNothingPlaying)
		return
	}
	h.reply(event, skippedMessage(track.Title))
}

func (h *CommandHandler) handleStop(event discord.MessageCommandEvent) {
	if !h.controller.Stop(event.GuildID) {
		h.reply(event, messageNothingPlaying)
		return
	}
	h.reply(event, messageStopped)
}

func (h *CommandHandler) handleQueue(event discord.MessageCommandEvent) {
	now, pending, ok := h.controller.Snapshot(event.GuildID)
	if !ok {
		h.reply(event, messageQueueEmpty)
		return
	}
	h.reply(event, queueMessage(now, pending))
}

func (h *CommandHandler) reply(event discord.MessageCommandEvent, content string) {
	if event.Reply == nil {
		return
	}
	if _, err := event.Reply(content); err != nil {
		slog.Warn("failed to reply to command", "error", err, "guild_id", event.GuildID, "channel_id", event.ChannelID)
	}
}

// statusMessage is a reply that is edited in place as a request progresses.
type statusMessage struct {
	discord   discord.Client
	event     discord.MessageCommandEvent
	messageID string
}

func (s *statusMessage) update(content string) {
	if s.messageID != "" {
		if err := s.discord.EditChannelMessage(s.event.ChannelID, s.messageID, content); err != nil {
			slog.Warn("failed to edit status message", "error", err, "channel_id", s.event.ChannelID, "message_id", s.messageID)
		}
		return
	}
	if s.event.Reply == nil {
		return
	}
	id, err := s.event.Reply(content)
	if err != nil {
		slog.Warn("failed to send status message", "error", err, "channel_id", s.event.ChannelID)
		return
	}
	s.messageID = id
}
