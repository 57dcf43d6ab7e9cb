package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/ongaku/internal/discord"
)

type Client struct {
	session *discordgo.Session
	token   string

	mu        sync.Mutex
	botUserID string
	// leaving holds guilds whose next bot leave event comes from our own
	// Disconnect.
	leaving map[string]bool
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsMessageContent |
			discordgo.IntentsGuildVoiceStates,
	)
	s.State.TrackVoice = true
	if err := s.Open(); err != nil {
		return err
	}
	if _, err := c.GetBotUserID(); err != nil {
		return err
	}
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// JoinVoiceChannel joins deafened since the bot never listens. When ctx ends
// before the gateway handshake completes, the late connection is dropped.
func (c *Client) JoinVoiceChannel(ctx context.Context, guildID, channelID string) (discordpkg.VoiceConnection, error) {
	if c.session == nil {
		return nil, fmt.Errorf("discord session is not initialized")
	}
	type joinResult struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan joinResult, 1)
	go func() {
		vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
		ch <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return newVoiceConnection(r.vc, channelID, c.expectLeave), nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil && r.vc != nil {
				if err := r.vc.Disconnect(); err != nil {
					slog.Warn("failed to drop late voice connection", "guild_id", guildID, "error", err)
				}
			}
		}()
		return nil, ctx.Err()
	}
}

func (c *Client) SendChannelMessage(channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *Client) EditChannelMessage(channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func (c *Client) DeleteChannelMessageAfter(channelID, messageID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := c.session.ChannelMessageDelete(channelID, messageID); err != nil && !isRESTNotFound(err) {
			slog.Warn("failed to delete channel message", "channel_id", channelID, "message_id", messageID, "error", err)
		}
	})
}

func (c *Client) RegisterVoiceStateUpdateHandler(handler func(discordpkg.VoiceStateEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if event, ok := c.voiceStateEvent(s, vs); ok {
			handler(event)
		}
	})
}

func (c *Client) voiceStateEvent(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) (discordpkg.VoiceStateEvent, bool) {
	if vs == nil || vs.VoiceState == nil {
		return discordpkg.VoiceStateEvent{}, false
	}
	beforeChannelID := ""
	if vs.BeforeUpdate != nil {
		beforeChannelID = vs.BeforeUpdate.ChannelID
	}
	afterChannelID := vs.ChannelID
	if beforeChannelID == afterChannelID && beforeChannelID != "" {
		return discordpkg.VoiceStateEvent{}, false
	}
	if vs.GuildID == "" || vs.UserID == "" {
		return discordpkg.VoiceStateEvent{}, false
	}
	if isSelf(s, vs.UserID) {
		if afterChannelID != "" {
			c.expectLeave(vs.GuildID, false)
		} else if c.ownLeave(vs.GuildID) {
			slog.Debug("ignoring voice leave caused by our own disconnect", "guild_id", vs.GuildID, "channel_id", beforeChannelID)
			return discordpkg.VoiceStateEvent{}, false
		}
	}
	return discordpkg.VoiceStateEvent{
		GuildID:         vs.GuildID,
		UserID:          vs.UserID,
		BeforeChannelID: beforeChannelID,
		AfterChannelID:  afterChannelID,
	}, true
}

func (c *Client) RegisterMessageCommandHandler(prefix string, handler func(discordpkg.MessageCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
			return
		}
		if m.GuildID == "" {
			return
		}
		command, args, ok := parseCommand(prefix, m.Content)
		if !ok {
			return
		}
		slog.Info("message command received", "guild_id", m.GuildID, "channel_id", m.ChannelID, "command", command, "user_id", m.Author.ID)
		ref := m.Reference()
		handler(discordpkg.MessageCommandEvent{
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			UserID:    m.Author.ID,
			Command:   command,
			Args:      args,
			Reply: func(content string) (string, error) {
				msg, err := s.ChannelMessageSendReply(m.ChannelID, content, ref)
				if err != nil {
					return "", err
				}
				return msg.ID, nil
			},
		})
	})
}

// parseCommand splits "<prefix><command> <args>" into its parts.
func parseCommand(prefix, content string) (string, string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}
	command, args, _ := strings.Cut(rest, " ")
	return strings.ToLower(command), strings.TrimSpace(args), true
}

func (c *Client) GetUserVoiceChannelID(guildID, userID string) (string, error) {
	if c.session == nil {
		return "", nil
	}
	if c.session.State != nil {
		vs, err := c.session.State.VoiceState(guildID, userID)
		if err == nil && vs != nil {
			return vs.ChannelID, nil
		}
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil {
			for _, state := range guild.VoiceStates {
				if state != nil && state.UserID == userID {
					return state.ChannelID, nil
				}
			}
		}
	}

	// Cache may be cold right after bot startup; ask Discord API directly as fallback.
	vs, err := c.session.UserVoiceState(guildID, userID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if vs == nil {
		return "", nil
	}
	return vs.ChannelID, nil
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) GetBotUserID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) UpdateListeningStatus(name string) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialized")
	}
	return c.session.UpdateListeningStatus(name)
}

func isSelf(s *discordgo.Session, userID string) bool {
	return s != nil && s.State != nil && s.State.User != nil && s.State.User.ID == userID
}

func (c *Client) expectLeave(guildID string, expected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !expected {
		delete(c.leaving, guildID)
		return
	}
	if c.leaving == nil {
		c.leaving = make(map[string]bool)
	}
	c.leaving[guildID] = true
}

// ownLeave reports whether a leave event for guildID was caused by us, and
// consumes the mark.
func (c *Client) ownLeave(guildID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.leaving[guildID] {
		return false
	}
	delete(c.leaving, guildID)
	return true
}

func (c *Client) Run() error {
	select {}
}
