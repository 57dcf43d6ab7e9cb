package discord

import (
	"context"
	"time"

	"github.com/foxseedlab/ongaku/internal/audio"
)

type MessageCommandEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Command   string
	Args      string
	Reply     func(content string) (messageID string, err error)
}

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	BeforeChannelID string
	AfterChannelID  string
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	JoinVoiceChannel(ctx context.Context, guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) (messageID string, err error)
	EditChannelMessage(channelID, messageID, content string) error
	DeleteChannelMessageAfter(channelID, messageID string, delay time.Duration)
	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	RegisterMessageCommandHandler(prefix string, handler func(MessageCommandEvent))
	GetUserVoiceChannelID(guildID, userID string) (string, error)
	GetBotUserID() (string, error)
	UpdateListeningStatus(name string) error
	Run() error
}

// VoiceConnection plays one Resource at a time. Play returns immediately;
// onDone is called exactly once per Play with nil on natural completion.
type VoiceConnection interface {
	ChannelID() string
	Play(res audio.Resource, onDone func(err error))
	Disconnect() error
}
