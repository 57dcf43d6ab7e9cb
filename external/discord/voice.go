package discord

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/music"
	"github.com/jonas747/dca"
)

var _ dca.OpusReader = audio.Resource(nil)

type voiceConnection struct {
	vc        *discordgo.VoiceConnection
	channelID string
	// markLeave flags the guild's upcoming leave event as self-initiated.
	markLeave func(guildID string, expected bool)
}

func newVoiceConnection(vc *discordgo.VoiceConnection, channelID string, markLeave func(string, bool)) *voiceConnection {
	return &voiceConnection{vc: vc, channelID: channelID, markLeave: markLeave}
}

func (v *voiceConnection) ChannelID() string {
	return v.channelID
}

// Play streams res until it runs out of frames or the connection fails.
func (v *voiceConnection) Play(res audio.Resource, onDone func(err error)) {
	if err := v.vc.Speaking(true); err != nil {
		slog.Debug("failed to set speaking state", "guild_id", v.vc.GuildID, "error", err)
	}
	done := make(chan error, 1)
	dca.NewStream(res, v.vc, done)
	go func() {
		err := <-done
		if serr := v.vc.Speaking(false); serr != nil {
			slog.Debug("failed to clear speaking state", "guild_id", v.vc.GuildID, "error", serr)
		}
		onDone(v.classify(err))
	}()
}

func (v *voiceConnection) classify(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	if errors.Is(err, dca.ErrVoiceConnClosed) || !v.ready() {
		return fmt.Errorf("%w: %w", music.ErrConnectionLost, err)
	}
	return fmt.Errorf("%w: %w", music.ErrTransport, err)
}

func (v *voiceConnection) ready() bool {
	v.vc.RLock()
	defer v.vc.RUnlock()
	return v.vc.Ready
}

func (v *voiceConnection) Disconnect() error {
	if v.markLeave != nil {
		v.markLeave(v.vc.GuildID, true)
	}
	if err := v.vc.Disconnect(); err != nil {
		if v.markLeave != nil {
			v.markLeave(v.vc.GuildID, false)
		}
		return err
	}
	return nil
}
