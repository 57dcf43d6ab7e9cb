package playback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foxseedlab/ongaku/internal/music"
)

const (
	commandPlay       = "play"
	commandPlayAlias  = "p"
	commandSkip       = "skip"
	commandSkipAlias  = "s"
	commandStop       = "stop"
	commandStopAlias  = "leave"
	commandQueue      = "queue"
	commandQueueAlias = "q"

	queueListLimit = 10

	messageJoinVoiceFirst    = ":warning: **You need to be in a voice channel to play music!**"
	messageVoiceLookupFailed = ":warning: **Could not check your voice channel. Please try again.**"
	messageEmptyQuery        = ":warning: **Please provide a song name or a YouTube/Spotify link!**"
	messageSearching         = ":mag: Searching for song metadata..."
	messageMetadataNotFound  = ":x: **Could not extract song details. Please try again.**"
	messageInvalidLink       = ":x: **The provided Spotify link is invalid.**"
	messageResolveFailed     = ":x: **Something went wrong while looking up that song.**"
	messageJoinFailed        = ":x: **Could not join your voice channel.**"
	messagePlayerError       = ":x: An error occurred with the player, skipping to the next song."
	messageLeftInactivity    = ":stop_sign: Left voice channel due to inactivity."
	messageConnectionLost    = ":electric_plug: **Lost the voice connection. Leaving the channel.**"
	messageStopped           = ":stop_button: **Stopped playback and left the voice channel.**"
	messageNothingPlaying    = ":warning: **Nothing is playing right now.**"
	messageQueueEmpty        = ":information_source: **The queue is empty.**"

	messageMetadataFoundFormat = ":white_check_mark: Metadata found: **%s**\n:satellite: Searching for a high-quality stream..."
	messageNoStreamFormat      = ":x: **Could not find a streamable source for** *%s*"
	messageAddedFormat         = ":white_check_mark: Added to queue: **%s**"
	messageStartingHint        = "-# Now starting playback..."
	messageNowPlayingFormat    = ":notes: Now playing: **%s**"
	messageTrackErrorFormat    = ":x: Error playing **%s**. Skipping..."
	messageSkippedFormat       = ":track_next: Skipped **%s**."
)

func metadataFoundMessage(searchText string) string {
	return fmt.Sprintf(messageMetadataFoundFormat, searchText)
}

func addedToQueueMessage(title string, startsPlayback bool) string {
	msg := fmt.Sprintf(messageAddedFormat, title)
	if startsPlayback {
		return msg + "\n" + messageStartingHint
	}
	return msg
}

func nowPlayingMessage(title string) string {
	return fmt.Sprintf(messageNowPlayingFormat, title)
}

func trackErrorMessage(title string) string {
	return fmt.Sprintf(messageTrackErrorFormat, title)
}

func skippedMessage(title string) string {
	return fmt.Sprintf(messageSkippedFormat, title)
}

func resolutionErrorMessage(err error, query string) string {
	switch {
	case errors.Is(err, music.ErrInvalidLink):
		return messageInvalidLink
	case errors.Is(err, music.ErrMetadataNotFound):
		return messageMetadataNotFound
	case errors.Is(err, music.ErrNoStreamFound):
		return fmt.Sprintf(messageNoStreamFormat, query)
	default:
		return messageResolveFailed
	}
}

func resolutionResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, music.ErrInvalidLink):
		return "invalid_link"
	case errors.Is(err, music.ErrMetadataNotFound):
		return "metadata_not_found"
	case errors.Is(err, music.ErrNoStreamFound):
		return "no_stream_found"
	default:
		return "error"
	}
}

func queueMessage(now *music.Track, pending []music.Track) string {
	if now == nil && len(pending) == 0 {
		return messageQueueEmpty
	}
	var b strings.Builder
	if now != nil {
		b.WriteString(nowPlayingMessage(now.Title))
	}
	for i, t := range pending {
		if i == queueListLimit {
			fmt.Fprintf(&b, "\n-# ...and %d more", len(pending)-queueListLimit)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, t.Title)
	}
	return strings.TrimPrefix(b.String(), "\n")
}
