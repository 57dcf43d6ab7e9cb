package youtube

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/kkdai/youtube/v2"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// Client reads video metadata and stream URLs with the native YouTube client.
type Client struct {
	yt *youtube.Client
}

func NewClient() *Client {
	return &Client{yt: &youtube.Client{}}
}

// Lookup reads title and channel for a YouTube link. The link itself stays
// the source locator.
func (c *Client) Lookup(ctx context.Context, link string) (resolver.Metadata, error) {
	video, err := c.video(ctx, link)
	if err != nil {
		return resolver.Metadata{}, err
	}
	return resolver.Metadata{
		Title:   video.Title,
		Author:  video.Author,
		Locator: watchURLPrefix + video.ID,
	}, nil
}

// StreamURL returns a direct URL for the best audio-only format.
func (c *Client) StreamURL(ctx context.Context, locator string) (string, error) {
	video, err := c.video(ctx, locator)
	if err != nil {
		return "", err
	}
	format, err := bestAudioFormat(video.Formats.WithAudioChannels())
	if err != nil {
		return "", fmt.Errorf("video %s: %w", video.ID, err)
	}
	url, err := c.yt.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to get stream url for %s: %w", video.ID, err)
	}
	return url, nil
}

func (c *Client) video(ctx context.Context, link string) (*youtube.Video, error) {
	id, ok := resolver.YouTubeVideoID(link)
	if !ok {
		var err error
		id, err = youtube.ExtractVideoID(link)
		if err != nil {
			return nil, fmt.Errorf("not a youtube link: %w", err)
		}
	}
	video, err := c.yt.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video %s: %w", id, err)
	}
	return video, nil
}

// bestAudioFormat prefers audio-only formats and then the highest bitrate.
func bestAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	if len(formats) == 0 {
		return nil, errors.New("no audio formats available")
	}
	candidates := make(youtube.FormatList, len(formats))
	copy(candidates, formats)
	sort.SliceStable(candidates, func(i, j int) bool {
		ai := strings.HasPrefix(candidates[i].MimeType, "audio/")
		aj := strings.HasPrefix(candidates[j].MimeType, "audio/")
		if ai != aj {
			return ai
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return &candidates[0], nil
}
