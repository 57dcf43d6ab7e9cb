package resolver

import (
	"regexp"
	"strings"
)

type LinkKind string

const (
	LinkYouTube    LinkKind = "youtube"
	LinkSoundCloud LinkKind = "soundcloud"
)

type queryKind int

const (
	queryText queryKind = iota
	queryMetadataLink
	queryPlayableLink
)

var (
	spotifyTrackURLPattern = regexp.MustCompile(`^https?://open\.spotify\.com/(?:intl-[a-zA-Z-]+/)?track/([A-Za-z0-9]{22})(?:[/?#].*)?$`)
	spotifyTrackURIPattern = regexp.MustCompile(`^spotify:track:([A-Za-z0-9]{22})$`)
	youTubeLinkPattern     = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com/(?:watch\?(?:[^#\s]*&)?v=|shorts/|embed/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[?&#/][^\s]*)?$`)
	soundCloudLinkPattern  = regexp.MustCompile(`^https?://(?:www\.|m\.)?soundcloud\.com/[^/\s?#]+/[^/\s?#]+(?:[/?#][^\s]*)?$`)
)

func classify(query string) (queryKind, LinkKind) {
	lower := strings.ToLower(query)
	if strings.Contains(lower, "spotify.com") || strings.HasPrefix(lower, "spotify:") {
		return queryMetadataLink, ""
	}
	if youTubeLinkPattern.MatchString(query) {
		return queryPlayableLink, LinkYouTube
	}
	if soundCloudLinkPattern.MatchString(query) {
		return queryPlayableLink, LinkSoundCloud
	}
	return queryText, ""
}

// ParseSpotifyTrackID returns the track ID of an open.spotify.com track URL or
// a spotify:track: URI.
func ParseSpotifyTrackID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if m := spotifyTrackURLPattern.FindStringSubmatch(link); m != nil {
		return m[1], true
	}
	if m := spotifyTrackURIPattern.FindStringSubmatch(link); m != nil {
		return m[1], true
	}
	return "", false
}

// YouTubeVideoID returns the 11 character video ID of a YouTube link.
func YouTubeVideoID(link string) (string, bool) {
	m := youTubeLinkPattern.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func IsSoundCloudLink(link string) bool {
	return soundCloudLinkPattern.MatchString(strings.TrimSpace(link))
}
