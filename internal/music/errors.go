package music

import "errors"

// Request-time failures. These are rejected before any queue state changes.
var (
	ErrNoVoiceChannel = errors.New("user is not connected to a voice channel")
	ErrEmptyQuery     = errors.New("query is empty")
)

// Resolution failures.
var (
	ErrMetadataNotFound = errors.New("metadata not found")
	ErrInvalidLink      = errors.New("invalid link")
	ErrNoStreamFound    = errors.New("no streamable source found")
)

// Playback failures. ErrStreamOpenFailed and ErrTransport skip the current
// track; ErrConnectionLost tears the whole guild session down.
var (
	ErrStreamOpenFailed = errors.New("stream open failed")
	ErrTransport        = errors.New("voice transport error")
	ErrConnectionLost   = errors.New("voice connection lost")
)
