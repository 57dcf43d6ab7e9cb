package music

import "github.com/google/uuid"

// Track is a resolved, playable unit. Values are never mutated after NewTrack.
type Track struct {
	ID            string
	Title         string
	SourceLocator string
	RequesterID   string
}

func NewTrack(title, locator, requesterID string) Track {
	return Track{
		ID:            uuid.NewString(),
		Title:         title,
		SourceLocator: locator,
		RequesterID:   requesterID,
	}
}
