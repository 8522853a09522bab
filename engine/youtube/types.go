package youtube

import (
	"errors"
	"time"
)

// ErrChannelNotFound is returned when no channel could be resolved from
// the user-supplied hint. Transport and auth failures during resolution
// are folded into this error; the caller sees one uniform outcome.
var ErrChannelNotFound = errors.New("channel not found")

// ErrQuotaExhausted is returned when the Data API rejects a call for
// quota or credential reasons.
var ErrQuotaExhausted = errors.New("youtube API quota exhausted")

// ChannelProfile describes a resolved channel. Built once per analysis
// run and never mutated.
type ChannelProfile struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	CustomURL         string `json:"custom_url,omitempty"`
	UploadsPlaylistID string `json:"uploads_playlist_id,omitempty"`
	VideoCount        int64  `json:"video_count"`
	SubscriberCount   int64  `json:"subscriber_count"`
	ViewCount         int64  `json:"view_count"`
}

// VideoRecord is one collected upload with its derived display fields.
type VideoRecord struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	ViewCount       int64     `json:"view_count"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	PublishedAt     time.Time `json:"published_at"`
	PublishedLocal  string    `json:"published_local"`
	Description     string    `json:"description"`
	Hashtags        []string  `json:"hashtags,omitempty"`
}
