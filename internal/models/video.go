package models

import "time"

type Video struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ChannelID       string    `json:"channel_id"`
	ChannelTitle    string    `json:"channel_title"`
	PublishedAt     time.Time `json:"published_at"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	URL             string    `json:"url"`
}

type Channel struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	UploadsPlaylistID string `json:"uploads_playlist_id"`
	ThumbnailURL      string `json:"thumbnail_url"`
}

// Transcript is the text obtained for a video by one of the providers.
type Transcript struct {
	VideoID   string    `json:"video_id"`
	ChannelID string    `json:"channel_id"`
	Language  string    `json:"language"`
	Source    string    `json:"source"`
	Text      string    `json:"transcript"`
	SavedAt   time.Time `json:"saved_at"`
}
