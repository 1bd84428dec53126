package models

import "time"

// ProcessedEntry is a short form of a processed video used in run results.
type ProcessedEntry struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// ChannelResult describes the outcome of processing one channel during a run.
type ChannelResult struct {
	ChannelID   string           `json:"channel_id"`
	ChannelName string           `json:"channel_name"`
	NewVideos   int              `json:"new_videos_count"`
	Processed   []ProcessedEntry `json:"processed_videos,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// RunSummary is persisted after every run and rendered into the summary email.
type RunSummary struct {
	Timestamp         time.Time       `json:"timestamp"`
	TotalNewVideos    int             `json:"total_new_videos"`
	ChannelsProcessed int             `json:"channels_processed"`
	Results           []ChannelResult `json:"results"`
}
