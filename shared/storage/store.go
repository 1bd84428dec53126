package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"yt-monitor/internal/models"
)

// Store persists processed-video records and transcripts as flat JSON files
// under a data directory. A video ID is unique within a channel's list:
// marking an already-processed video updates the existing record.
type Store struct {
	dataDir        string
	processedFile  string
	transcriptsDir string
	mu             sync.RWMutex
	processed      map[string][]ProcessedVideo // channelID -> records
}

// ProcessedVideo marks that a given video ID has already been handled.
type ProcessedVideo struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	ProcessedAt  time.Time `json:"processed_at"`
	Summary      string    `json:"summary"`
	EmailSent    bool      `json:"email_sent"`
	Duration     string    `json:"duration"`
	ViewCount    int64     `json:"view_count"`
}

// Statistics summarizes what the store currently holds.
type Statistics struct {
	TotalChannels    int    `json:"total_channels"`
	TotalProcessed   int    `json:"total_videos_processed"`
	TotalTranscripts int    `json:"total_transcripts_saved"`
	DataDirectory    string `json:"data_directory"`
}

const maxStoredSummaryLength = 1000

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	transcriptsDir := filepath.Join(dataDir, "transcripts")
	if err := os.MkdirAll(transcriptsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	s := &Store{
		dataDir:        dataDir,
		processedFile:  filepath.Join(dataDir, "processed_videos.json"),
		transcriptsDir: transcriptsDir,
		processed:      make(map[string][]ProcessedVideo),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load processed videos: %w", err)
	}

	return s, nil
}

// GetProcessedVideos returns the processed records for a channel, newest first.
func (s *Store) GetProcessedVideos(channelID string) []ProcessedVideo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ProcessedVideo, len(s.processed[channelID]))
	copy(records, s.processed[channelID])

	sort.Slice(records, func(i, j int) bool {
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})

	return records
}

// IsProcessed checks whether a video has already been handled for a channel.
func (s *Store) IsProcessed(channelID, videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.processed[channelID] {
		if record.VideoID == videoID {
			return true
		}
	}
	return false
}

// MarkProcessed records a video as handled. Re-marking the same video ID
// replaces the existing record instead of appending a duplicate.
func (s *Store) MarkProcessed(channelID string, video *models.Video, summary string, emailSent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := ProcessedVideo{
		VideoID:      video.ID,
		Title:        video.Title,
		URL:          video.URL,
		ChannelTitle: video.ChannelTitle,
		PublishedAt:  video.PublishedAt,
		ProcessedAt:  time.Now(),
		Summary:      truncate(summary, maxStoredSummaryLength),
		EmailSent:    emailSent,
		Duration:     video.Duration,
		ViewCount:    video.ViewCount,
	}

	records := s.processed[channelID]
	replaced := false
	for i := range records {
		if records[i].VideoID == video.ID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	s.processed[channelID] = records

	return s.save()
}

// SaveTranscript writes a transcript JSON file under transcripts/<channel>/<video>.json.
func (s *Store) SaveTranscript(t *models.Transcript) error {
	channelDir := filepath.Join(s.transcriptsDir, t.ChannelID)
	if err := os.MkdirAll(channelDir, 0755); err != nil {
		return fmt.Errorf("failed to create channel transcript directory: %w", err)
	}

	t.SavedAt = time.Now()

	file, err := os.Create(filepath.Join(channelDir, t.VideoID+".json"))
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return nil
}

// GetTranscript loads a previously saved transcript, or nil when none exists.
func (s *Store) GetTranscript(channelID, videoID string) (*models.Transcript, error) {
	file, err := os.Open(filepath.Join(s.transcriptsDir, channelID, videoID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var t models.Transcript
	if err := json.NewDecoder(file).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return &t, nil
}

// SaveRunSummary writes the per-run summary JSON next to the processed list.
func (s *Store) SaveRunSummary(summary *models.RunSummary) error {
	file, err := os.Create(filepath.Join(s.dataDir, "last_run_summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create run summary file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	return nil
}

// GetStatistics reports channel, record and transcript counts.
func (s *Store) GetStatistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, records := range s.processed {
		total += len(records)
	}

	transcripts := 0
	_ = filepath.WalkDir(s.transcriptsDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == ".json" {
			transcripts++
		}
		return nil
	})

	abs, err := filepath.Abs(s.dataDir)
	if err != nil {
		abs = s.dataDir
	}

	return Statistics{
		TotalChannels:    len(s.processed),
		TotalProcessed:   total,
		TotalTranscripts: transcripts,
		DataDirectory:    abs,
	}
}

func (s *Store) load() error {
	file, err := os.Open(s.processedFile)
	if err != nil {
		if os.IsNotExist(err) {
			// No file yet, start with an empty store
			return nil
		}
		return fmt.Errorf("failed to open processed videos file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&s.processed); err != nil {
		return fmt.Errorf("failed to decode processed videos: %w", err)
	}
	return nil
}

func (s *Store) save() error {
	file, err := os.Create(s.processedFile)
	if err != nil {
		return fmt.Errorf("failed to create processed videos file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s.processed)
}

// truncate cuts s to at most maxLength bytes without splitting a rune.
func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
