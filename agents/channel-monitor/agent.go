package channelmonitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"yt-monitor/agents/channel-monitor/transcript"
	"yt-monitor/agents/channel-monitor/youtube"
	"yt-monitor/internal/models"
	"yt-monitor/shared/ai"
	"yt-monitor/shared/config"
	"yt-monitor/shared/email"
	"yt-monitor/shared/scheduler"
	"yt-monitor/shared/storage"
)

const noTranscriptSummary = "No transcript available for this video; the notification contained basic metadata only."

// Delay between processed videos to stay polite with the upstream APIs.
const perVideoDelay = 2 * time.Second

// Run-result entries carry a shortened summary; the full text goes in the email.
const maxEntrySummaryLength = 200

// MonitorMetrics represents the metrics collected during a monitoring run
type MonitorMetrics struct {
	ChannelsProcessed int `json:"channels_processed"`
	ChannelErrors     int `json:"channel_errors"`
	NewVideos         int `json:"new_videos"`
	TranscriptMisses  int `json:"transcript_misses"`
	EmailsSent        int `json:"emails_sent"`
}

// GetSummary implements the scheduler.Metrics interface
func (m MonitorMetrics) GetSummary() string {
	return fmt.Sprintf("processed %d channels, %d new videos, %d without transcript, %d emails sent",
		m.ChannelsProcessed, m.NewVideos, m.TranscriptMisses, m.EmailsSent)
}

// MonitorAgent implements the scheduler.Agent interface
type MonitorAgent struct {
	config        *config.Config
	youtubeClient *youtube.Client
	transcripts   *transcript.Fetcher
	summarizer    *ai.Summarizer
	emailSender   *email.Sender
	store         *storage.Store
}

func NewMonitorAgent(cfg *config.Config) *MonitorAgent {
	return &MonitorAgent{
		config: cfg,
	}
}

func (a *MonitorAgent) Name() string {
	return "YouTube Channel Monitor"
}

func (a *MonitorAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())

	if a.youtubeClient == nil {
		client, err := youtube.NewClient(&a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.youtubeClient = client
		log.Println("YouTube client initialized")
	}

	if a.transcripts == nil {
		a.transcripts = transcript.NewFetcher(&a.config.Transcript)
		log.Println("Transcript fetcher initialized")
	}

	if a.summarizer == nil {
		summarizer, err := ai.NewSummarizer(a.config)
		if err != nil {
			return fmt.Errorf("failed to create summarizer: %w", err)
		}
		a.summarizer = summarizer
		log.Println("AI summarizer initialized")
	}

	if a.emailSender == nil {
		a.emailSender = email.NewSender(&a.config.Email)
		log.Println("Email sender initialized")
	}

	if a.store == nil {
		store, err := storage.NewStore(a.config.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		a.store = store
		stats := store.GetStatistics()
		log.Printf("Store initialized (%d channels, %d videos processed)",
			stats.TotalChannels, stats.TotalProcessed)
	}

	return nil
}

func (a *MonitorAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	var metrics MonitorMetrics
	runSummary := &models.RunSummary{
		Timestamp:         time.Now().UTC(),
		ChannelsProcessed: len(a.config.Channels),
	}

	for _, channel := range a.config.Channels {
		log.Printf("Processing channel: %s", channel)

		result := a.processChannel(ctx, channel, &metrics)
		runSummary.Results = append(runSummary.Results, *result)
		runSummary.TotalNewVideos += result.NewVideos

		if result.Error != "" {
			metrics.ChannelErrors++
		} else {
			metrics.ChannelsProcessed++
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	log.Printf("Processing complete. Total new videos: %d", runSummary.TotalNewVideos)

	if err := a.store.SaveRunSummary(runSummary); err != nil {
		log.Printf("Warning: Failed to save run summary: %v", err)
	}

	// The summary email goes out after every run, even an empty one
	if err := a.emailSender.SendRunSummary(runSummary); err != nil {
		log.Printf("Failed to send summary email: %v", err)
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(fmt.Errorf("summary email failed: %w", err), time.Since(startTime))
		}
	} else {
		metrics.EmailsSent++
		log.Println("Summary email sent successfully")
	}

	duration := time.Since(startTime)
	if metrics.ChannelErrors > 0 && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(fmt.Errorf("%d of %d channels failed", metrics.ChannelErrors, len(a.config.Channels)), duration)
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}

	log.Printf("Run complete: %s", metrics.GetSummary())
	return nil
}

func (a *MonitorAgent) processChannel(ctx context.Context, channel string, metrics *MonitorMetrics) *models.ChannelResult {
	result := &models.ChannelResult{
		ChannelID:   channel,
		ChannelName: "Unknown",
	}

	channelID, err := a.youtubeClient.ResolveChannelID(ctx, channel)
	if err != nil {
		log.Printf("Error resolving channel %s: %v", channel, err)
		result.Error = err.Error()
		return result
	}
	result.ChannelID = channelID

	info, err := a.youtubeClient.GetChannelInfo(ctx, channelID)
	if err != nil {
		log.Printf("Error fetching channel %s: %v", channelID, err)
		result.Error = err.Error()
		return result
	}
	result.ChannelName = info.Title

	videos, err := a.youtubeClient.GetLatestVideos(ctx, info, a.config.YouTube.MaxResults, time.Time{})
	if err != nil {
		log.Printf("Error listing videos for channel %s: %v", info.Title, err)
		result.Error = err.Error()
		return result
	}

	for i, video := range videos {
		if a.store.IsProcessed(channelID, video.ID) {
			log.Printf("Video already processed: %s", video.Title)
			continue
		}

		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			return result
		}

		log.Printf("Processing new video: %s", video.Title)
		entry := a.processVideo(ctx, channelID, video, metrics)
		result.Processed = append(result.Processed, *entry)
		result.NewVideos++
		metrics.NewVideos++

		if i < len(videos)-1 {
			if err := pause(ctx, perVideoDelay); err != nil {
				result.Error = err.Error()
				return result
			}
		}
	}

	return result
}

// pause waits for the given delay unless the context is cancelled first.
func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processVideo runs the per-video pipeline: transcript chain, summary,
// notification email, processed record. Failures at any stage degrade the
// notification instead of aborting; the video is always marked processed so
// the next run does not repeat it.
func (a *MonitorAgent) processVideo(ctx context.Context, channelID string, video *models.Video, metrics *MonitorMetrics) *models.ProcessedEntry {
	tr, err := a.transcripts.Fetch(ctx, video.ID)
	if err != nil {
		if !errors.Is(err, transcript.ErrNoTranscript) {
			log.Printf("Transcript fetch failed for %s: %v", video.Title, err)
		} else {
			log.Printf("No transcript available for: %s", video.Title)
		}
		metrics.TranscriptMisses++

		emailSent := a.sendNotification(video, "", false, metrics)
		a.markProcessed(channelID, video, noTranscriptSummary, emailSent)

		return &models.ProcessedEntry{
			VideoID: video.ID,
			Title:   video.Title,
			Summary: noTranscriptSummary,
		}
	}

	if err := a.store.SaveTranscript(&models.Transcript{
		VideoID:   video.ID,
		ChannelID: channelID,
		Language:  tr.Language,
		Source:    tr.Source,
		Text:      tr.Text,
	}); err != nil {
		log.Printf("Warning: Failed to save transcript for %s: %v", video.ID, err)
	}

	summary, err := a.summarizer.GenerateSummary(ctx, video, tr.Text)
	if err != nil {
		log.Printf("Warning: Failed to generate summary for %s: %v", video.Title, err)
		summary = fmt.Sprintf("Unable to generate summary for: %s", video.Title)
	}

	emailSent := a.sendNotification(video, summary, true, metrics)
	a.markProcessed(channelID, video, summary, emailSent)

	return &models.ProcessedEntry{
		VideoID: video.ID,
		Title:   video.Title,
		Summary: shortSummary(summary),
	}
}

// shortSummary shortens a summary for the run-result entry, cutting at a
// rune boundary so multi-byte text is never mangled.
func shortSummary(s string) string {
	if len(s) <= maxEntrySummaryLength {
		return s
	}
	cut := maxEntrySummaryLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func (a *MonitorAgent) sendNotification(video *models.Video, summary string, hasTranscript bool, metrics *MonitorMetrics) bool {
	if err := a.emailSender.SendVideoNotification(video, summary, hasTranscript); err != nil {
		log.Printf("Failed to send email for %s: %v", video.Title, err)
		return false
	}
	metrics.EmailsSent++
	return true
}

func (a *MonitorAgent) markProcessed(channelID string, video *models.Video, summary string, emailSent bool) {
	if err := a.store.MarkProcessed(channelID, video, summary, emailSent); err != nil {
		log.Printf("Warning: Failed to mark video %s as processed: %v", video.ID, err)
	}
}

// SelfTest exercises every external dependency once and writes the results
// to test_results.json under the data directory.
func (a *MonitorAgent) SelfTest(ctx context.Context) error {
	log.Println("Testing components...")

	results := map[string]bool{
		"youtube_api":    false,
		"transcript_api": false,
		"gemini_api":     false,
		"smtp":           false,
		"store":          false,
	}

	if err := a.youtubeClient.CheckQuota(ctx); err != nil {
		log.Printf("YouTube API test failed: %v", err)
	} else {
		results["youtube_api"] = true
	}

	// A video known to have captions
	if _, err := a.transcripts.Fetch(ctx, "dQw4w9WgXcQ"); err != nil {
		log.Printf("Transcript test failed: %v", err)
	} else {
		results["transcript_api"] = true
	}

	if err := a.summarizer.TestConnection(ctx); err != nil {
		log.Printf("Gemini API test failed: %v", err)
	} else {
		results["gemini_api"] = true
	}

	if err := a.emailSender.TestConnection(); err != nil {
		log.Printf("SMTP test failed: %v", err)
	} else {
		results["smtp"] = true
	}

	stats := a.store.GetStatistics()
	results["store"] = stats.DataDirectory != ""

	allPassed := true
	for name, ok := range results {
		status := "OK"
		if !ok {
			status = "FAILED"
			allPassed = false
		}
		log.Printf("%s: %s", name, status)
	}

	report := struct {
		Timestamp time.Time       `json:"timestamp"`
		Results   map[string]bool `json:"results"`
		AllPassed bool            `json:"all_passed"`
	}{time.Now().UTC(), results, allPassed}

	data, err := json.MarshalIndent(report, "", "  ")
	if err == nil {
		if err := os.WriteFile(filepath.Join(a.config.DataDir, "test_results.json"), data, 0644); err != nil {
			log.Printf("Warning: Failed to write test results: %v", err)
		}
	}

	if !allPassed {
		return fmt.Errorf("component self-test failed")
	}
	return nil
}
