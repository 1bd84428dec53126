package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"yt-monitor/internal/models"
	"yt-monitor/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Client wraps the YouTube Data API v3 for channel polling.
type Client struct {
	service *youtube.Service
	config  *config.YouTubeConfig
}

func NewClient(cfg *config.YouTubeConfig) (*Client, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// OAuth mode: a previously provisioned token file is required.
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
			Endpoint:     google.Endpoint,
		}

		token, err := tokenFromFile(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth token from %s (provision one or set YOUTUBE_API_KEY): %w", cfg.TokenFile, err)
		}

		source := &tokenSaver{
			config:    oauthConfig,
			token:     token,
			tokenFile: cfg.TokenFile,
		}
		opts = append(opts, option.WithHTTPClient(oauth2.NewClient(ctx, source)))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service: service,
		config:  cfg,
	}, nil
}

// tokenSaver wraps an oauth2.TokenSource so refreshed tokens are persisted
// to disk and survive restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex // Protects concurrent token refresh operations
}

// Token implements oauth2.TokenSource, refreshing and saving as needed.
func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		log.Println("OAuth token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: Failed to save refreshed token: %v", err)
		}
	}

	return newToken, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}

// ResolveChannelID turns a handle like @somechannel into a channel ID.
// Channel IDs (UC...) pass through unchanged.
func (c *Client) ResolveChannelID(ctx context.Context, channel string) (string, error) {
	if !strings.HasPrefix(channel, "@") {
		return channel, nil
	}

	handle := strings.TrimPrefix(channel, "@")

	// Legacy usernames resolve through forUsername
	resp, err := c.service.Channels.List([]string{"id"}).
		ForUsername(handle).
		Context(ctx).
		Do()
	if err == nil && len(resp.Items) > 0 {
		return resp.Items[0].Id, nil
	}

	resp, err = c.service.Channels.List([]string{"id"}).
		ForHandle(handle).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to resolve channel handle %s: %w", channel, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("channel not found for handle %s", channel)
	}

	return resp.Items[0].Id, nil
}

// GetChannelInfo fetches the channel title and its uploads playlist ID.
func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*models.Channel, error) {
	resp, err := c.service.Channels.List([]string{"snippet", "contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("channel not found: %s", channelID)
	}

	item := resp.Items[0]
	channel := &models.Channel{
		ID:          item.Id,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
	}
	if item.ContentDetails != nil && item.ContentDetails.RelatedPlaylists != nil {
		channel.UploadsPlaylistID = item.ContentDetails.RelatedPlaylists.Uploads
	}
	if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
		channel.ThumbnailURL = item.Snippet.Thumbnails.High.Url
	}
	if channel.UploadsPlaylistID == "" {
		return nil, fmt.Errorf("channel %s has no uploads playlist", channelID)
	}

	return channel, nil
}

// GetLatestVideos lists the most recent uploads of a channel, newest first.
// Videos published at or before publishedAfter are filtered out when the
// cutoff is non-zero.
func (c *Client) GetLatestVideos(ctx context.Context, channel *models.Channel, maxResults int64, publishedAfter time.Time) ([]*models.Video, error) {
	playlistResp, err := c.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(channel.UploadsPlaylistID).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads for channel %s: %w", channel.ID, err)
	}

	var videoIDs []string
	published := make(map[string]time.Time)
	for _, item := range playlistResp.Items {
		videoID := item.Snippet.ResourceId.VideoId
		publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			log.Printf("Skipping video %s with unparseable publish time %q", videoID, item.Snippet.PublishedAt)
			continue
		}
		if !publishedAfter.IsZero() && !publishedAt.After(publishedAfter) {
			continue
		}
		videoIDs = append(videoIDs, videoID)
		published[videoID] = publishedAt
	}

	if len(videoIDs) == 0 {
		return []*models.Video{}, nil
	}

	videosResp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(strings.Join(videoIDs, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", err)
	}

	var videos []*models.Video
	for _, item := range videosResp.Items {
		durationSeconds := parseDurationSeconds(item.ContentDetails.Duration)
		video := &models.Video{
			ID:              item.Id,
			Title:           item.Snippet.Title,
			Description:     item.Snippet.Description,
			ChannelID:       channel.ID,
			ChannelTitle:    channel.Title,
			PublishedAt:     published[item.Id],
			Duration:        formatDuration(durationSeconds),
			DurationSeconds: durationSeconds,
			URL:             fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id),
		}

		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
			video.ThumbnailURL = item.Snippet.Thumbnails.High.Url
		}
		if item.Statistics != nil {
			video.ViewCount = int64(item.Statistics.ViewCount)
			video.LikeCount = int64(item.Statistics.LikeCount)
		}

		videos = append(videos, video)
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})

	log.Printf("Found %d recent videos for channel %s", len(videos), channel.Title)
	return videos, nil
}

// CheckQuota makes a minimal request to verify API access and quota.
func (c *Client) CheckQuota(ctx context.Context) error {
	_, err := c.service.Videos.List([]string{"id"}).
		Id("dQw4w9WgXcQ"). // A known video ID
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("YouTube API check failed: %w", err)
	}
	return nil
}

var durationRe = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// parseDurationSeconds parses ISO 8601 durations like "PT1H2M3S" into seconds.
func parseDurationSeconds(duration string) int {
	if duration == "" {
		return 0
	}

	matches := durationRe.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var totalSeconds int
	if matches[1] != "" {
		if hours, err := strconv.Atoi(matches[1]); err == nil {
			totalSeconds += hours * 3600
		}
	}
	if matches[2] != "" {
		if minutes, err := strconv.Atoi(matches[2]); err == nil {
			totalSeconds += minutes * 60
		}
	}
	if matches[3] != "" {
		if seconds, err := strconv.Atoi(matches[3]); err == nil {
			totalSeconds += seconds
		}
	}

	return totalSeconds
}

// formatDuration renders seconds as "M:SS" or "H:MM:SS".
func formatDuration(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "0:00"
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
