// Package transcript obtains subtitle text for YouTube videos through an
// ordered chain of providers: the timedtext caption API, a video metadata
// extractor, and a scraper for a third-party subtitle site.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"yt-monitor/shared/config"
)

var (
	// ErrNoTranscript is returned when every provider has been exhausted.
	ErrNoTranscript = errors.New("no transcript available")
	// ErrTranscriptsDisabled means the video exists but captions are off.
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	// ErrVideoUnavailable means the video is private, deleted or blocked.
	ErrVideoUnavailable = errors.New("video is unavailable")
	// ErrRateLimited means the upstream refused us with a 429.
	ErrRateLimited = errors.New("rate limited by upstream")
)

// Result is the transcript text produced by a provider.
type Result struct {
	Text     string
	Language string
	Source   string
}

// Provider fetches a transcript for a video by one particular strategy.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, videoID string) (*Result, error)
}

// Fetcher tries each provider in order until one returns a transcript.
type Fetcher struct {
	providers []Provider
}

// NewFetcher builds the default provider chain: timedtext first, the
// metadata extractor second, the downsub scraper last.
func NewFetcher(cfg *config.TranscriptConfig) *Fetcher {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	return &Fetcher{
		providers: []Provider{
			NewTimedTextProvider(httpClient, cfg.PreferredLanguages),
			NewExtractorProvider(httpClient, cfg.PreferredLanguages),
			NewDownSubProvider(httpClient, cfg.DownSubBaseURL),
		},
	}
}

// NewFetcherWithProviders is used by tests and the probe tool to assemble
// a custom chain.
func NewFetcherWithProviders(providers ...Provider) *Fetcher {
	return &Fetcher{providers: providers}
}

// Fetch runs the provider chain for a video. Providers failing with any
// error other than context cancellation simply hand over to the next one.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (*Result, error) {
	var failures []string

	for _, provider := range f.providers {
		result, err := provider.Fetch(ctx, videoID)
		if err == nil && result != nil && strings.TrimSpace(result.Text) != "" {
			result.Source = provider.Name()
			log.Printf("Fetched transcript for video %s via %s (%d chars, language %s)",
				videoID, provider.Name(), len(result.Text), result.Language)
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err == nil {
			err = fmt.Errorf("empty transcript")
		}
		log.Printf("Provider %s failed for video %s: %v", provider.Name(), videoID, err)
		failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
	}

	return nil, fmt.Errorf("%w for video %s (%s)", ErrNoTranscript, videoID, strings.Join(failures, "; "))
}

var (
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// CleanText strips common transcript artifacts: [Music]/(Applause) style
// annotations, leftover markup and runs of whitespace.
func CleanText(text string) string {
	text = tagRe.ReplaceAllString(text, "")
	text = bracketRe.ReplaceAllString(text, "")
	text = parenRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
