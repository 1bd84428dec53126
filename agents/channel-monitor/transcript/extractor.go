package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kkdai/youtube/v2"
)

// ExtractorProvider obtains caption tracks through the kkdai/youtube
// metadata extractor. It is the fallback when the timedtext endpoint
// refuses to list captions for a video.
type ExtractorProvider struct {
	client    *youtube.Client
	http      *http.Client
	languages []string
}

func NewExtractorProvider(httpClient *http.Client, languages []string) *ExtractorProvider {
	return &ExtractorProvider{
		client:    &youtube.Client{HTTPClient: httpClient},
		http:      httpClient,
		languages: languages,
	}
}

func (p *ExtractorProvider) Name() string { return "extractor" }

func (p *ExtractorProvider) Fetch(ctx context.Context, videoID string) (*Result, error) {
	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video metadata: %w", err)
	}

	if len(video.CaptionTracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}

	tracks := make([]captionTrack, len(video.CaptionTracks))
	for i, t := range video.CaptionTracks {
		tracks[i] = captionTrack{
			BaseURL:      t.BaseURL,
			LanguageCode: t.LanguageCode,
			Kind:         t.Kind,
		}
	}

	track, err := selectCaptionTrack(tracks, p.languages)
	if err != nil {
		return nil, err
	}

	xmlContent, err := p.downloadTrack(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}

	text := timedTextToText(xmlContent)
	if text == "" {
		return nil, fmt.Errorf("caption track %s produced no text", track.LanguageCode)
	}

	language := track.LanguageCode
	if track.Kind == "asr" {
		language += "-auto"
	}

	return &Result{Text: text, Language: language}, nil
}

func (p *ExtractorProvider) downloadTrack(ctx context.Context, trackURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create track request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download caption track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download caption track: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read caption track: %w", err)
	}

	return string(body), nil
}
