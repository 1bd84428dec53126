package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DownSubProvider scrapes downsub.com for subtitle download links. The
// endpoints involved were reverse engineered and are not a stable
// interface; this provider is strictly the last resort of the chain.
type DownSubProvider struct {
	client  *http.Client
	baseURL string
}

// subtitleLink is one downloadable subtitle track found on the page.
type subtitleLink struct {
	URL         string
	Language    string
	Format      string
	Auto        bool
	Description string
}

func NewDownSubProvider(client *http.Client, baseURL string) *DownSubProvider {
	return &DownSubProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *DownSubProvider) Name() string { return "downsub" }

func (p *DownSubProvider) Fetch(ctx context.Context, videoID string) (*Result, error) {
	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	links, err := p.fetchSubtitleLinks(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		// The page sometimes only renders links after a form post
		links, err = p.fetchSubtitleLinksViaForm(ctx, videoURL)
		if err != nil {
			return nil, err
		}
	}

	best := selectBestSubtitle(links)
	if best == nil {
		return nil, fmt.Errorf("no subtitle links found on downsub page")
	}

	content, err := p.download(ctx, best.URL)
	if err != nil {
		return nil, err
	}

	text := convertSubtitle(content, best.Format)
	if text == "" {
		return nil, fmt.Errorf("downloaded subtitle %s produced no text", best.URL)
	}

	language := best.Language
	if best.Auto {
		language += "-auto"
	}

	return &Result{Text: text, Language: language}, nil
}

func (p *DownSubProvider) fetchSubtitleLinks(ctx context.Context, videoURL string) ([]subtitleLink, error) {
	pageURL := fmt.Sprintf("%s/?url=%s", p.baseURL, url.QueryEscape(videoURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create downsub request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch downsub page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downsub page returned status %d", resp.StatusCode)
	}

	return p.parseSubtitleLinks(resp.Body)
}

func (p *DownSubProvider) fetchSubtitleLinksViaForm(ctx context.Context, videoURL string) ([]subtitleLink, error) {
	form := url.Values{
		"supported_sites": {videoURL},
		"submit":          {"Download"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create downsub form request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post downsub form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downsub form post returned status %d", resp.StatusCode)
	}

	return p.parseSubtitleLinks(resp.Body)
}

// parseSubtitleLinks extracts subtitle download links from a downsub HTML
// page. Language and auto/manual flags come from the link text heuristics.
func (p *DownSubProvider) parseSubtitleLinks(body io.Reader) ([]subtitleLink, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse downsub page: %w", err)
	}

	var links []subtitleLink
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		format := subtitleFormat(href)
		if format == "" {
			return
		}

		if strings.HasPrefix(href, "/") {
			href = p.baseURL + href
		}

		description := strings.TrimSpace(sel.Text())
		links = append(links, subtitleLink{
			URL:         href,
			Language:    detectLanguage(description),
			Format:      format,
			Auto:        strings.Contains(strings.ToLower(description), "auto"),
			Description: description,
		})
	})

	return links, nil
}

// subtitleFormat reports the subtitle format a link points to, or "" when
// the link is not a subtitle download.
func subtitleFormat(href string) string {
	lower := strings.ToLower(href)
	for _, format := range []string{"srt", "vtt", "txt"} {
		if strings.Contains(lower, "."+format) || strings.Contains(lower, "type="+format) {
			return format
		}
	}
	if strings.Contains(lower, "download.subtitle.to") {
		return "srt" // downsub's download host defaults to SRT
	}
	return ""
}

func detectLanguage(description string) string {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "chinese") || strings.Contains(description, "中文"):
		return "zh"
	case strings.Contains(lower, "english"):
		return "en"
	default:
		return "en"
	}
}

// selectBestSubtitle prefers English manual, English auto, Chinese manual,
// Chinese auto, then the first link found.
func selectBestSubtitle(links []subtitleLink) *subtitleLink {
	if len(links) == 0 {
		return nil
	}

	preferences := []struct {
		language string
		auto     bool
	}{
		{"en", false},
		{"en", true},
		{"zh", false},
		{"zh", true},
	}

	for _, pref := range preferences {
		for i := range links {
			if links[i].Language == pref.language && links[i].Auto == pref.auto {
				return &links[i]
			}
		}
	}

	return &links[0]
}

func (p *DownSubProvider) download(ctx context.Context, subtitleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subtitleURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create subtitle request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download subtitle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subtitle download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read subtitle content: %w", err)
	}

	return string(body), nil
}
