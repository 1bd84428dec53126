// Package probe contains ad-hoc reverse engineering helpers for the
// downsub.com subtitle site: JS bundle endpoint discovery and decryption
// of the encrypted URL payloads its download links carry. None of the
// endpoints found this way are a stable interface.
package probe

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Report is what a page analysis produces.
type Report struct {
	PageURL       string   `json:"page_url"`
	Scripts       []string `json:"scripts"`
	Endpoints     []string `json:"endpoints"`
	SubtitleLinks []string `json:"subtitle_links"`
}

// Analyzer probes the subtitle site for API endpoints and download links.
type Analyzer struct {
	client  *http.Client
	baseURL string
}

func NewAnalyzer(client *http.Client, baseURL string) *Analyzer {
	return &Analyzer{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// AnalyzePage fetches the site page for a video, enumerates its JS bundles
// and scans each bundle for candidate API endpoints.
func (a *Analyzer) AnalyzePage(ctx context.Context, videoURL string) (*Report, error) {
	pageURL := fmt.Sprintf("%s/?url=%s", a.baseURL, url.QueryEscape(videoURL))

	body, err := a.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	report := &Report{PageURL: pageURL}

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if strings.HasPrefix(src, "/") {
			src = a.baseURL + src
		}
		report.Scripts = append(report.Scripts, src)
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.Contains(href, "subtitle") || strings.Contains(href, ".srt") || strings.Contains(href, ".vtt") {
			report.SubtitleLinks = append(report.SubtitleLinks, href)
		}
	})

	seen := make(map[string]bool)
	for _, script := range report.Scripts {
		js, err := a.get(ctx, script)
		if err != nil {
			log.Printf("Could not download bundle %s: %v", script, err)
			continue
		}
		for _, endpoint := range ScanForEndpoints(js) {
			if !seen[endpoint] {
				seen[endpoint] = true
				report.Endpoints = append(report.Endpoints, endpoint)
			}
		}
	}
	sort.Strings(report.Endpoints)

	return report, nil
}

var endpointPatterns = []*regexp.Regexp{
	// fetch/axios style calls to anything that smells like an API
	regexp.MustCompile(`(?:fetch|axios|\.get|\.post)\s*\(\s*['"]([^'"]*(?:api|download|subtitle|sub)[^'"]*)['"]`),
	regexp.MustCompile(`['"]([^'"]*(?:/api/|/download/|/sub/)[^'"]*)['"]`),
	regexp.MustCompile(`baseURL\s*:\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`endpoint\s*:\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`['"](https?://[^'"]*downsub[^'"]*)['"]`),
	regexp.MustCompile(`['"](https?://[^'"]*subtitle[^'"]*)['"]`),
}

// ScanForEndpoints greps JS bundle source for candidate API endpoints.
func ScanForEndpoints(js string) []string {
	seen := make(map[string]bool)
	var endpoints []string

	for _, pattern := range endpointPatterns {
		for _, match := range pattern.FindAllStringSubmatch(js, -1) {
			candidate := strings.TrimSpace(match[1])
			if candidate == "" || seen[candidate] {
				continue
			}
			// Asset paths are noise
			if strings.HasSuffix(candidate, ".js") || strings.HasSuffix(candidate, ".css") ||
				strings.HasSuffix(candidate, ".png") || strings.HasSuffix(candidate, ".svg") {
				continue
			}
			seen[candidate] = true
			endpoints = append(endpoints, candidate)
		}
	}

	return endpoints
}

func (a *Analyzer) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return string(body), nil
}
