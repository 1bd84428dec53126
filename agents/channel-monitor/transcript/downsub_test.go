package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const downsubPageHTML = `<html><body>
<div class="download-section">
  <a href="/sub/video-en.srt">English [SRT]</a>
  <a href="/sub/video-en-auto.srt">English (auto-generated) [SRT]</a>
  <a href="/sub/video-zh.vtt">Chinese 中文 [VTT]</a>
  <a href="/about">About us</a>
  <a href="https://download.subtitle.to/?url=ZXhhbXBsZQ">French</a>
</div>
</body></html>`

func TestParseSubtitleLinks(t *testing.T) {
	provider := NewDownSubProvider(nil, "https://downsub.com")

	links, err := provider.parseSubtitleLinks(strings.NewReader(downsubPageHTML))
	if err != nil {
		t.Fatalf("parseSubtitleLinks() failed: %v", err)
	}

	if len(links) != 4 {
		t.Fatalf("got %d links, want 4 (the about page is not a subtitle)", len(links))
	}

	first := links[0]
	if first.URL != "https://downsub.com/sub/video-en.srt" {
		t.Errorf("relative href not resolved: %s", first.URL)
	}
	if first.Language != "en" || first.Auto {
		t.Errorf("first link = %+v, want manual English", first)
	}
	if first.Format != "srt" {
		t.Errorf("Format = %q, want srt", first.Format)
	}

	if !links[1].Auto {
		t.Error("auto-generated link not flagged as auto")
	}
	if links[2].Language != "zh" || links[2].Format != "vtt" {
		t.Errorf("Chinese link = %+v, want zh/vtt", links[2])
	}
	if links[3].Format != "srt" {
		t.Errorf("download host link format = %q, want srt default", links[3].Format)
	}
}

func TestSubtitleFormat(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/sub/video.srt", "srt"},
		{"/sub/video.vtt", "vtt"},
		{"/sub/video.txt", "txt"},
		{"/download?type=srt&id=1", "srt"},
		{"https://download.subtitle.to/?url=abc", "srt"},
		{"/about", ""},
		{"/styles.css", ""},
	}

	for _, tt := range tests {
		if got := subtitleFormat(tt.href); got != tt.want {
			t.Errorf("subtitleFormat(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestSelectBestSubtitle(t *testing.T) {
	enManual := subtitleLink{URL: "en-manual", Language: "en"}
	enAuto := subtitleLink{URL: "en-auto", Language: "en", Auto: true}
	zhManual := subtitleLink{URL: "zh-manual", Language: "zh"}
	zhAuto := subtitleLink{URL: "zh-auto", Language: "zh", Auto: true}

	tests := []struct {
		name  string
		links []subtitleLink
		want  string
	}{
		{"EnglishManualFirst", []subtitleLink{zhAuto, enAuto, enManual}, "en-manual"},
		{"EnglishAutoSecond", []subtitleLink{zhManual, enAuto}, "en-auto"},
		{"ChineseManualThird", []subtitleLink{zhAuto, zhManual}, "zh-manual"},
		{"ChineseAutoFourth", []subtitleLink{zhAuto}, "zh-auto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best := selectBestSubtitle(tt.links)
			if best == nil {
				t.Fatal("selectBestSubtitle() = nil")
			}
			if best.URL != tt.want {
				t.Errorf("selected %s, want %s", best.URL, tt.want)
			}
		})
	}

	t.Run("Empty", func(t *testing.T) {
		if best := selectBestSubtitle(nil); best != nil {
			t.Errorf("selectBestSubtitle(nil) = %+v, want nil", best)
		}
	})
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"English [SRT]", "en"},
		{"Chinese (Simplified)", "zh"},
		{"中文（简体）", "zh"},
		{"French", "en"}, // unknown languages default to en
	}

	for _, tt := range tests {
		if got := detectLanguage(tt.description); got != tt.want {
			t.Errorf("detectLanguage(%q) = %q, want %q", tt.description, got, tt.want)
		}
	}
}

func TestDownSubProviderFetch(t *testing.T) {
	const srtContent = "1\n00:00:01,000 --> 00:00:03,000\nhello from downsub\n"

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			page := strings.ReplaceAll(downsubPageHTML, "https://download.subtitle.to/?url=ZXhhbXBsZQ", server.URL+"/unused.txt")
			w.Write([]byte(page))
		case strings.HasPrefix(r.URL.Path, "/sub/"):
			w.Write([]byte(srtContent))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := NewDownSubProvider(server.Client(), server.URL)

	result, err := provider.Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if result.Text != "hello from downsub" {
		t.Errorf("Text = %q, want the converted SRT content", result.Text)
	}
	if result.Language != "en" {
		t.Errorf("Language = %q, want en (manual English preferred)", result.Language)
	}
}

func TestDownSubProviderRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewDownSubProvider(server.Client(), server.URL)

	_, err := provider.Fetch(context.Background(), "vid1")
	if err != ErrRateLimited {
		t.Fatalf("Fetch() error = %v, want ErrRateLimited", err)
	}
}
