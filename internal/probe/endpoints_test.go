package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScanForEndpoints(t *testing.T) {
	js := `
const api = axios.create({baseURL: "https://api.downsub.com"});
fetch("/api/convert?url=" + encodeURIComponent(u));
const cfg = {endpoint: "https://get-info.downsub.com/"};
loadAsset("/static/bundle.js");
loadAsset("/static/app.css");
window.open("https://download.subtitle.to/?url=" + payload);
`

	endpoints := ScanForEndpoints(js)

	want := []string{
		"https://api.downsub.com",
		"/api/convert?url=",
		"https://get-info.downsub.com/",
		"https://download.subtitle.to/?url=",
	}
	for _, w := range want {
		found := false
		for _, e := range endpoints {
			if e == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("ScanForEndpoints() missing %q (got %v)", w, endpoints)
		}
	}

	for _, e := range endpoints {
		if e == "/static/bundle.js" || e == "/static/app.css" {
			t.Errorf("ScanForEndpoints() kept asset path %q", e)
		}
	}
}

func TestScanForEndpointsDeduplicates(t *testing.T) {
	js := `fetch("/api/convert"); axios.get("/api/convert");`

	endpoints := ScanForEndpoints(js)

	count := 0
	for _, e := range endpoints {
		if e == "/api/convert" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("endpoint listed %d times, want 1", count)
	}
}

func TestAnalyzePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
<script src="/js/app.js"></script>
</head><body>
<a href="/sub/video-en.srt">English subtitle</a>
<a href="/about">About</a>
</body></html>`)
	})
	mux.HandleFunc("/js/app.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `fetch("/api/convert?url=" + u);`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	analyzer := NewAnalyzer(server.Client(), server.URL)

	report, err := analyzer.AnalyzePage(context.Background(), "https://www.youtube.com/watch?v=vid1")
	if err != nil {
		t.Fatalf("AnalyzePage() failed: %v", err)
	}

	if len(report.Scripts) != 1 || report.Scripts[0] != server.URL+"/js/app.js" {
		t.Errorf("Scripts = %v, want the resolved bundle URL", report.Scripts)
	}
	if len(report.SubtitleLinks) != 1 || report.SubtitleLinks[0] != "/sub/video-en.srt" {
		t.Errorf("SubtitleLinks = %v, want the subtitle href only", report.SubtitleLinks)
	}

	found := false
	for _, e := range report.Endpoints {
		if e == "/api/convert?url=" {
			found = true
		}
	}
	if !found {
		t.Errorf("Endpoints = %v, missing the bundle's API call", report.Endpoints)
	}
}
