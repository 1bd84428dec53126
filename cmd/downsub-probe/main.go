// downsub-probe is an ad-hoc tool for poking at downsub.com: it enumerates
// the JS bundles behind a video's page, scans them for API endpoints, and
// decodes (optionally decrypts) the encrypted url= payloads of subtitle
// download links.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"yt-monitor/internal/probe"
)

func main() {
	var (
		videoID = flag.String("video", "", "YouTube video ID or watch URL to analyze")
		link    = flag.String("link", "", "subtitle download link (or bare url= parameter) to decode")
		key     = flag.String("key", "", "passphrase to try when decrypting a decoded envelope")
		baseURL = flag.String("base", "https://downsub.com", "subtitle site base URL")
	)
	flag.Parse()

	if *videoID == "" && *link == "" {
		fmt.Fprintln(os.Stderr, "usage: downsub-probe -video <id|url> | -link <url> [-key <passphrase>]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *link != "" {
		decodeLink(*link, *key)
		return
	}

	videoURL := *videoID
	if !strings.Contains(videoURL, "://") {
		videoURL = "https://www.youtube.com/watch?v=" + videoURL
	}

	analyzer := probe.NewAnalyzer(&http.Client{Timeout: 30 * time.Second}, *baseURL)

	report, err := analyzer.AnalyzePage(ctx, videoURL)
	if err != nil {
		log.Fatalf("Page analysis failed: %v", err)
	}

	printJSON(report)

	// Try to open every subtitle link found on the page
	for _, found := range report.SubtitleLinks {
		decodeLink(found, *key)
	}
}

func decodeLink(link, key string) {
	param := link
	if strings.Contains(link, "://") {
		extracted, err := probe.ExtractLinkParam(link)
		if err != nil {
			log.Printf("Skipping %s: %v", link, err)
			return
		}
		param = extracted
	}

	env, err := probe.DecodeLinkParam(param)
	if err != nil {
		log.Printf("Could not decode link parameter: %v", err)
		return
	}

	fmt.Printf("Envelope (ct %d chars, iv %s, salt %s)\n", len(env.CipherText), env.IV, env.Salt)

	if key == "" {
		fmt.Println("No passphrase given, stopping at the envelope (-key to attempt decryption)")
		return
	}

	plaintext, err := probe.Decrypt(env, key)
	if err != nil {
		log.Printf("Decryption failed: %v", err)
		return
	}
	fmt.Printf("Decrypted payload: %s\n", plaintext)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(data))
}
