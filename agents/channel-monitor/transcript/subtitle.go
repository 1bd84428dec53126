package transcript

import (
	"html"
	"regexp"
	"strings"
)

var (
	srtTimestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}[,.]\d{3}`)
	vttTimestampRe = regexp.MustCompile(`-->\s`)
	timedTextRe    = regexp.MustCompile(`(?s)<(?:text|p)\b[^>]*>(.*?)</(?:text|p)>`)
)

// srtToText converts SRT subtitle content to plain text by dropping cue
// numbers and timestamp lines.
func srtToText(content string) string {
	var parts []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isCueNumber(line) || srtTimestampRe.MatchString(line) {
			continue
		}
		if text := CleanText(html.UnescapeString(line)); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// vttToText converts WebVTT subtitle content to plain text.
func vttToText(content string) string {
	var parts []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"):
			continue
		case vttTimestampRe.MatchString(line), isCueNumber(line):
			continue
		}
		if text := CleanText(html.UnescapeString(line)); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// timedTextToText converts YouTube's timedtext XML into plain text. Both
// formats are handled: <text start="1.36" dur="1.68">...</text> and the
// srv3 variant <p t="1360" d="1680">...</p>.
func timedTextToText(content string) string {
	matches := timedTextRe.FindAllStringSubmatch(content, -1)

	var parts []string
	for _, match := range matches {
		text := CleanText(html.UnescapeString(match[1]))
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// convertSubtitle picks the right converter for a downloaded subtitle file.
func convertSubtitle(content, format string) string {
	switch format {
	case "srt":
		return srtToText(content)
	case "vtt":
		return vttToText(content)
	case "xml":
		return timedTextToText(content)
	default:
		return CleanText(html.UnescapeString(content))
	}
}

func isCueNumber(line string) bool {
	if line == "" {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
