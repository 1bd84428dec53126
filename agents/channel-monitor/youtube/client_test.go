package youtube

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     int
	}{
		{"SecondsOnly", "PT45S", 45},
		{"MinutesAndSeconds", "PT10M23S", 623},
		{"HoursMinutesSeconds", "PT1H2M3S", 3723},
		{"HoursOnly", "PT2H", 7200},
		{"MinutesOnly", "PT5M", 300},
		{"Empty", "", 0},
		{"Garbage", "not a duration", 0},
		{"ZeroLength", "PT0S", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDurationSeconds(tt.duration); got != tt.want {
				t.Errorf("parseDurationSeconds(%q) = %d, want %d", tt.duration, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{"Zero", 0, "0:00"},
		{"Negative", -5, "0:00"},
		{"UnderAMinute", 45, "0:45"},
		{"MinutesAndSeconds", 623, "10:23"},
		{"ExactlyAnHour", 3600, "1:00:00"},
		{"HoursMinutesSeconds", 3723, "1:02:03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.seconds); got != tt.want {
				t.Errorf("formatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestTokenRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := saveToken(path, token); err != nil {
		t.Fatalf("saveToken() failed: %v", err)
	}

	loaded, err := tokenFromFile(path)
	if err != nil {
		t.Fatalf("tokenFromFile() failed: %v", err)
	}
	if loaded.AccessToken != token.AccessToken {
		t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, token.AccessToken)
	}
	if loaded.RefreshToken != token.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", loaded.RefreshToken, token.RefreshToken)
	}
	if !loaded.Expiry.Equal(token.Expiry) {
		t.Errorf("Expiry = %v, want %v", loaded.Expiry, token.Expiry)
	}
}

func TestTokenFromFileMissing(t *testing.T) {
	if _, err := tokenFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("tokenFromFile() succeeded for a missing file")
	}
}
