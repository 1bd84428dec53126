package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"path/filepath"
	"time"

	"yt-monitor/internal/models"
	"yt-monitor/shared/config"
)

// Sender delivers notification emails over SMTP.
type Sender struct {
	config       *config.EmailConfig
	templatesDir string
}

// videoNotification is the data passed to the per-video template.
type videoNotification struct {
	Video         *models.Video
	Summary       string
	HasTranscript bool
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config:       cfg,
		templatesDir: "agents/channel-monitor/templates",
	}
}

// SendVideoNotification sends one email about a newly discovered video.
// When no transcript was available the email carries a notice instead of
// a summary.
func (s *Sender) SendVideoNotification(video *models.Video, summary string, hasTranscript bool) error {
	if video == nil {
		return fmt.Errorf("video cannot be nil")
	}

	subject := fmt.Sprintf("[%s] New video: %s", video.ChannelTitle, video.Title)

	body, err := s.render("video_notification.html", &videoNotification{
		Video:         video,
		Summary:       summary,
		HasTranscript: hasTranscript,
	})
	if err != nil {
		return fmt.Errorf("failed to generate notification body: %w", err)
	}

	return s.sendViaSMTP(subject, body)
}

// SendRunSummary sends the per-run digest. It is sent after every run,
// including runs that found no new videos.
func (s *Sender) SendRunSummary(summary *models.RunSummary) error {
	if summary == nil {
		return fmt.Errorf("run summary cannot be nil")
	}

	subject := fmt.Sprintf("YouTube Monitor Summary - %d new videos (%s)",
		summary.TotalNewVideos, summary.Timestamp.Format("Jan 2, 2006"))

	body, err := s.render("run_summary.html", summary)
	if err != nil {
		return fmt.Errorf("failed to generate summary body: %w", err)
	}

	return s.sendViaSMTP(subject, body)
}

// TestConnection verifies that the SMTP server accepts our credentials.
func (s *Sender) TestConnection() error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: s.config.SMTPServer}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	return client.Quit()
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
Date: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, time.Now().Format(time.RFC1123Z), body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.FromEmail, to, msg)
}

func (s *Sender) render(name string, data any) (string, error) {
	templatePath := filepath.Join(s.templatesDir, name)
	tmplBytes, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read email template %s: %w", templatePath, err)
	}

	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"comma": func(n int64) string {
			// Thousand separators for view counts
			out := fmt.Sprintf("%d", n)
			for i := len(out) - 3; i > 0; i -= 3 {
				out = out[:i] + "," + out[i:]
			}
			return out
		},
	}).Parse(string(tmplBytes))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
