package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"yt-monitor/internal/models"
	"yt-monitor/shared/config"

	"google.golang.org/genai"
)

const (
	// Transcripts longer than this are truncated to stay within token limits.
	maxTranscriptLength = 50000
	// Transcripts longer than this are summarized chunk by chunk.
	chunkSize = 10000

	maxSummaryWords = 300
	maxRetries      = 3
)

// Summarizer generates concise video summaries from transcripts using Gemini.
type Summarizer struct {
	client *genai.Client
	model  string
}

func NewSummarizer(cfg *config.Config) (*Summarizer, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.AI.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Summarizer{
		client: client,
		model:  cfg.AI.Model,
	}, nil
}

// GenerateSummary produces a bullet-point summary of the transcript. It
// retries transient failures with exponential backoff and falls back to a
// metadata-only summary when every attempt fails. Long transcripts are
// summarized in chunks and recombined.
func (s *Summarizer) GenerateSummary(ctx context.Context, video *models.Video, transcript string) (string, error) {
	if video == nil {
		return "", fmt.Errorf("video cannot be nil")
	}
	if transcript == "" {
		return "", fmt.Errorf("no transcript provided for summarization")
	}

	if len(transcript) > maxTranscriptLength {
		log.Printf("Transcript too long (%d chars), truncating to %d", len(transcript), maxTranscriptLength)
		transcript = cutAt(transcript, maxTranscriptLength) + "... [truncated]"
	}

	if len(transcript) > chunkSize {
		return s.summarizeInChunks(ctx, video, transcript)
	}

	prompt := buildSummaryPrompt(video, transcript)

	text, err := s.generateWithRetries(ctx, prompt)
	if err != nil {
		log.Printf("All summary attempts failed for video %s: %v", video.ID, err)
		return fallbackSummary(video), nil
	}

	log.Printf("Generated summary of %d characters for video %s", len(text), video.ID)
	return text, nil
}

func (s *Summarizer) generateWithRetries(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.8),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: 1024,
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between attempts
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
		if err != nil {
			lastErr = err
			log.Printf("Error generating summary (attempt %d/%d): %v", attempt+1, maxRetries, err)
			continue
		}

		if text := strings.TrimSpace(result.Text()); text != "" {
			return text, nil
		}

		lastErr = fmt.Errorf("empty response from Gemini")
		log.Printf("Empty response from Gemini (attempt %d/%d)", attempt+1, maxRetries)
	}

	return "", lastErr
}

func (s *Summarizer) summarizeInChunks(ctx context.Context, video *models.Video, transcript string) (string, error) {
	chunks := splitTranscript(transcript, chunkSize)
	log.Printf("Processing transcript in %d chunks for video %s", len(chunks), video.ID)

	var chunkSummaries []string
	for i, chunk := range chunks {
		prompt := fmt.Sprintf(`Summarize this part %d of %d of the video transcript:

%s

Provide a brief summary focusing on the main points discussed in this section.`, i+1, len(chunks), chunk)

		text, err := s.generateWithRetries(ctx, prompt)
		if err != nil {
			log.Printf("Error summarizing chunk %d/%d: %v", i+1, len(chunks), err)
			continue
		}
		chunkSummaries = append(chunkSummaries, text)
	}

	if len(chunkSummaries) == 0 {
		return fallbackSummary(video), nil
	}

	var parts []string
	for i, summary := range chunkSummaries {
		parts = append(parts, fmt.Sprintf("Part %d: %s", i+1, summary))
	}

	combinedPrompt := fmt.Sprintf(`Based on these summaries of different parts of the video "%s":

%s

Create a final, cohesive summary following this format:
• Main Topic: [Brief description]
• Key Points:
  - [Point 1]
  - [Point 2]
  - [Point 3]
• Conclusion: [Brief conclusion or takeaway]

Keep it under %d words.`, video.Title, strings.Join(parts, "\n"), maxSummaryWords)

	text, err := s.generateWithRetries(ctx, combinedPrompt)
	if err != nil {
		// Joining the chunk summaries beats dropping the work done so far
		log.Printf("Error creating final summary for video %s: %v", video.ID, err)
		return strings.Join(chunkSummaries, "\n\n"), nil
	}

	return text, nil
}

// TestConnection makes a trivial generation request to verify API access.
func (s *Summarizer) TestConnection(ctx context.Context) error {
	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{genai.NewPartFromText("Say 'API connection successful' in 5 words or less.")},
			genai.RoleUser,
		),
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return fmt.Errorf("Gemini API test failed: %w", err)
	}
	if strings.TrimSpace(result.Text()) == "" {
		return fmt.Errorf("Gemini API test returned empty response")
	}
	return nil
}

func buildSummaryPrompt(video *models.Video, transcript string) string {
	return fmt.Sprintf(`Please analyze the following YouTube video transcript and generate a concise summary:

Video Title: %s
Video URL: %s
Transcript: %s

Requirements:
1. Extract 3-5 key points from the video
2. Summarize the main topic and conclusions
3. Keep the summary under %d words
4. Use clear, bullet-point format
5. Focus on actionable insights and important information

Please provide the summary in the following format:
• Main Topic: [Brief description]
• Key Points:
  - [Point 1]
  - [Point 2]
  - [Point 3]
• Conclusion: [Brief conclusion or takeaway]`,
		video.Title, video.URL, transcript, maxSummaryWords)
}

// fallbackSummary is used when every generation attempt fails.
func fallbackSummary(video *models.Video) string {
	return fmt.Sprintf(`• Main Topic: %s
• Key Points:
  - Video published by %s
  - Duration: %s
  - Unable to generate AI summary due to technical issues
• Note: Please watch the video directly for full content`,
		video.Title, video.ChannelTitle, video.Duration)
}

// splitTranscript cuts the transcript into chunks, preferring to break at a
// sentence boundary when one falls near the end of a chunk.
func splitTranscript(transcript string, size int) []string {
	var chunks []string
	for len(transcript) > 0 {
		if len(transcript) <= size {
			chunks = append(chunks, transcript)
			break
		}

		chunk := cutAt(transcript, size)
		if idx := strings.LastIndex(chunk, ". "); idx > int(float64(size)*0.8) {
			chunk = chunk[:idx+1]
		}
		chunks = append(chunks, chunk)
		transcript = transcript[len(chunk):]
	}
	return chunks
}

// cutAt shortens s to at most n bytes without splitting a rune.
func cutAt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
