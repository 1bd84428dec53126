package transcript

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(ctx context.Context, videoID string) (*Result, error) {
	p.calls++
	return p.result, p.err
}

func TestFetcherUsesFirstSuccessfulProvider(t *testing.T) {
	first := &fakeProvider{name: "first", result: &Result{Text: "hello", Language: "en"}}
	second := &fakeProvider{name: "second", result: &Result{Text: "unused", Language: "en"}}

	fetcher := NewFetcherWithProviders(first, second)

	result, err := fetcher.Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if result.Text != "hello" {
		t.Errorf("Text = %q, want hello", result.Text)
	}
	if result.Source != "first" {
		t.Errorf("Source = %q, want first", result.Source)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times, want 0", second.calls)
	}
}

func TestFetcherFallsThroughOnError(t *testing.T) {
	first := &fakeProvider{name: "first", err: ErrTranscriptsDisabled}
	second := &fakeProvider{name: "second", err: errors.New("boom")}
	third := &fakeProvider{name: "third", result: &Result{Text: "from third", Language: "en"}}

	fetcher := NewFetcherWithProviders(first, second, third)

	result, err := fetcher.Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if result.Source != "third" {
		t.Errorf("Source = %q, want third", result.Source)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("earlier providers called %d/%d times, want 1/1", first.calls, second.calls)
	}
}

func TestFetcherSkipsEmptyResults(t *testing.T) {
	first := &fakeProvider{name: "first", result: &Result{Text: "   ", Language: "en"}}
	second := &fakeProvider{name: "second", result: &Result{Text: "real text", Language: "en"}}

	fetcher := NewFetcherWithProviders(first, second)

	result, err := fetcher.Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if result.Source != "second" {
		t.Errorf("Source = %q, want second", result.Source)
	}
}

func TestFetcherExhaustedReturnsErrNoTranscript(t *testing.T) {
	first := &fakeProvider{name: "first", err: ErrVideoUnavailable}
	second := &fakeProvider{name: "second", err: errors.New("parse failure")}

	fetcher := NewFetcherWithProviders(first, second)

	_, err := fetcher.Fetch(context.Background(), "vid1")
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("Fetch() error = %v, want ErrNoTranscript", err)
	}
	// The aggregate error names each provider's failure
	if !strings.Contains(err.Error(), "first:") || !strings.Contains(err.Error(), "second:") {
		t.Errorf("aggregate error %q missing provider failures", err)
	}
}

func TestFetcherStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &fakeProvider{name: "first", err: errors.New("whatever")}
	second := &fakeProvider{name: "second", result: &Result{Text: "should not be reached"}}

	fetcher := NewFetcherWithProviders(first, second)

	_, err := fetcher.Fetch(ctx, "vid1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times after cancellation, want 0", second.calls)
	}
}
