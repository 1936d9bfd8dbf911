package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type capturingClient struct {
	lastReq openai.ChatCompletionRequest
	calls   int
	reply   string
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

type flakyClient struct {
	failures int
	calls    int
	reply    string
}

func (c *flakyClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return openai.ChatCompletionResponse{}, errors.New("upstream hiccup")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

func sampleInput() Input {
	return Input{
		URL:  "https://example.com/tomatoes",
		Text: "Clay soil holds nutrients well but compacts easily. Water deeply twice a week.",
	}
}

func TestSummarize_WellFormed(t *testing.T) {
	cc := &capturingClient{reply: "- Clay soil holds water longer than sandy loam.\n- Deep watering keeps roots growing downward.\n- Mulch prevents surface crusting.\nTL;DR: Water deeply and mulch once the soil is warm."}
	s := &Summarizer{Client: cc, Model: "test-model", MaxOutputTokens: 512}

	sum, err := s.Summarize(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if len(sum.Bullets) != 3 {
		t.Fatalf("expected 3 bullets, got %d: %v", len(sum.Bullets), sum.Bullets)
	}
	if sum.Bullets[0] != "Clay soil holds water longer than sandy loam." {
		t.Fatalf("unexpected first bullet: %q", sum.Bullets[0])
	}
	if sum.TLDR != "Water deeply and mulch once the soil is warm." {
		t.Fatalf("unexpected TL;DR: %q", sum.TLDR)
	}

	if cc.lastReq.Model != "test-model" {
		t.Fatalf("expected model in request, got %q", cc.lastReq.Model)
	}
	if cc.lastReq.MaxTokens != 512 {
		t.Fatalf("expected max tokens in request, got %d", cc.lastReq.MaxTokens)
	}
	if len(cc.lastReq.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(cc.lastReq.Messages))
	}
	if got := cc.lastReq.Messages[0].Content; !strings.Contains(got, "6 bullets max") {
		t.Fatalf("expected system prompt to bound bullet count; got:\n%s", got)
	}
	user := cc.lastReq.Messages[1].Content
	if !strings.Contains(user, "Source: https://example.com/tomatoes") {
		t.Fatalf("expected source URL in user message; got:\n%s", user)
	}
	if !strings.Contains(user, "Content:\nClay soil holds nutrients") {
		t.Fatalf("expected page text in user message; got:\n%s", user)
	}
}

func TestSummarize_CapsBullets(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 9; i++ {
		sb.WriteString("- a bullet with some detail\n")
	}
	sb.WriteString("TL;DR: too many bullets.")
	cc := &capturingClient{reply: sb.String()}
	s := &Summarizer{Client: cc, Model: "test-model"}

	sum, err := s.Summarize(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if len(sum.Bullets) != MaxBullets {
		t.Fatalf("expected bullets capped at %d, got %d", MaxBullets, len(sum.Bullets))
	}
	if sum.TLDR != "too many bullets." {
		t.Fatalf("unexpected TL;DR: %q", sum.TLDR)
	}
}

func TestSummarize_MissingTLDRUsesLastProseLine(t *testing.T) {
	cc := &capturingClient{reply: "- First point.\n- Second point.\nCaching pays for itself quickly."}
	s := &Summarizer{Client: cc, Model: "test-model"}

	sum, err := s.Summarize(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if len(sum.Bullets) != 2 {
		t.Fatalf("expected 2 bullets, got %v", sum.Bullets)
	}
	if sum.TLDR != "Caching pays for itself quickly." {
		t.Fatalf("expected trailing prose promoted to TL;DR, got %q", sum.TLDR)
	}
}

func TestSummarize_BulletsOnlyPromotesFirstBullet(t *testing.T) {
	cc := &capturingClient{reply: "- Only observation worth keeping.\n- A second one."}
	s := &Summarizer{Client: cc, Model: "test-model"}

	sum, err := s.Summarize(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if sum.TLDR != "Only observation worth keeping." {
		t.Fatalf("expected first bullet as TL;DR fallback, got %q", sum.TLDR)
	}
	if len(sum.Bullets) != 2 {
		t.Fatalf("expected bullets kept, got %v", sum.Bullets)
	}
}

func TestSummarize_EmptyReplyFails(t *testing.T) {
	cc := &capturingClient{reply: "   \n\n  "}
	s := &Summarizer{Client: cc, Model: "test-model"}

	_, err := s.Summarize(context.Background(), sampleInput())
	if !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Op != "parse" {
		t.Fatalf("expected typed parse error, got %v", err)
	}
}

func TestSummarize_NoInputSkipsModel(t *testing.T) {
	cc := &capturingClient{reply: "- unused"}
	s := &Summarizer{Client: cc, Model: "test-model"}

	_, err := s.Summarize(context.Background(), Input{URL: "https://example.com/", Text: "   "})
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	if cc.calls != 0 {
		t.Fatalf("expected no model call for empty input, got %d", cc.calls)
	}
}

func TestSummarize_RetriesOnceAfterTransportError(t *testing.T) {
	slept := 0
	sleepFunc = func(ms int) { slept++ }
	defer func() { sleepFunc = nil }()

	fc := &flakyClient{failures: 1, reply: "- Recovered fine.\nTL;DR: retry worked."}
	s := &Summarizer{Client: fc, Model: "test-model"}

	sum, err := s.Summarize(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if fc.calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", fc.calls)
	}
	if slept != 1 {
		t.Fatalf("expected one backoff sleep, got %d", slept)
	}
	if sum.TLDR != "retry worked." {
		t.Fatalf("unexpected TL;DR after retry: %q", sum.TLDR)
	}
}

func TestSummarize_FailureAfterRetrySurfaces(t *testing.T) {
	sleepFunc = func(ms int) {}
	defer func() { sleepFunc = nil }()

	fc := &flakyClient{failures: 2}
	s := &Summarizer{Client: fc, Model: "test-model"}

	_, err := s.Summarize(context.Background(), sampleInput())
	if err == nil {
		t.Fatalf("expected error after exhausted retry")
	}
	if fc.calls != 2 {
		t.Fatalf("expected two attempts, got %d", fc.calls)
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Op != "complete" {
		t.Fatalf("expected typed completion error, got %v", err)
	}
	if !strings.Contains(err.Error(), "after retry") {
		t.Fatalf("expected retry context in message, got %q", err.Error())
	}
}

func TestSummarize_Unconfigured(t *testing.T) {
	s := &Summarizer{Model: "test-model"}
	if _, err := s.Summarize(context.Background(), sampleInput()); err == nil {
		t.Fatalf("expected error for missing client")
	}
	s = &Summarizer{Client: &capturingClient{}}
	if _, err := s.Summarize(context.Background(), sampleInput()); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func TestParseSummary_Variants(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		bullets []string
		tldr    string
	}{
		{
			name:    "numbered bullets",
			raw:     "1. First fact.\n2) Second fact.\nTL;DR: numbered lists work.",
			bullets: []string{"First fact.", "Second fact."},
			tldr:    "numbered lists work.",
		},
		{
			name:    "star and dot markers",
			raw:     "* One.\n• Two.\nTL;DR: markers vary.",
			bullets: []string{"One.", "Two."},
			tldr:    "markers vary.",
		},
		{
			name:    "bullet marked tldr",
			raw:     "- Fact.\n- TL;DR: marked as a bullet.",
			bullets: []string{"Fact."},
			tldr:    "marked as a bullet.",
		},
		{
			name:    "bare label with content on next line",
			raw:     "- Fact.\nTL;DR:\nLabel on its own line still works.",
			bullets: []string{"Fact."},
			tldr:    "Label on its own line still works.",
		},
		{
			name:    "label without colon",
			raw:     "- Fact.\nTLDR the colon is optional.",
			bullets: []string{"Fact."},
			tldr:    "the colon is optional.",
		},
		{
			name:    "mixed case label",
			raw:     "- Fact.\nTl;Dr: case does not matter.",
			bullets: []string{"Fact."},
			tldr:    "case does not matter.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sum, err := parseSummary(tc.raw)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if len(sum.Bullets) != len(tc.bullets) {
				t.Fatalf("expected %d bullets, got %v", len(tc.bullets), sum.Bullets)
			}
			for i := range tc.bullets {
				if sum.Bullets[i] != tc.bullets[i] {
					t.Fatalf("bullet %d: expected %q, got %q", i, tc.bullets[i], sum.Bullets[i])
				}
			}
			if sum.TLDR != tc.tldr {
				t.Fatalf("expected TL;DR %q, got %q", tc.tldr, sum.TLDR)
			}
		})
	}
}

func TestParseSummary_WordPrefixIsNotLabel(t *testing.T) {
	sum, err := parseSummary("- tldraw is a drawing tool.\nTL;DR: prefixes need a separator.")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sum.Bullets) != 1 || sum.Bullets[0] != "tldraw is a drawing tool." {
		t.Fatalf("expected tldraw bullet to survive, got %v", sum.Bullets)
	}
	if sum.TLDR != "prefixes need a separator." {
		t.Fatalf("unexpected TL;DR: %q", sum.TLDR)
	}
}
