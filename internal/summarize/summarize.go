package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pagesum/pagesum/internal/llm"
)

// MaxBullets caps the number of bullet points kept from the model output.
const MaxBullets = 6

const systemPrompt = "Be concise. 6 bullets max. Include 1 line TL;DR. Use plain text."

// Summary is the structured result of a summarization call.
type Summary struct {
	Bullets []string
	TLDR    string
}

// Input bundles everything needed to summarize one page.
type Input struct {
	URL  string
	Text string
}

// Summarizer calls the LLM to produce a short bullet summary of page text.
type Summarizer struct {
	Client          llm.Client
	Model           string
	MaxOutputTokens int
}

// ErrNoInput indicates extraction produced no text worth summarizing.
var ErrNoInput = errors.New("nothing to summarize")

// ErrEmptyOutput indicates the model produced no usable summary text.
var ErrEmptyOutput = errors.New("model returned no usable summary")

// Error wraps a summarization failure with the stage it occurred in.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("summarize %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Summarize requests a plain-text bullet summary and parses it into a
// Summary. The model is nudged toward short output; whatever comes back is
// normalized so callers always see at most MaxBullets bullets and exactly
// one TL;DR line.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (Summary, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return Summary{}, errors.New("summarizer not configured")
	}
	if strings.TrimSpace(in.Text) == "" {
		return Summary{}, &Error{Op: "prepare", Err: ErrNoInput}
	}

	req := openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(in)},
		},
		Temperature: 0.1,
		N:           1,
	}
	if s.MaxOutputTokens > 0 {
		req.MaxTokens = s.MaxOutputTokens
	}

	// Transient-error retry: one short backoff attempt before failing.
	resp, err := s.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		if sleeper := sleepFunc; sleeper != nil {
			sleeper(100)
		} else {
			defaultSleep(100)
		}
		resp, err = s.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return Summary{}, &Error{Op: "complete", Err: fmt.Errorf("after retry: %w", err)}
		}
	}
	if len(resp.Choices) == 0 {
		return Summary{}, &Error{Op: "parse", Err: ErrEmptyOutput}
	}
	out, err := parseSummary(resp.Choices[0].Message.Content)
	if err != nil {
		return Summary{}, &Error{Op: "parse", Err: err}
	}
	return out, nil
}

func buildUserMessage(in Input) string {
	var sb strings.Builder
	sb.WriteString("Source: ")
	sb.WriteString(in.URL)
	sb.WriteString("\n\nContent:\n")
	sb.WriteString(in.Text)
	return sb.String()
}

// parseSummary normalizes free-form model output into bullets and a TL;DR.
// Bullet markers and an explicit TL;DR label are honored when present; plain
// prose lines are pressed into service otherwise so a cooperative model never
// yields an empty summary.
func parseSummary(raw string) (Summary, error) {
	var bullets, prose []string
	tldr := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		content, isBullet := cutBullet(line)
		if !isBullet {
			content = line
		}
		if rest, ok := cutTLDR(content); ok {
			if tldr == "" && rest != "" {
				tldr = rest
			}
			continue
		}
		if isBullet {
			bullets = append(bullets, content)
		} else {
			prose = append(prose, content)
		}
	}

	if tldr == "" && len(prose) > 0 {
		tldr = prose[len(prose)-1]
		prose = prose[:len(prose)-1]
	}
	if len(bullets) == 0 {
		bullets = prose
	}
	if len(bullets) > MaxBullets {
		bullets = bullets[:MaxBullets]
	}
	if tldr == "" {
		if len(bullets) == 0 {
			return Summary{}, ErrEmptyOutput
		}
		tldr = bullets[0]
	}
	return Summary{Bullets: bullets, TLDR: tldr}, nil
}

// cutBullet strips a leading list marker, covering "-", "*", "•" and
// numbered forms like "1." or "2)".
func cutBullet(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest), true
		}
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return strings.TrimSpace(line[i+2:]), true
	}
	return line, false
}

// cutTLDR recognizes a TL;DR label and returns the text after it. A bare
// label with the content on the following line returns ok with empty text.
func cutTLDR(line string) (string, bool) {
	lower := strings.ToLower(line)
	for _, prefix := range []string{"tl;dr", "tldr"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := line[len(prefix):]
		// Require a separator so words like "tldraw" do not match.
		if rest != "" && rest[0] != ':' && rest[0] != '-' && rest[0] != ' ' {
			continue
		}
		rest = strings.TrimLeft(rest, ":- ")
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// sleepFunc allows tests to inject a deterministic sleep hook measured in milliseconds.
// When nil, defaultSleep is used.
var sleepFunc func(ms int)

func defaultSleep(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
