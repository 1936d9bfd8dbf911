package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pagesum/pagesum/internal/cache"
	"github.com/pagesum/pagesum/internal/extract"
	"github.com/pagesum/pagesum/internal/fetch"
	"github.com/pagesum/pagesum/internal/llm"
	"github.com/pagesum/pagesum/internal/summarize"
)

// pageFetcher abstracts the fetch pipeline behind the minimal method the app
// uses, which keeps this package decoupled from the exact fetcher shape and
// simplifies testing.
type pageFetcher interface {
	Do(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.Result, error)
}

// textSummarizer is the summarization seam used for tests.
type textSummarizer interface {
	Summarize(ctx context.Context, in summarize.Input) (summarize.Summary, error)
}

type App struct {
	cfg        Config
	fetcher    pageFetcher
	summarizer textSummarizer
	store      cache.Store
	disk       *cache.DiskStore
	out        io.Writer
}

func New(cfg Config) (*App, error) {
	// Build OpenAI-compatible config
	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	transportCfg.HTTPClient = newHTTPClient(cfg.LLMTimeout)
	client := openai.NewClientWithConfig(transportCfg)

	// The selector wait can never outlive the page deadline.
	if cfg.WaitTimeout <= 0 || cfg.WaitTimeout > cfg.FetchTimeout {
		cfg.WaitTimeout = cfg.FetchTimeout
	}

	a := &App{cfg: cfg, out: os.Stdout}
	a.fetcher = &fetch.Fetcher{
		Plain: &fetch.Client{
			HTTPClient:   newHTTPClient(cfg.FetchTimeout),
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.FetchTimeout,
			MaxBodyBytes: cfg.MaxBodyBytes,
		},
		Browser: &fetch.Browser{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.FetchTimeout,
			WaitTimeout: cfg.WaitTimeout,
		},
	}
	a.summarizer = &summarize.Summarizer{
		Client:          &llm.OpenAIProvider{Inner: client},
		Model:           cfg.LLMModel,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}

	if cfg.CacheDir != "" {
		// Apply cache invalidation controls
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			// Purge by age; ignore errors to avoid failing startup
			_, _ = cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		disk := &cache.DiskStore{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		a.disk = disk
		a.store = disk
	} else {
		a.store = cache.NewMemoryStore()
	}

	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

func (a *App) Run(ctx context.Context) error {
	started := time.Now()

	// 1) Cache lookup. A forced headless run must observe the live page, so
	//    the lookup is skipped entirely rather than served stale.
	if !a.cfg.ForceJS {
		entry, ok, err := a.store.Get(ctx, a.cfg.URL)
		if err != nil {
			a.degrade(err)
		} else if ok {
			log.Info().Str("key", entry.Key).Msg("cache hit")
			return a.emit(entry.Record)
		}
	}

	// 2) Fetch markup, plain-first with headless fallback.
	res, err := a.fetcher.Do(ctx, a.cfg.URL, fetch.Options{ForceJS: a.cfg.ForceJS, WaitCSS: a.cfg.WaitCSS})
	if err != nil {
		return err
	}
	log.Debug().Str("mode", string(res.Mode)).Dur("took", res.Elapsed).Int("bytes", len(res.HTML)).Msg("fetched page")

	// 3) Extract readable text and cap what goes to the model.
	doc := extract.FromHTML([]byte(res.HTML), res.URL)
	text := extract.Truncate(doc.Text, a.cfg.MaxTextChars)

	// 4) Summarize under its own deadline.
	llmCtx := ctx
	if a.cfg.LLMTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.cfg.LLMTimeout)
		defer cancel()
	}
	sum, err := a.summarizer.Summarize(llmCtx, summarize.Input{URL: res.URL, Text: text})
	if err != nil {
		return err
	}

	// 5) Record the result and persist both artifacts. A forced run lands in
	//    the cache through the same write path, overwriting the prior entry.
	rec := cache.Record{
		URL:        res.URL,
		Title:      pickNonEmpty(doc.Title, "(no title)"),
		FetchMode:  string(res.Mode),
		Model:      a.cfg.LLMModel,
		ElapsedSec: math.Round(time.Since(started).Seconds()*100) / 100,
		Bullets:    sum.Bullets,
		TLDR:       sum.TLDR,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.Put(ctx, a.cfg.URL, []byte(res.HTML), rec); err != nil {
		a.degrade(err)
		_ = a.store.Put(ctx, a.cfg.URL, []byte(res.HTML), rec)
	}

	return a.emit(rec)
}

// degrade switches to a process-lifetime store after a cache failure so the
// run can still finish.
func (a *App) degrade(err error) {
	log.Warn().Err(err).Str("dir", a.cfg.CacheDir).Msg("disk cache unavailable; continuing in memory")
	a.store = cache.NewMemoryStore()
	a.disk = nil
}

// emit reports where the summary landed and optionally prints it. With the
// disk cache degraded there is no file to point at, so the summary is always
// printed for the run not to be silent.
func (a *App) emit(rec cache.Record) error {
	if a.disk != nil {
		fmt.Fprintf(a.out, "Saved: %s\n", a.disk.SummaryPath(rec.URL))
	}
	if a.cfg.Print || a.disk == nil {
		fmt.Fprintf(a.out, "\n== Summary ==\n%s\n", renderSummary(rec))
	}
	if a.cfg.OutputPDFPath != "" {
		if err := writeSummaryPDF(rec, a.cfg.OutputPDFPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote summary pdf")
	}
	return nil
}

func renderSummary(rec cache.Record) string {
	var sb strings.Builder
	for _, b := range rec.Bullets {
		sb.WriteString("- ")
		sb.WriteString(b)
		sb.WriteString("\n")
	}
	sb.WriteString("TL;DR: ")
	sb.WriteString(rec.TLDR)
	return sb.String()
}

func pickNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
