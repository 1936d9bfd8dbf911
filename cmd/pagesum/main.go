package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pagesum/pagesum/internal/app"
	"github.com/pagesum/pagesum/internal/fetch"
	"github.com/pagesum/pagesum/internal/summarize"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Dotenv files are read before flag registration so the env-backed flag
	// defaults below observe them.
	if err := app.LoadEnvFiles(".env", ".env.local"); err != nil {
		log.Warn().Err(err).Msg("dotenv load failed")
	}

	var (
		forceJS      bool
		waitCSS      string
		printOut     bool
		pdfPath      string
		configPath   string
		llmBaseURL   string
		llmModel     string
		llmKey       string
		llmTokens    int
		llmTimeout   time.Duration
		fetchTimeout time.Duration
		waitTimeout  time.Duration
		userAgent    string
		maxTextChars int
		maxBodyBytes int64
		cacheDir     string
		cacheMaxAge  time.Duration
		cacheClear   bool
		cacheStrict  bool
		verbose      bool
		showVersion  bool
	)

	flag.BoolVar(&forceJS, "force-js", false, "Always render with the headless browser, bypassing the cache lookup")
	flag.StringVar(&waitCSS, "wait-css", "", "CSS selector to wait for before reading the rendered page")
	flag.BoolVar(&printOut, "print", false, "Print the summary to stdout in addition to saving it")
	flag.StringVar(&pdfPath, "pdf", "", "Optional path to also write the summary as a PDF")
	flag.StringVar(&configPath, "config", "", "Optional YAML or JSON config file; flags and env take precedence")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("OPENAI_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", envOr("OPENAI_MODEL", app.DefaultModel), "Model name")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("OPENAI_API_KEY"), "API key for the OpenAI-compatible server")
	flag.IntVar(&llmTokens, "llm.maxTokens", envOrInt("MAX_OUTPUT_TOKENS", app.DefaultMaxOutputTokens), "Maximum completion tokens")
	flag.DurationVar(&llmTimeout, "llm.timeout", envOrDur("PAGESUM_LLM_TIMEOUT", app.DefaultLLMTimeout), "Deadline for the summarization call")
	flag.DurationVar(&fetchTimeout, "timeout", envOrDur("PAGESUM_TIMEOUT", app.DefaultFetchTimeout), "Deadline for fetching the page")
	flag.DurationVar(&waitTimeout, "wait-timeout", envOrDur("PAGESUM_WAIT_TIMEOUT", app.DefaultWaitTimeout), "Deadline for the -wait-css selector; capped at -timeout")
	flag.StringVar(&userAgent, "ua", envOr("PAGESUM_USER_AGENT", app.DefaultUserAgent), "User-Agent header for page fetches")
	flag.IntVar(&maxTextChars, "max.textChars", app.DefaultMaxTextChars, "Maximum extracted characters sent to the model")
	flag.Int64Var(&maxBodyBytes, "max.bodyBytes", 0, "Maximum HTML bytes read from a page (0 uses the built-in limit)")
	flag.StringVar(&cacheDir, "cache.dir", envOr("PAGESUM_CACHE_DIR", envOr("CACHE_DIR", app.DefaultCacheDir)), "Cache directory path; empty keeps results in memory only")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", envOrDur("CACHE_MAX_AGE", 0), "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("pagesum %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := app.Config{
		URL:              flag.Arg(0),
		ForceJS:          forceJS,
		WaitCSS:          waitCSS,
		FetchTimeout:     fetchTimeout,
		WaitTimeout:      waitTimeout,
		UserAgent:        userAgent,
		MaxBodyBytes:     maxBodyBytes,
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		MaxOutputTokens:  llmTokens,
		MaxTextChars:     maxTextChars,
		LLMTimeout:       llmTimeout,
		Print:            printOut,
		OutputPDFPath:    pdfPath,
		CacheDir:         cacheDir,
		CacheMaxAge:      cacheMaxAge,
		CacheClear:       cacheClear,
		CacheStrictPerms: cacheStrict,
		Verbose:          verbose,
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config file")
			os.Exit(2)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitCode(err))
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: pagesum [flags] URL\n\nFetch a web page, render it headlessly when needed, and summarize it.\n\nFlags:\n")
	flag.PrintDefaults()
}

// exitCode separates failure classes so scripts can tell misconfiguration (2)
// from fetch failures (3) and summarization failures (4).
func exitCode(err error) int {
	var cfgErr *app.ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return 3
	}
	var sumErr *summarize.Error
	if errors.As(err, &sumErr) {
		return 4
	}
	return 1
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envOrDur(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
