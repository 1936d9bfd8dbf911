package app

import (
	"errors"
	"fmt"
	"time"
)

// Defaults shared between flag parsing and the file config overlay. The
// overlay needs to distinguish "left at default" from "explicitly set", so
// these live here rather than inline in main.
const (
	DefaultModel           = "gpt-4o-mini"
	DefaultMaxOutputTokens = 1200
	DefaultMaxTextChars    = 18000
	DefaultFetchTimeout    = 20 * time.Second
	DefaultWaitTimeout     = 15 * time.Second
	DefaultLLMTimeout      = 60 * time.Second
	DefaultCacheDir        = "cache"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds runtime configuration for the application.
type Config struct {
	URL string

	// Fetching
	ForceJS      bool
	WaitCSS      string
	FetchTimeout time.Duration
	WaitTimeout  time.Duration
	UserAgent    string
	MaxBodyBytes int64

	// LLM
	LLMBaseURL      string
	LLMModel        string
	LLMAPIKey       string
	MaxOutputTokens int
	MaxTextChars    int
	LLMTimeout      time.Duration

	// Output
	Print         bool
	OutputPDFPath string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}

// ErrMissingAPIKey reports that no API key was available at startup.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// ConfigError marks configuration problems so main can map them to the
// dedicated exit code.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %v", e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }
