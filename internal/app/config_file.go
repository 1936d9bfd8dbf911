package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
// Durations are numeric nanoseconds in YAML/JSON, matching the zero-value
// overlay semantics of ApplyFileConfig.
type FileConfig struct {
	LLM struct {
		BaseURL string        `yaml:"base" json:"base"`
		Model   string        `yaml:"model" json:"model"`
		APIKey  string        `yaml:"key" json:"key"`
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	Fetch struct {
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		WaitTimeout time.Duration `yaml:"waitTimeout" json:"waitTimeout"`
		UA          string        `yaml:"ua" json:"ua"`
	} `yaml:"fetch" json:"fetch"`

	Max struct {
		OutputTokens int `yaml:"outputTokens" json:"outputTokens"`
		TextChars    int `yaml:"textChars" json:"textChars"`
	} `yaml:"max" json:"max"`

	Output struct {
		Print bool   `yaml:"print" json:"print"`
		PDF   string `yaml:"pdf" json:"pdf"`
	} `yaml:"output" json:"output"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already
// have been parsed; this function lets file config supply defaults while
// preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if (cfg.LLMModel == "" || cfg.LLMModel == DefaultModel) && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if (cfg.LLMTimeout == 0 || cfg.LLMTimeout == DefaultLLMTimeout) && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}

	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == DefaultFetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if (cfg.WaitTimeout == 0 || cfg.WaitTimeout == DefaultWaitTimeout) && fc.Fetch.WaitTimeout > 0 {
		cfg.WaitTimeout = fc.Fetch.WaitTimeout
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.Fetch.UA != "" {
		cfg.UserAgent = fc.Fetch.UA
	}

	if (cfg.MaxOutputTokens == 0 || cfg.MaxOutputTokens == DefaultMaxOutputTokens) && fc.Max.OutputTokens > 0 {
		cfg.MaxOutputTokens = fc.Max.OutputTokens
	}
	if (cfg.MaxTextChars == 0 || cfg.MaxTextChars == DefaultMaxTextChars) && fc.Max.TextChars > 0 {
		cfg.MaxTextChars = fc.Max.TextChars
	}

	if !cfg.Print && fc.Output.Print {
		cfg.Print = true
	}
	if cfg.OutputPDFPath == "" && fc.Output.PDF != "" {
		cfg.OutputPDFPath = fc.Output.PDF
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if trim(cfg.URL) == "" {
		return &ConfigError{Err: errors.New("url argument is required")}
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Err: fmt.Errorf("url must be absolute http(s): %q", cfg.URL)}
	}
	if trim(cfg.LLMAPIKey) == "" {
		return &ConfigError{Err: ErrMissingAPIKey}
	}
	if trim(cfg.LLMModel) == "" {
		return &ConfigError{Err: errors.New("llm.model is required (or set OPENAI_MODEL)")}
	}
	if cfg.MaxOutputTokens < 0 || cfg.MaxTextChars < 0 {
		return &ConfigError{Err: errors.New("negative limits are not allowed")}
	}
	return nil
}

func trim(s string) string {
	i := 0
	j := len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\n' || s[j-1] == '\r') {
		j--
	}
	return s[i:j]
}
