package app

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("OPENAI_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.MaxOutputTokens == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("MAX_OUTPUT_TOKENS"))); err == nil && n > 0 {
			cfg.MaxOutputTokens = n
		}
	}

	if cfg.CacheDir == "" {
		// Support both PAGESUM_CACHE_DIR and CACHE_DIR; prefer the scoped name
		v := os.Getenv("PAGESUM_CACHE_DIR")
		if v == "" {
			v = os.Getenv("CACHE_DIR")
		}
		cfg.CacheDir = v
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("PAGESUM_USER_AGENT")
	}

	// Optional durations
	setDuration := func(dst *time.Duration, envKey string) {
		if *dst != 0 {
			return
		}
		if s := os.Getenv(envKey); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.FetchTimeout, "PAGESUM_TIMEOUT")
	setDuration(&cfg.WaitTimeout, "PAGESUM_WAIT_TIMEOUT")
	setDuration(&cfg.LLMTimeout, "PAGESUM_LLM_TIMEOUT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	// Booleans
	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.ForceJS, "FORCE_JS")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

// LoadEnvFiles loads one or more dotenv files of KEY=VALUE pairs into the
// process environment. Variables already set to a non-empty value win over
// the files; among the files, later ones override earlier ones. Lines
// starting with '#' and blank lines are ignored. Values are not expanded.
func LoadEnvFiles(paths ...string) error {
	fromFiles := map[string]bool{}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := loadEnvFile(p, fromFiles); err != nil {
			// Missing files are not fatal; continue to next path
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func loadEnvFile(path string, fromFiles map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Simple KEY=VALUE parser; stops at first '='
		key, val, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" {
			// ignore malformed lines silently
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		// strip optional surrounding quotes
		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}
		if cur := os.Getenv(key); cur != "" && !fromFiles[key] {
			continue
		}
		fromFiles[key] = true
		_ = os.Setenv(key, val)
	}
	return scanner.Err()
}
