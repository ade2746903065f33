package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/newsworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Run inputs
	SearchPhrase   string
	NewsCategory   string
	NumberOfMonths int

	// Site and browser
	SiteURL        string
	BrowserDriver  string
	ChromePath     string
	Headless       bool
	SelectorsFile  string
	ResultsPerPage int

	// Wait bounds
	SearchTimeout   time.Duration
	ItemTimeout     time.Duration
	LoadMoreTimeout time.Duration
	DetailTimeout   time.Duration
	ActionTimeout   time.Duration
	ImageTimeout    time.Duration

	// Output
	OutputDir    string
	ErrorLogFile string

	// Redis configuration, empty address disables publishing
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration, empty address disables the image cache
	MemcacheAddr  string
	ImageCacheTTL time.Duration

	// Environment
	Environment string
}

// LoadConfig loads run inputs from the work item (if any) and everything else
// from environment variables with defaults
func LoadConfig() (*Config, error) {
	var item *WorkItem
	if path := firstEnv("RC_WORKITEM_INPUT_PATH", "WORKITEM_INPUT_PATH"); path != "" {
		loaded, err := LoadWorkItem(path)
		if err != nil {
			return nil, err
		}
		item = loaded
	}

	input := func(name, envKey string) string {
		if v, ok := item.Variable(name); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(os.Getenv(envKey))
	}

	months := input(VarNumberOfMonths, "NUMBER_OF_MONTHS")
	if months == "" {
		return nil, apperrors.NewConfiguration(VarNumberOfMonths+" is required", nil)
	}
	numberOfMonths, err := strconv.Atoi(months)
	if err != nil {
		return nil, apperrors.NewConfiguration(fmt.Sprintf("%s must be an integer, got %q", VarNumberOfMonths, months), err)
	}

	ints := map[string]int{}
	for key, def := range map[string]string{
		"RESULTS_PER_PAGE":          "10",
		"SEARCH_TIMEOUT_SECONDS":    "60",
		"ITEM_TIMEOUT_SECONDS":      "120",
		"LOAD_MORE_TIMEOUT_SECONDS": "120",
		"DETAIL_TIMEOUT_SECONDS":    "60",
		"ACTION_TIMEOUT_SECONDS":    "200",
		"IMAGE_TIMEOUT_SECONDS":     "30",
		"REDIS_DB":                  "0",
		"REDIS_STREAM_MAX_LENGTH":   "1000",
		"IMAGE_CACHE_TTL_SECONDS":   "86400",
	} {
		raw := getEnv(key, def)
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("%s must be an integer, got %q", key, raw), err)
		}
		ints[key] = n
	}

	outputDir := getEnv("OUTPUT_DIR", "output")
	headless, err := strconv.ParseBool(getEnv("HEADLESS", "true"))
	if err != nil {
		return nil, apperrors.NewConfiguration("HEADLESS must be a boolean", err)
	}

	return &Config{
		SearchPhrase:         input(VarSearchPhrase, "SEARCH_PHRASE"),
		NewsCategory:         input(VarNewsCategory, "NEWS_CATEGORY"),
		NumberOfMonths:       numberOfMonths,
		SiteURL:              getEnv("SITE_URL", "https://gothamist.com/"),
		BrowserDriver:        getEnv("BROWSER_DRIVER", "chrome"),
		ChromePath:           os.Getenv("CHROME_PATH"),
		Headless:             headless,
		SelectorsFile:        os.Getenv("SELECTORS_FILE"),
		ResultsPerPage:       ints["RESULTS_PER_PAGE"],
		SearchTimeout:        seconds(ints["SEARCH_TIMEOUT_SECONDS"]),
		ItemTimeout:          seconds(ints["ITEM_TIMEOUT_SECONDS"]),
		LoadMoreTimeout:      seconds(ints["LOAD_MORE_TIMEOUT_SECONDS"]),
		DetailTimeout:        seconds(ints["DETAIL_TIMEOUT_SECONDS"]),
		ActionTimeout:        seconds(ints["ACTION_TIMEOUT_SECONDS"]),
		ImageTimeout:         seconds(ints["IMAGE_TIMEOUT_SECONDS"]),
		OutputDir:            outputDir,
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", filepath.Join(outputDir, "errors.log")),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              ints["REDIS_DB"],
		RedisStream:          getEnv("REDIS_STREAM", "news_articles"),
		RedisStreamMaxLength: ints["REDIS_STREAM_MAX_LENGTH"],
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		ImageCacheTTL:        seconds(ints["IMAGE_CACHE_TTL_SECONDS"]),
		Environment:          getEnv("NEWSWORKER_ENVIRONMENT", "development"),
	}, nil
}

// Validate checks the run inputs and bounds
func (c *Config) Validate() error {
	if c.SearchPhrase == "" {
		return apperrors.NewConfiguration(VarSearchPhrase+" is required", nil)
	}
	if c.NumberOfMonths < 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("%s must be >= 0, got %d", VarNumberOfMonths, c.NumberOfMonths), nil)
	}
	if c.BrowserDriver != "chrome" && c.BrowserDriver != "static" {
		return apperrors.NewConfiguration(fmt.Sprintf("unknown BROWSER_DRIVER %q", c.BrowserDriver), nil)
	}
	if c.ResultsPerPage <= 0 {
		return apperrors.NewConfiguration("RESULTS_PER_PAGE must be positive", nil)
	}
	for name, d := range map[string]time.Duration{
		"SEARCH_TIMEOUT_SECONDS":    c.SearchTimeout,
		"ITEM_TIMEOUT_SECONDS":      c.ItemTimeout,
		"LOAD_MORE_TIMEOUT_SECONDS": c.LoadMoreTimeout,
		"DETAIL_TIMEOUT_SECONDS":    c.DetailTimeout,
		"ACTION_TIMEOUT_SECONDS":    c.ActionTimeout,
		"IMAGE_TIMEOUT_SECONDS":     c.ImageTimeout,
	} {
		if d <= 0 {
			return apperrors.NewConfiguration(name+" must be positive", nil)
		}
	}
	if c.OutputDir == "" {
		return apperrors.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
