// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the service reads from the environment
type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	ServiceToken   string // empty disables the function-endpoint token check

	Battle     BattleConfig
	Classifier ClassifierConfig
	R2         R2Config
}

// BattleConfig tunes the simulator runner and its housekeeping jobs
type BattleConfig struct {
	TurnDelay          time.Duration
	StaleAfter         time.Duration
	ChallengeTTL       time.Duration
	StreamPollInterval time.Duration
}

type ClassifierConfig struct {
	URL          string
	Token        string
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
	Endpoint        string
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function (os.Getenv in production)
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:  getenv("DATABASE_URL"),
		Port:         withDefault(getenv("PORT"), "5200"),
		ServiceToken: getenv("SERVICE_TOKEN"),
		Classifier: ClassifierConfig{
			URL:   getenv("CLASSIFIER_URL"),
			Token: getenv("CLASSIFIER_TOKEN"),
		},
		R2: R2Config{
			AccountID:       getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      getenv("CDN_BASE_URL"),
			Endpoint:        getenv("R2_ENDPOINT"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	origins := withDefault(getenv("ALLOWED_ORIGINS"), "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	var err error
	// only the turn delay may be zero
	durations := []struct {
		key       string
		def       time.Duration
		allowZero bool
		dst       *time.Duration
	}{
		{"BATTLE_TURN_DELAY", 2 * time.Second, true, &cfg.Battle.TurnDelay},
		{"STALE_BATTLE_AFTER", 10 * time.Minute, false, &cfg.Battle.StaleAfter},
		{"CHALLENGE_TTL", 24 * time.Hour, false, &cfg.Battle.ChallengeTTL},
		{"STREAM_POLL_INTERVAL", time.Second, false, &cfg.Battle.StreamPollInterval},
		{"CLASSIFY_POLL_INTERVAL", 10 * time.Second, false, &cfg.Classifier.PollInterval},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(getenv(d.key), d.def, d.allowZero); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if cfg.Classifier.BatchSize, err = parseInt(getenv("CLASSIFY_BATCH_SIZE"), 20); err != nil {
		return nil, fmt.Errorf("invalid CLASSIFY_BATCH_SIZE: %w", err)
	}
	if cfg.Classifier.MaxAttempts, err = parseInt(getenv("CLASSIFY_MAX_ATTEMPTS"), 5); err != nil {
		return nil, fmt.Errorf("invalid CLASSIFY_MAX_ATTEMPTS: %w", err)
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(v string, def time.Duration, allowZero bool) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", v)
	}
	if d == 0 && !allowZero {
		return 0, fmt.Errorf("must be positive, got %q", v)
	}
	return d, nil
}

func parseInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
