package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/util"
)

const (
	ResponseModeStructured = "structured"
	ResponseModePlain      = "plain"

	StagePolicyCounting = "counting"
	StagePolicyModel    = "model"
)

var (
	validResponseModes = []string{ResponseModeStructured, ResponseModePlain}
	validStagePolicies = []string{StagePolicyCounting, StagePolicyModel}
	validTracks        = []string{"student", "teacher", "general"}
	validLogLevels     = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	Port                 int     `env:"PORT" envDefault:"8080"`
	DatabaseURL          string  `env:"DATABASE_URL,required"`
	RedisURL             string  `env:"REDIS_URL,required"`
	KakaoSignatureSecret string  `env:"KAKAO_SIGNATURE_SECRET"`
	StatsPasswordHash    string  `env:"STATS_PASSWORD_HASH"`
	EncryptionKey        string  `env:"ENCRYPTION_KEY"`
	UpstageAPIKey        string  `env:"UPSTAGE_API_KEY"`
	UpstageAPIURL        string  `env:"UPSTAGE_API_URL" envDefault:"https://api.upstage.ai/v1/chat/completions"`
	UpstageModel         string  `env:"UPSTAGE_MODEL" envDefault:"solar-pro2"`
	LLMMaxTokens         int     `env:"LLM_MAX_TOKENS" envDefault:"400"`
	LLMTemperature       float64 `env:"LLM_TEMPERATURE" envDefault:"0.8"`
	LLMTimeoutSeconds    int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"25"`
	LLMMaxRetries        int     `env:"LLM_MAX_RETRIES" envDefault:"2"`
	LLMRetryBackoffMS    int     `env:"LLM_RETRY_BACKOFF_MS" envDefault:"1000"`
	LLMResponseMode      string  `env:"LLM_RESPONSE_MODE" envDefault:"structured"`
	StagePolicy          string  `env:"STAGE_POLICY" envDefault:"counting"`
	DefaultTrack         string  `env:"DEFAULT_TRACK" envDefault:"student"`
	SessionTTLHours      int     `env:"SESSION_TTL_HOURS" envDefault:"24"`
	CacheTTLSeconds      int     `env:"SESSION_CACHE_TTL_SECONDS" envDefault:"300"`
	ResumeCheckMinutes   int     `env:"RESUME_CHECK_MINUTES" envDefault:"60"`
	TimeLimitMinutes     int     `env:"SESSION_TIME_LIMIT_MINUTES" envDefault:"18"`
	UserRateLimitPerMin  int     `env:"USER_RATE_LIMIT_PER_MIN" envDefault:"20"`
	UserLockEnabled      bool    `env:"USER_LOCK_ENABLED" envDefault:"true"`
	CallbackEnabled      bool    `env:"CALLBACK_ENABLED" envDefault:"true"`
	CallbackTTLSeconds   int     `env:"CALLBACK_TTL_SECONDS" envDefault:"55"`
	ArchiveRetentionDays int     `env:"ARCHIVE_RETENTION_DAYS" envDefault:"180"`
	LogLevel             string  `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) LLMRetryBackoff() time.Duration {
	return time.Duration(c.LLMRetryBackoffMS) * time.Millisecond
}

func (c *Config) ResumeCheckAfter() time.Duration {
	return time.Duration(c.ResumeCheckMinutes) * time.Minute
}

func (c *Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitMinutes) * time.Minute
}

func (c *Config) CallbackTTL() time.Duration {
	return time.Duration(c.CallbackTTLSeconds) * time.Second
}

func (c *Config) ArchiveRetention() time.Duration {
	return time.Duration(c.ArchiveRetentionDays) * 24 * time.Hour
}

func (c *Config) Validate(isProduction bool) error {
	if !util.IsValidEnum(c.LLMResponseMode, validResponseModes) {
		return fmt.Errorf("LLM_RESPONSE_MODE must be one of %s", strings.Join(validResponseModes, ", "))
	}
	if !util.IsValidEnum(c.StagePolicy, validStagePolicies) {
		return fmt.Errorf("STAGE_POLICY must be one of %s", strings.Join(validStagePolicies, ", "))
	}
	if !util.IsValidEnum(c.DefaultTrack, validTracks) {
		return fmt.Errorf("DEFAULT_TRACK must be one of %s", strings.Join(validTracks, ", "))
	}
	if !util.IsValidEnum(c.LogLevel, validLogLevels) {
		return fmt.Errorf("LOG_LEVEL must be one of %s", strings.Join(validLogLevels, ", "))
	}
	if c.StagePolicy == StagePolicyModel && c.LLMResponseMode == ResponseModePlain {
		return fmt.Errorf("STAGE_POLICY=model requires LLM_RESPONSE_MODE=structured")
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	}

	if c.StatsPasswordHash != "" {
		if !strings.HasPrefix(c.StatsPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.StatsPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.StatsPasswordHash, "$2y$") {
			return fmt.Errorf("STATS_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		}
	}

	if isProduction {
		if c.KakaoSignatureSecret == "" {
			log.Warn().Msg("KAKAO_SIGNATURE_SECRET is empty in production: webhook signature verification disabled")
		}
		if c.UpstageAPIKey == "" {
			log.Warn().Msg("UPSTAGE_API_KEY is empty in production: every reply will use fallback questions")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: archived conversations will not be encrypted at rest")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
