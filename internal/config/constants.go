package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Session store retry policy. go-redis retries at the connection level too.
const (
	StoreMaxRetries   = 2
	StoreRetryBackoff = 100 * time.Millisecond
)

// Kakao callback delivery retries, bounded by the callback TTL.
const (
	CallbackMaxRetries   = 1
	CallbackRetryBackoff = 300 * time.Millisecond
)

// Per-user advisory lock
const (
	UserLockTTL      = 40 * time.Second
	UserLockAttempts = 3
	UserLockWait     = 150 * time.Millisecond
)

// Stage transition thresholds for the counting policy
const (
	StageMinQuestions      = 2
	StageMaxQuestions      = 4
	SubstantiveAnswerRunes = 50
)
