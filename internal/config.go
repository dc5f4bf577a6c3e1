// Package internal holds the server configuration shared by the binaries.
package internal

import (
	"fmt"
	"time"
)

type Config struct {
	LogLevel            string        `env:"LOG_LEVEL,default=INFO"`
	Host                string        `env:"HOST,default=localhost"`
	Port                int           `env:"PORT,default=8080"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath       string        `env:"BLUGE_FILEPATH,default=./data/bluge"`
	LimitMessages       *int          `env:"LIMIT_MESSAGES"`
	CharReplacement     string        `env:"CHARACTER_REPLACEMENT,default=*"`
	AllowedOrigins      string        `env:"ALLOWED_ORIGINS,default=*"`
	JWTSecret           string        `env:"JWT_SECRET"`
	AuthTokenDuration   time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	SweepInterval       time.Duration `env:"SWEEP_INTERVAL,default=1m"`
	InactivityThreshold time.Duration `env:"INACTIVITY_THRESHOLD,default=5m"`
	PruneInterval       time.Duration `env:"PRUNE_INTERVAL,default=1h"`
	MessageRetention    time.Duration `env:"MESSAGE_RETENTION,default=24h"`
	MetricInterval      time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
