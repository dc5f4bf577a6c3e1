package e2e

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_ADDR points at a running chat server, e.g. "localhost:8080".
	// When empty the scenarios skip, so `go test ./...` stays green without
	// a live deployment.
	ServerAddr string `envconfig:"SERVER_ADDR"`
	// E2E_DEBUG_JSON allows dumping full HTTP request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
