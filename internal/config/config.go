// Package config loads process configuration once at startup. The bot
// credential and the admin identity are both required; a missing value is
// fatal before any pipeline component runs. The loaded Config is immutable
// and passed explicitly into constructors.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"reelbot"
	"reelbot/internal/fetch"
	"reelbot/internal/locate"
	"reelbot/internal/pipeline"
	"reelbot/internal/store"
)

const (
	DefaultTokenFile = "bot-token.txt"
	DefaultAdminFile = "adm.txt"

	EnvToken = "REELBOT_TOKEN"
	EnvAdmin = "REELBOT_ADMIN"

	StoreBackendFile = "file"
	StoreBackendBolt = "bolt"
)

var (
	ErrMissingToken = errors.New("bot token is required (set " + EnvToken + " or provide the token file)")
	ErrMissingAdmin = errors.New("admin username is required (set " + EnvAdmin + " or provide the admin file)")
	ErrBadBackend   = errors.New("store backend must be \"file\" or \"bolt\"")
)

type Config struct {
	Token string
	Admin string

	MirrorHost   string
	DataDir      string
	StoreBackend string

	PageLoadTimeout   time.Duration
	FetchTimeout      time.Duration
	LocateConcurrency int
}

// Load reads the bot token and admin identity from the environment, falling
// back to the given files, and fills every other field with its default.
func Load(tokenFile, adminFile string) (*Config, error) {
	token, err := fromEnvOrFile(EnvToken, tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingToken, err)
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	admin, err := fromEnvOrFile(EnvAdmin, adminFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingAdmin, err)
	}
	admin = store.NormalizeHandle(admin)
	if admin == "" {
		return nil, ErrMissingAdmin
	}
	return &Config{
		Token:             token,
		Admin:             admin,
		MirrorHost:        reelbot.DefaultMirrorHost,
		DataDir:           ".",
		StoreBackend:      StoreBackendFile,
		PageLoadTimeout:   locate.DefaultPageLoadTimeout,
		FetchTimeout:      fetch.DefaultTimeout,
		LocateConcurrency: pipeline.DefaultLocateConcurrency,
	}, nil
}

// Validate checks the fields a caller may have overridden after Load.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendFile, StoreBackendBolt:
	default:
		return fmt.Errorf("%w: got %q", ErrBadBackend, c.StoreBackend)
	}
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.Admin == "" {
		return ErrMissingAdmin
	}
	return nil
}

// fromEnvOrFile prefers the environment variable, then the file. A missing
// file is not an error on its own; the caller decides whether an empty value
// is fatal.
func fromEnvOrFile(env, path string) (string, error) {
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
