package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eventlog-tools/distqual/internal/platform/env"
)

// Config holds the connection settings for the S3-compatible shared store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("DISTQUAL_STORE_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  env.String("DISTQUAL_STORE_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("DISTQUAL_STORE_ACCESS_KEY", "distqual"),
		SecretKey: env.String("DISTQUAL_STORE_SECRET_KEY", "distqualstore"),
		Region:    env.String("DISTQUAL_STORE_REGION", "us-east-1"),
		UseSSL:    useSSL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
