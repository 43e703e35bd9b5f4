package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/tdbstream/s3syncer/internal/store"
	"github.com/tdbstream/s3syncer/internal/syncer"
	"github.com/tdbstream/s3syncer/internal/utils"
)

// Legacy credential names read from the deployment's .env file.
const (
	envAccessKey = "ACCESSKEY_ID"
	envSecretKey = "SECRET_ACCESSKEY_ID"
)

type Config struct {
	// SourceDir is the local tree to sync.
	SourceDir string `json:"source_dir" mapstructure:"source_dir"`
	// Prefix is prepended to every object key.
	Prefix string `json:"prefix" mapstructure:"prefix"`
	// Workers bounds upload concurrency.
	Workers int `json:"workers" mapstructure:"workers"`
	// ManifestPath overrides the default manifest location.
	ManifestPath string `json:"manifest" mapstructure:"manifest"`

	DryRun bool `json:"-" mapstructure:"dry_run"`
	Watch  bool `json:"-" mapstructure:"watch"`
	Quiet  bool `json:"-" mapstructure:"quiet"`

	S3 store.S3Config `json:"s3" mapstructure:"s3"`
}

func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source dir required")
	}
	resolved, err := utils.ResolvePath(c.SourceDir)
	if err != nil {
		return fmt.Errorf("source dir: %w", err)
	}
	c.SourceDir = resolved
	if !utils.DirExists(c.SourceDir) {
		return fmt.Errorf("source dir %q does not exist", c.SourceDir)
	}
	if c.Workers <= 0 {
		c.Workers = syncer.DefaultWorkers
	}
	return c.S3.Validate()
}

// StateDir is where the manifest and hash cache live.
func (c *Config) StateDir() string {
	return filepath.Join(c.SourceDir, syncer.StateDirName)
}

// Manifest returns the configured or default manifest path.
func (c *Config) Manifest() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.StateDir(), syncer.ManifestFileName)
}

// HashCache returns the fingerprint cache path.
func (c *Config) HashCache() string {
	return filepath.Join(c.StateDir(), "hashcache.db")
}

// LoadDotEnv reads a .env file from the working directory, if present,
// and maps the legacy credential names into the config. Missing files
// are not an error; explicit config values win.
func (c *Config) LoadDotEnv() {
	if utils.FileExists(".env") {
		if err := godotenv.Load(); err != nil {
			slog.Warn("failed to load .env", "error", err)
		} else {
			slog.Debug("loaded credentials from .env")
		}
	}

	if c.S3.AccessKey == "" {
		c.S3.AccessKey = os.Getenv(envAccessKey)
	}
	if c.S3.SecretKey == "" {
		c.S3.SecretKey = os.Getenv(envSecretKey)
	}
}
