package store

import (
	"fmt"

	"github.com/tdbstream/s3syncer/internal/utils"
)

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket required")
	}
	if c.Region == "" {
		return fmt.Errorf("region required")
	}
	// Keys may be empty, in which case the default AWS credential chain is used.
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return fmt.Errorf("invalid endpoint URL %q", c.Endpoint)
	}
	return nil
}
