package archive

import (
	"errors"
	"fmt"
	"strings"
)

// Config describes an S3-compatible archive bucket.
type Config struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Region    string `yaml:"region" json:"region"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix" json:"prefix"`
}

// Validate checks that every required field is set.
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
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
