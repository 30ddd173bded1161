package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerAddr      = "localhost:8080"
	DefaultDebounceMs      = 500
	DefaultPrefixLen       = 3
	DefaultFilterSeed      = 1337
	DefaultFetchWorkers    = 16
	DefaultFetchMaxRetry   = 5
	DefaultRetryWaitMinMs  = 1000
	DefaultRetryWaitMaxMs  = 30000
	DefaultFetchMode       = "ntlm"
	DefaultRangeAPIBaseURL = "https://api.pwnedpasswords.com/range/"
)

type Config struct {
	LogFile       string `yaml:"log"`
	Reference     string `yaml:"reference"`
	Accounts      string `yaml:"accounts"`
	Report        string `yaml:"report"`
	ServerAddr    string `yaml:"server_addr"`
	MergeEventsMs int    `yaml:"write_debounce_ms"`
	Prefilter     struct {
		Enabled   bool   `yaml:"enabled"`
		PrefixLen int    `yaml:"prefix_len"`
		Seed      uint64 `yaml:"seed"`
	} `yaml:"prefilter"`
	Fetch struct {
		BaseURL           string  `yaml:"base_url"`
		Mode              string  `yaml:"mode"`
		Workers           int     `yaml:"workers"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		MaxRetry          int     `yaml:"max_retry"`
		RetryWaitMinMs    int     `yaml:"retry_wait_min_ms"`
		RetryWaitMaxMs    int     `yaml:"retry_wait_max_ms"`
	} `yaml:"fetch"`
}

func Read(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	dec.KnownFields(true)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.MergeEventsMs <= 0 {
		c.MergeEventsMs = DefaultDebounceMs
	}
	if c.Report == "" {
		c.Report = "pwned.csv"
	}
	if c.Prefilter.PrefixLen <= 0 {
		c.Prefilter.PrefixLen = DefaultPrefixLen
	}
	if c.Prefilter.Seed == 0 {
		c.Prefilter.Seed = DefaultFilterSeed
	}
	if c.Fetch.BaseURL == "" {
		c.Fetch.BaseURL = DefaultRangeAPIBaseURL
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = DefaultFetchMode
	}
	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = DefaultFetchWorkers
	}
	if c.Fetch.MaxRetry <= 0 {
		c.Fetch.MaxRetry = DefaultFetchMaxRetry
	}
	if c.Fetch.RetryWaitMinMs <= 0 {
		c.Fetch.RetryWaitMinMs = DefaultRetryWaitMinMs
	}
	if c.Fetch.RetryWaitMaxMs <= 0 {
		c.Fetch.RetryWaitMaxMs = DefaultRetryWaitMaxMs
	}
}

// Validate checks the settings an audit or server run depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Reference == "" {
		errs = append(errs, errors.New("reference file path is not set"))
	}
	if c.Fetch.Mode != "ntlm" && c.Fetch.Mode != "sha1" {
		errs = append(errs, fmt.Errorf("unknown fetch mode %q", c.Fetch.Mode))
	}
	return errors.Join(errs...)
}

func (c *Config) MergeEventsDelay() time.Duration {
	return time.Duration(c.MergeEventsMs) * time.Millisecond
}

func (c *Config) RetryWaitMin() time.Duration {
	return time.Duration(c.Fetch.RetryWaitMinMs) * time.Millisecond
}

func (c *Config) RetryWaitMax() time.Duration {
	return time.Duration(c.Fetch.RetryWaitMaxMs) * time.Millisecond
}
