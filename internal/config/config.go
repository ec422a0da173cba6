// Package config holds the tunables of a dump run and loads them from flags and
// the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. GITDUMP_JOBS.
const EnvPrefix = "GITDUMP"

const (
	KeyJobs    = "jobs"
	KeyRetries = "retries"
	KeyTimeout = "timeout"
	KeyVerbose = "verbose"
	KeyForce   = "force"
	KeyKeep    = "keep"
)

const (
	DefaultJobs    = 8
	DefaultRetries = 3
	DefaultTimeout = 10 * time.Second
)

type Config struct {
	// Jobs is the number of requests in flight at once.
	Jobs int
	// Retries is the number of attempts made for a single request.
	Retries int
	// Timeout bounds all attempts of a single request.
	Timeout time.Duration
	Verbose int
	// Force wipes a non-empty output directory.
	Force bool
	// Keep reuses files already present in the output directory.
	Keep bool
}

func Default() Config {
	return Config{
		Jobs:    DefaultJobs,
		Retries: DefaultRetries,
		Timeout: DefaultTimeout,
	}
}

// NewViper returns a viper instance with defaults set and GITDUMP_* variables
// bound.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyJobs, DefaultJobs)
	v.SetDefault(KeyRetries, DefaultRetries)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	return v
}

// Load reads a Config out of v and validates it. Timeouts given as plain numbers
// are taken as seconds.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Jobs:    v.GetInt(KeyJobs),
		Retries: v.GetInt(KeyRetries),
		Verbose: v.GetInt(KeyVerbose),
		Force:   v.GetBool(KeyForce),
		Keep:    v.GetBool(KeyKeep),
	}

	timeout, err := parseTimeout(v.GetString(KeyTimeout))
	if err != nil {
		return Config{}, err
	}
	cfg.Timeout = timeout

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Force && c.Keep {
		return fmt.Errorf("force and keep are mutually exclusive")
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeout, nil
	}
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}
