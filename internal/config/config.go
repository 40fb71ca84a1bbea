// Public domain.

// Package config holds the settings of the apass command.
//
// Settings come from a YAML file.  ${NAME} anywhere in the file is
// replaced by the environment variable NAME before parsing.  Fields left
// out keep their defaults.
package config

import (
	"os"
	"regexp"
	"runtime"
	"time"

	"github.com/zeebo/errs"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/apass/internal/flock"
)

// Error is the class of errors from this package.
var Error = errs.Class("config")

// Config is the full configuration.
type Config struct {
	GlobalDepth int     `yaml:"global_depth"`
	ZoneDepth   int     `yaml:"zone_depth"`
	PolarCutoff float64 `yaml:"polar_cutoff"`
	Jobs        int     `yaml:"jobs"`
	Lock        Lock    `yaml:"lock"`
	Log         Log     `yaml:"log"`
	MetricsFile string  `yaml:"metrics_file"`
}

// Lock configures zone locks.
type Lock struct {
	Timeout  time.Duration `yaml:"timeout"`
	Retry    time.Duration `yaml:"retry"`
	MaxRetry time.Duration `yaml:"max_retry"`
}

// Log configures the logger.
type Log struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // console or json
	Development bool   `yaml:"development"`
}

// Default returns the built in settings.
func Default() Config {
	d := flock.DefaultOptions
	return Config{
		GlobalDepth: 6,
		ZoneDepth:   6,
		PolarCutoff: 85,
		Jobs:        runtime.GOMAXPROCS(0),
		Lock:        Lock{Timeout: d.Timeout, Retry: d.Retry, MaxRetry: d.MaxRetry},
		Log:         Log{Level: "info", Format: "console"},
	}
}

// Load reads fn over the defaults and validates the result.
func Load(fn string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(fn)
	if err != nil {
		return c, Error.Wrap(err)
	}
	if err := yaml.Unmarshal([]byte(substituteEnv(string(b))), &c); err != nil {
		return c, Error.New("%s: %v", fn, err)
	}
	return c, c.Validate()
}

var rxEnv = regexp.MustCompile(`\$\{([^}]*)\}`)

// substituteEnv replaces ${NAME} with the value of NAME.
func substituteEnv(s string) string {
	return rxEnv.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

// Validate checks ranges.
func (c Config) Validate() error {
	var g errs.Group
	for _, d := range []struct {
		name string
		v    int
	}{{"global_depth", c.GlobalDepth}, {"zone_depth", c.ZoneDepth}} {
		if d.v < 1 || d.v > 12 {
			g.Add(Error.New("%s %d not in 1..12", d.name, d.v))
		}
	}
	if !(c.PolarCutoff > 0 && c.PolarCutoff < 90) {
		g.Add(Error.New("polar_cutoff %v not in (0, 90)", c.PolarCutoff))
	}
	if c.Jobs < 1 {
		g.Add(Error.New("jobs %d less than 1", c.Jobs))
	}
	if c.Lock.Timeout < 0 || c.Lock.Retry <= 0 {
		g.Add(Error.New("lock retry must be positive and timeout not negative"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		g.Add(Error.New("log format %q not console or json", c.Log.Format))
	}
	return g.Err()
}

// LockOptions returns the settings for zone locks.
func (c Config) LockOptions() flock.Options {
	return flock.Options{Timeout: c.Lock.Timeout, Retry: c.Lock.Retry, MaxRetry: c.Lock.MaxRetry}
}
