// Package config loads the YAML configuration of the h5dap command.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/h5dap"
	"github.com/robert-malhotra/go-h5dap/h5err"
	"github.com/robert-malhotra/go-h5dap/storage/h5file"
)

// CurrentVersion is the configuration version this package parses.
const CurrentVersion = Version("0.1")

// Version is a major/minor version pair of the form Major.Minor.
type Version string

// Major returns the major version portion of a Version.
func (v Version) Major() (uint, error) {
	major, _, _ := strings.Cut(string(v), ".")
	n, err := strconv.ParseUint(major, 10, 0)
	return uint(n), err
}

// Loglevel is the level at which events are logged.
type Loglevel string

// UnmarshalYAML lowercases the level and checks that it is known.
func (l *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	s = strings.ToLower(s)
	if err := Loglevel(s).validate(); err != nil {
		return err
	}
	*l = Loglevel(s)
	return nil
}

func (l Loglevel) validate() error {
	switch l {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid loglevel %q, must be one of [debug, info, warn, error]", string(l))
}

// Config is the h5dap configuration.
type Config struct {
	Version Version `yaml:"version"`

	Decode struct {
		// Lenient drops record members of unsupported type instead of
		// failing the read.
		Lenient bool `yaml:"lenient"`

		// Target is dap2 or dap4.
		Target string `yaml:"target"`

		// MaxDepth lowers the nesting limit for types. Zero keeps the
		// built-in limit.
		MaxDepth int `yaml:"maxdepth"`
	} `yaml:"decode"`

	Storage struct {
		Mmap bool `yaml:"mmap"`
	} `yaml:"storage"`

	Log struct {
		Level  Loglevel `yaml:"level"`
		Format string   `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{Version: CurrentVersion}
	c.Decode.Target = "dap2"
	c.Storage.Mmap = true
	c.Log.Level = "info"
	c.Log.Format = "json"
	return c
}

// Parse reads a YAML document over the defaults, then applies environment
// overrides:
//
//	H5DAP_DECODE_LENIENT  decode.lenient
//	H5DAP_DECODE_TARGET   decode.target
//	H5DAP_LOG_LEVEL       log.level
func Parse(rd io.Reader) (*Config, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := yaml.UnmarshalStrict(in, c); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if c.Version == "" {
		return nil, fmt.Errorf("configuration has no version")
	}
	if major, err := c.Version.Major(); err != nil || major != 0 {
		return nil, fmt.Errorf("unsupported configuration version %q", c.Version)
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load parses the file at path. An empty path yields the defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Default()
		if err := c.applyEnv(os.LookupEnv); err != nil {
			return nil, err
		}
		return c, c.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("H5DAP_DECODE_LENIENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("H5DAP_DECODE_LENIENT: %w", err)
		}
		c.Decode.Lenient = b
	}
	if v, ok := lookup("H5DAP_DECODE_TARGET"); ok {
		c.Decode.Target = v
	}
	if v, ok := lookup("H5DAP_LOG_LEVEL"); ok {
		c.Log.Level = Loglevel(strings.ToLower(v))
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	if _, ok := dtype.ParseTarget(c.Decode.Target); !ok {
		err = multierr.Append(err, fmt.Errorf("invalid decode target %q, must be dap2 or dap4", c.Decode.Target))
	}
	if c.Decode.MaxDepth < 0 || c.Decode.MaxDepth > h5err.MaxDepth {
		err = multierr.Append(err, fmt.Errorf("decode maxdepth %d outside 0..%d", c.Decode.MaxDepth, h5err.MaxDepth))
	}
	err = multierr.Append(err, c.Log.Level.validate())
	switch c.Log.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid log format %q, must be json or console", c.Log.Format))
	}
	return err
}

// Target returns the decode target. It assumes c has been validated.
func (c *Config) Target() dtype.Target {
	t, _ := dtype.ParseTarget(c.Decode.Target)
	return t
}

// ReaderOptions returns the h5dap options described by c.
func (c *Config) ReaderOptions() []h5dap.Option {
	opts := []h5dap.Option{
		h5dap.WithLenient(c.Decode.Lenient),
		h5dap.WithTarget(c.Target()),
	}
	if c.Decode.MaxDepth > 0 {
		opts = append(opts, h5dap.WithMaxDepth(c.Decode.MaxDepth))
	}
	return opts
}

// StoreOptions returns the h5file options described by c.
func (c *Config) StoreOptions() []h5file.Option {
	return []h5file.Option{h5file.WithMmap(c.Storage.Mmap)}
}

// Logger builds a zap logger at the configured level and format.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(string(c.Log.Level))
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
