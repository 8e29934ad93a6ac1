package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/dataconn"
	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/util"
)

const (
	DefaultPollInterval   = 2 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second

	minSessionTimeout = 100 * time.Millisecond
	minFrameSize      = 1 << 10
)

type Config struct {
	Server         string
	SessionTimeout time.Duration
	MaxFrameSize   int64
	ReadBufferSize int64
	ReadOnly       bool
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

type fileConfig struct {
	Server         string `toml:"server"`
	SessionTimeout string `toml:"session_timeout"`
	MaxFrameSize   string `toml:"max_frame_size"`
	ReadBufferSize string `toml:"read_buffer_size"`
	ReadOnly       bool   `toml:"read_only"`
	PollInterval   string `toml:"poll_interval"`
	RequestTimeout string `toml:"request_timeout"`
}

func Default() Config {
	return Config{
		Server:         "localhost:2181",
		SessionTimeout: dataconn.DefaultSessionTimeout,
		MaxFrameSize:   proto.DefaultMaxFrameSize,
		ReadBufferSize: dataconn.DefaultReadBufferSize,
		PollInterval:   DefaultPollInterval,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to load config %v", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown key %v in config %v", undecoded[0], path)
	}

	if meta.IsDefined("server") {
		cfg.Server = strings.TrimSpace(raw.Server)
	}
	if meta.IsDefined("session_timeout") {
		if cfg.SessionTimeout, err = parseDuration("session_timeout", raw.SessionTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("max_frame_size") {
		if cfg.MaxFrameSize, err = parseSize("max_frame_size", raw.MaxFrameSize); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("read_buffer_size") {
		if cfg.ReadBufferSize, err = parseSize("read_buffer_size", raw.ReadBufferSize); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("read_only") {
		cfg.ReadOnly = raw.ReadOnly
	}
	if meta.IsDefined("poll_interval") {
		if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("request_timeout") {
		if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout); err != nil {
			return Config{}, err
		}
	}

	return cfg, cfg.Validate()
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse %v", key)
	}
	return d, nil
}

func parseSize(key, value string) (int64, error) {
	size, err := units.RAMInBytes(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse %v", key)
	}
	return size, nil
}

func (c Config) Validate() error {
	if _, err := util.GetServerAddress(c.Server); err != nil {
		return err
	}
	if c.SessionTimeout < minSessionTimeout {
		return errors.Errorf("session timeout %v is shorter than %v", c.SessionTimeout, minSessionTimeout)
	}
	if c.SessionTimeout > dataconn.MaxSessionTimeout {
		return errors.Errorf("session timeout %v is longer than %v", c.SessionTimeout, dataconn.MaxSessionTimeout)
	}
	if c.MaxFrameSize < minFrameSize || c.MaxFrameSize > 1<<31-1 {
		return errors.Errorf("invalid max frame size %v", units.BytesSize(float64(c.MaxFrameSize)))
	}
	if c.ReadBufferSize <= 0 {
		return errors.Errorf("invalid read buffer size %v", c.ReadBufferSize)
	}
	if c.PollInterval <= 0 {
		return errors.Errorf("invalid poll interval %v", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return errors.Errorf("invalid request timeout %v", c.RequestTimeout)
	}
	return nil
}

// Options maps the config onto engine options.
func (c Config) Options() dataconn.Options {
	return dataconn.Options{
		MaxFrameSize:   int(c.MaxFrameSize),
		ReadBufferSize: int(c.ReadBufferSize),
		SessionTimeout: c.SessionTimeout,
		ReadOnly:       c.ReadOnly,
	}
}
