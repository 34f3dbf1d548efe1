package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/remoteui/internal/errors"
	"github.com/vango-dev/remoteui/pkg/contenthash"
	"github.com/vango-dev/remoteui/pkg/recorder"
	"github.com/vango-dev/remoteui/pkg/server"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "remoteui.yaml"

	// DefaultListen is the default host listen address.
	DefaultListen = ":8080"

	// DefaultViewerURL is the default websocket URL of the view command.
	DefaultViewerURL = "ws://localhost:8080/ws"

	// MaxTickRate bounds tick_rate.
	MaxTickRate = 240
)

// Recording backends.
const (
	BackendNone = ""
	BackendDir  = "dir"
	BackendS3   = "s3"
)

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config is the contents of remoteui.yaml.
type Config struct {
	// Listen is the host address.
	Listen string `yaml:"listen"`

	// TickRate is the number of host ticks per second.
	TickRate int `yaml:"tick_rate"`

	// FullUpdateInterval is the number of partial-eligible ticks between Full updates.
	FullUpdateInterval int `yaml:"full_update_interval"`

	// VerifyHashes compares serialized content on a digest match instead
	// of trusting the hash.
	VerifyHashes bool `yaml:"verify_hashes"`

	// MaxSessions limits concurrent viewers. 0 means no limit.
	MaxSessions int `yaml:"max_sessions"`

	// DebugReferences makes viewers draw only freshly sent shapes.
	DebugReferences bool `yaml:"debug_references"`

	Log       LogConfig       `yaml:"log"`
	Session   SessionConfig   `yaml:"session"`
	Recording RecordingConfig `yaml:"recording"`
	Viewer    ViewerConfig    `yaml:"viewer"`

	// path stores where the config was loaded from.
	path string
}

// LogConfig selects the logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is json or console.
	Format string `yaml:"format"`
}

// SessionConfig mirrors server.SessionConfig.
type SessionConfig struct {
	InboundQueue      int      `yaml:"inbound_queue"`
	OutboundQueue     int      `yaml:"outbound_queue"`
	SendTimeout       Duration `yaml:"send_timeout"`
	ReadTimeout       Duration `yaml:"read_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	HandshakeTimeout  Duration `yaml:"handshake_timeout"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
	MaxMessageSize    int64    `yaml:"max_message_size"`
}

// RecordingConfig selects where encoded updates are archived.
type RecordingConfig struct {
	// Backend is "", "dir" or "s3". Empty disables recording.
	Backend string `yaml:"backend"`

	// Path is the directory of the dir backend.
	Path string `yaml:"path"`

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// SegmentSize is the byte size at which a session segment is flushed.
	SegmentSize int `yaml:"segment_size"`

	// FlushInterval flushes idle segments.
	FlushInterval Duration `yaml:"flush_interval"`
}

// ViewerConfig configures the view command.
type ViewerConfig struct {
	URL    string `yaml:"url"`
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// New returns a Config with defaults applied.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads ConfigFileName from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a YAML config file, expands environment variables,
// applies defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R100").
				WithDetail("No " + ConfigFileName + " at " + path).
				WithSuggestion("Create the file or omit --config to use defaults")
		}
		return nil, errors.New("R102").WithDetail(path).Wrap(err)
	}

	cfg, err := Parse(data)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Detail == "" {
			e.Detail = path
		}
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes YAML config data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.New("R103").Wrap(err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyDefaults() {
	host := server.DefaultHostConfig()
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.TickRate == 0 {
		c.TickRate = host.TickRate
	}
	if c.FullUpdateInterval == 0 {
		c.FullUpdateInterval = host.FullUpdateInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	c.Recording.Backend = strings.ToLower(c.Recording.Backend)
	if c.Viewer.URL == "" {
		c.Viewer.URL = DefaultViewerURL
	}
	if c.Viewer.Name == "" {
		c.Viewer.Name = "remoteui-view"
	}
}

// Validate checks value ranges and backend requirements.
func (c *Config) Validate() error {
	invalid := func(detail, hint string) error {
		return errors.New("R101").WithDetail(detail).WithSuggestion(hint)
	}

	if c.TickRate < 1 || c.TickRate > MaxTickRate {
		return invalid(fmt.Sprintf("tick_rate must be between 1 and %d, got %d", MaxTickRate, c.TickRate), "Set tick_rate: 30")
	}
	if c.FullUpdateInterval < 1 {
		return invalid(fmt.Sprintf("full_update_interval must be positive, got %d", c.FullUpdateInterval), "Remove the key to use the default of 90")
	}
	if c.MaxSessions < 0 {
		return invalid("max_sessions must not be negative", "Use 0 for no limit")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got "+c.Log.Level, "Set log.level: info")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format must be json or console, got "+c.Log.Format, "Set log.format: json")
	}
	if c.Session.HeartbeatInterval.Duration > 0 && c.Session.ReadTimeout.Duration > 0 &&
		c.Session.HeartbeatInterval.Duration >= c.Session.ReadTimeout.Duration {
		return invalid("session.heartbeat_interval must be shorter than session.read_timeout", "Use a heartbeat of about a third of the read timeout")
	}

	switch c.Recording.Backend {
	case BackendNone:
	case BackendDir:
		if c.Recording.Path == "" {
			return invalid("recording.path is required for the dir backend", "Set recording.path: ./recordings")
		}
	case BackendS3:
		s3 := c.S3Config()
		if err := s3.Validate(); err != nil {
			return errors.New("R101").Wrap(err).WithSuggestion("Set recording.bucket")
		}
	default:
		return invalid("recording.backend must be dir or s3, got "+c.Recording.Backend, "Remove recording.backend to disable recording")
	}

	if c.Viewer.Width < 0 || c.Viewer.Height < 0 {
		return invalid("viewer.width and viewer.height must not be negative", "Use 0 to let the host pick the viewport")
	}
	return nil
}

// HostConfig converts the file values to a server.HostConfig.
func (c *Config) HostConfig() *server.HostConfig {
	hc := server.DefaultHostConfig()
	hc.TickRate = c.TickRate
	hc.FullUpdateInterval = c.FullUpdateInterval
	if c.VerifyHashes {
		hc.CachePolicy = contenthash.VerifyOnMatch
	}

	s := hc.Session
	if c.Session.InboundQueue > 0 {
		s.InboundQueue = c.Session.InboundQueue
	}
	if c.Session.OutboundQueue > 0 {
		s.OutboundQueue = c.Session.OutboundQueue
	}
	setDuration(&s.SendTimeout, c.Session.SendTimeout)
	setDuration(&s.ReadTimeout, c.Session.ReadTimeout)
	setDuration(&s.WriteTimeout, c.Session.WriteTimeout)
	setDuration(&s.HandshakeTimeout, c.Session.HandshakeTimeout)
	setDuration(&s.HeartbeatInterval, c.Session.HeartbeatInterval)
	if c.Session.MaxMessageSize > 0 {
		s.MaxMessageSize = c.Session.MaxMessageSize
	}
	return hc
}

// ServerConfig converts the file values to a server.ServerConfig.
func (c *Config) ServerConfig() *server.ServerConfig {
	sc := server.DefaultServerConfig()
	sc.Address = c.Listen
	sc.MaxSessions = c.MaxSessions
	return sc
}

// S3Config converts the recording section to a recorder.S3Config.
func (c *Config) S3Config() recorder.S3Config {
	return recorder.S3Config{
		Bucket:       c.Recording.Bucket,
		Prefix:       c.Recording.Prefix,
		Region:       c.Recording.Region,
		Endpoint:     c.Recording.Endpoint,
		UsePathStyle: c.Recording.PathStyle,
	}
}

// RecorderOptions returns the recorder tuning set in the file.
func (c *Config) RecorderOptions() []recorder.Option {
	var opts []recorder.Option
	if c.Recording.SegmentSize > 0 {
		opts = append(opts, recorder.WithSegmentSize(c.Recording.SegmentSize))
	}
	if c.Recording.FlushInterval.Duration > 0 {
		opts = append(opts, recorder.WithFlushInterval(c.Recording.FlushInterval.Duration))
	}
	return opts
}

func setDuration(dst *time.Duration, d Duration) {
	if d.Duration > 0 {
		*dst = d.Duration
	}
}

// Exists reports whether ConfigFileName exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the first directory holding
// ConfigFileName.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R100").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Pass --config or run without a file to use defaults")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest ConfigFileName above the working
// directory, or returns defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}
	return Load(root)
}
