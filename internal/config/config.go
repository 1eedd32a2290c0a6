package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the decoded config file. IgnoreList is empty unless set, so
// every created path is uploaded by default.
type Config struct {
	Paths      []string      `mapstructure:"path"`
	Token      string        `mapstructure:"token"`
	ChatID     string        `mapstructure:"chat_id"`
	Workers    int           `mapstructure:"workers"`
	DaemonPort int           `mapstructure:"daemon_port"`
	IgnoreList []string      `mapstructure:"ignore_list"`
	Reader     ReaderConfig  `mapstructure:"reader"`
	Monitor    MonitorConfig `mapstructure:"monitor"`
	Sink       SinkConfig    `mapstructure:"sink"`
	Log        LogConfig     `mapstructure:"log"`
}

type ReaderConfig struct {
	Attempts    int           `mapstructure:"attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Stage       bool          `mapstructure:"stage"`
	StageDir    string        `mapstructure:"stage_dir"`
}

// MonitorConfig names the companion process. An empty Process disables the
// monitor.
type MonitorConfig struct {
	Process  string        `mapstructure:"process"`
	Interval time.Duration `mapstructure:"interval"`
}

type SinkConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

type LogConfig struct {
	Debug    bool   `mapstructure:"debug"`
	Encoding string `mapstructure:"encoding"`
}

var Default = Config{
	Workers:    16,
	DaemonPort: 9301,
	Reader: ReaderConfig{
		Attempts:   100,
		RetryDelay: 50 * time.Millisecond,
	},
	Monitor: MonitorConfig{
		Interval: time.Second,
	},
	Sink: SinkConfig{
		APIURL:    "https://api.telegram.org",
		Timeout:   60 * time.Second,
		RateLimit: 30,
		Burst:     1,
	},
	Log: LogConfig{
		Encoding: "console",
	},
}

// Load reads the config file at path. With an empty path it looks for
// config.yaml in the working directory and then in ~/.dropwatch; a missing
// file there is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DROPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dropwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToSingletonSliceHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("path", []string{})
	v.SetDefault("token", "")
	v.SetDefault("chat_id", "")
	v.SetDefault("workers", Default.Workers)
	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("ignore_list", []string{})

	v.SetDefault("reader.attempts", Default.Reader.Attempts)
	v.SetDefault("reader.retry_delay", Default.Reader.RetryDelay)
	v.SetDefault("reader.settle_delay", Default.Reader.SettleDelay)
	v.SetDefault("reader.stage", Default.Reader.Stage)
	v.SetDefault("reader.stage_dir", Default.Reader.StageDir)

	v.SetDefault("monitor.process", Default.Monitor.Process)
	v.SetDefault("monitor.interval", Default.Monitor.Interval)

	v.SetDefault("sink.api_url", Default.Sink.APIURL)
	v.SetDefault("sink.timeout", Default.Sink.Timeout)
	v.SetDefault("sink.retry_max", Default.Sink.RetryMax)
	v.SetDefault("sink.rate_limit", Default.Sink.RateLimit)
	v.SetDefault("sink.burst", Default.Sink.Burst)

	v.SetDefault("log.debug", Default.Log.Debug)
	v.SetDefault("log.encoding", Default.Log.Encoding)
}

// stringToSingletonSliceHook lets `path: /some/dir` stand in for a
// one-element list. Paths may contain commas, so no splitting happens.
func stringToSingletonSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}

	return []string{reflect.ValueOf(data).String()}, nil
}

// WatchPaths returns the configured roots with blanks removed.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Paths))
	for _, p := range c.Paths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	return paths
}
