// Package config resolves procmon settings: defaults, then an optional YAML
// file, then command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rusenback/procmon/internal/control"
	"github.com/rusenback/procmon/internal/docker"
	"github.com/rusenback/procmon/internal/monitor"
	"github.com/rusenback/procmon/internal/rank"
	"github.com/rusenback/procmon/internal/source"
	"github.com/rusenback/procmon/internal/storage"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the binary.
type Config struct {
	Interval    time.Duration `yaml:"interval"`
	Source      string        `yaml:"source"`
	ProcRoot    string        `yaml:"proc_root"`
	Workers     int           `yaml:"workers"`
	MaxFailures int           `yaml:"max_failures"`

	Sort   string `yaml:"sort"`
	Filter string `yaml:"filter"`
	Limit  int    `yaml:"limit"`

	AckWait time.Duration `yaml:"ack_wait"`

	Batch      bool `yaml:"batch"`
	Iterations int  `yaml:"iterations"`

	Containers    bool          `yaml:"containers"`
	DockerHost    string        `yaml:"docker_host"`
	DockerTimeout time.Duration `yaml:"docker_timeout"`

	// Journal is the termination journal path; empty disables it.
	Journal          string        `yaml:"journal"`
	JournalRetention time.Duration `yaml:"journal_retention"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Dir is ~/.procmon, or .procmon when no home directory is known.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".procmon"
	}
	return filepath.Join(home, ".procmon")
}

func DefaultConfig() Config {
	dir := Dir()
	return Config{
		Interval:         monitor.DefaultInterval,
		Source:           source.KindProcFS,
		ProcRoot:         "/proc",
		Workers:          runtime.NumCPU(),
		MaxFailures:      monitor.DefaultMaxFailures,
		Sort:             rank.ByCPU.String(),
		AckWait:          control.DefaultAckWait,
		DockerHost:       docker.DefaultConfig().Host,
		DockerTimeout:    docker.DefaultConfig().Timeout,
		Journal:          filepath.Join(dir, "journal.db"),
		JournalRetention: storage.DefaultRetention,
		LogFile:          filepath.Join(dir, "procmon.log"),
		LogLevel:         "info",
	}
}

// Load builds the effective configuration from args (without the program
// name). A -config path must exist; the default file is optional.
func Load(name string, args []string, stderr io.Writer) (Config, error) {
	// first pass only finds -config
	var scratch Config
	probe := flag.NewFlagSet(name, flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	configPath := bind(probe, &scratch)
	_ = probe.Parse(args)

	cfg := DefaultConfig()
	path, explicit := *configPath, *configPath != ""
	if !explicit {
		path = filepath.Join(Dir(), "config.yaml")
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	bind(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return cfg.Normalize(), nil
}

// bind registers every flag on fs, using the current values of cfg as the
// defaults. It returns the -config destination.
func bind(fs *flag.FlagSet, cfg *Config) *string {
	configPath := fs.String("config", "", "YAML config file (default ~/.procmon/config.yaml)")

	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval, 1s to 10s")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "counter source: procfs or gopsutil")
	fs.StringVar(&cfg.ProcRoot, "proc", cfg.ProcRoot, "proc filesystem mount point")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel per-process readers")
	fs.IntVar(&cfg.MaxFailures, "max-failures", cfg.MaxFailures, "consecutive failed cycles before giving up")

	fs.StringVar(&cfg.Sort, "sort", cfg.Sort, "initial sort key: cpu or mem")
	fs.StringVar(&cfg.Filter, "filter", cfg.Filter, "only show processes whose name contains this substring")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "rows to show, 0 for all")

	fs.DurationVar(&cfg.AckWait, "ack-wait", cfg.AckWait, "how long to wait for a killed process to exit")

	fs.BoolVar(&cfg.Batch, "batch", cfg.Batch, "print plain tables instead of the interactive view")
	fs.IntVar(&cfg.Iterations, "n", cfg.Iterations, "batch mode: stop after this many frames, 0 for no limit")

	fs.BoolVar(&cfg.Containers, "containers", cfg.Containers, "show the owning Docker container of each process")
	fs.StringVar(&cfg.DockerHost, "docker-host", cfg.DockerHost, "Docker daemon address")
	fs.DurationVar(&cfg.DockerTimeout, "docker-timeout", cfg.DockerTimeout, "Docker API call timeout")

	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "termination journal database, empty to disable")
	fs.DurationVar(&cfg.JournalRetention, "journal-retention", cfg.JournalRetention, "how long journal entries are kept")

	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file, - for stderr")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	return configPath
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Normalize returns a copy with every value forced into its valid range.
func (c Config) Normalize() Config {
	n := c

	if n.Interval == 0 {
		n.Interval = monitor.DefaultInterval
	}
	n.Interval = monitor.ClampInterval(n.Interval)

	switch strings.ToLower(strings.TrimSpace(n.Source)) {
	case source.KindGopsutil:
		n.Source = source.KindGopsutil
	default:
		n.Source = source.KindProcFS
	}
	if n.ProcRoot == "" {
		n.ProcRoot = "/proc"
	}
	if n.Workers < 1 {
		n.Workers = 1
	}
	if n.MaxFailures < 1 {
		n.MaxFailures = 1
	}

	key, err := rank.ParseSortKey(n.Sort)
	if err != nil {
		key = rank.ByCPU
	}
	n.Sort = key.String()
	if n.Limit < 0 {
		n.Limit = 0
	}

	n.AckWait = control.ClampAckWait(n.AckWait)

	if n.Iterations < 0 {
		n.Iterations = 0
	}

	if n.DockerHost == "" {
		n.DockerHost = docker.DefaultConfig().Host
	}
	if n.DockerTimeout <= 0 {
		n.DockerTimeout = docker.DefaultConfig().Timeout
	}

	n.Journal = expandHome(strings.TrimSpace(n.Journal))
	if n.JournalRetention <= 0 {
		n.JournalRetention = storage.DefaultRetention
	}

	if n.LogFile != "-" {
		n.LogFile = expandHome(n.LogFile)
	}
	level, err := zapcore.ParseLevel(n.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	n.LogLevel = level.String()

	return n
}

// SortKey is the parsed form of Sort.
func (c Config) SortKey() rank.SortKey {
	key, _ := rank.ParseSortKey(c.Sort)
	return key
}

// SourceConfig maps the relevant fields onto source.Config.
func (c Config) SourceConfig() source.Config {
	return source.Config{Kind: c.Source, ProcRoot: c.ProcRoot, Workers: c.Workers}
}

// DockerConfig maps the relevant fields onto docker.Config.
func (c Config) DockerConfig() docker.Config {
	cfg := docker.DefaultConfig()
	cfg.Host = c.DockerHost
	cfg.Timeout = c.DockerTimeout
	return cfg
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
