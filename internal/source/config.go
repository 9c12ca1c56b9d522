package source

import (
	"fmt"
	"runtime"

	"github.com/rusenback/procmon/internal/model"
	"go.uber.org/zap"
)

const (
	KindProcFS   = "procfs"
	KindGopsutil = "gopsutil"
)

// Config selects and tunes a counter source backend
type Config struct {
	Kind     string
	ProcRoot string
	Workers  int
}

func DefaultConfig() Config {
	return Config{
		Kind:     KindProcFS,
		ProcRoot: "/proc",
		Workers:  runtime.NumCPU(),
	}
}

// New builds the backend named by cfg.Kind.
func New(cfg Config, logger *zap.Logger) (CounterSource, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	switch cfg.Kind {
	case KindProcFS, "":
		return NewProcFS(cfg.ProcRoot, cfg.Workers, logger)
	case KindGopsutil:
		return NewGopsutil(cfg.Workers, logger), nil
	default:
		return nil, fmt.Errorf("unknown counter source %q", cfg.Kind)
	}
}

// secondsToTicks converts the seconds some libraries report back into ticks.
func secondsToTicks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds*model.TicksPerSecond + 0.5)
}
