// Package control sends termination requests to processes.
package control

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAckWait = 2 * time.Second
	MaxAckWait     = 5 * time.Second
	pollEvery      = 50 * time.Millisecond
)

// ErrTerminate wraps every failure to deliver a termination request.
var ErrTerminate = errors.New("terminate failed")

// Result describes one termination request.
type Result struct {
	PID     int
	Label   string
	Signal  string
	Exited  bool // the process was gone before the ack wait ran out
	Elapsed time.Duration
	Err     error
}

// Message is a one-line summary for the status bar.
func (r Result) Message() string {
	name := fmt.Sprintf("pid %d", r.PID)
	if r.Label != "" {
		name = fmt.Sprintf("%s (pid %d)", r.Label, r.PID)
	}
	switch {
	case r.Err != nil:
		return fmt.Sprintf("kill %s: %v", name, r.Err)
	case r.Exited:
		return fmt.Sprintf("%s sent to %s, exited after %s", r.Signal, name, r.Elapsed.Round(time.Millisecond))
	default:
		return fmt.Sprintf("%s sent to %s, still running", r.Signal, name)
	}
}

// Terminator delivers SIGTERM and polls for exit for at most AckWait.
type Terminator struct {
	AckWait time.Duration

	logger *zap.Logger
	signal func(pid int) error
	alive  func(pid int) (bool, error)
}

func NewTerminator(ackWait time.Duration, logger *zap.Logger) *Terminator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Terminator{
		AckWait: ClampAckWait(ackWait),
		logger:  logger,
		signal:  sendTerm,
		alive:   probe,
	}
}

// ClampAckWait bounds d to (0, MaxAckWait], with zero meaning the default.
func ClampAckWait(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultAckWait
	case d > MaxAckWait:
		return MaxAckWait
	default:
		return d
	}
}

// Terminate signals pid and waits until it disappears, the ack wait runs out
// or ctx is done. Only the signal delivery can fail; a process that outlives
// the wait is reported with Exited false.
func (t *Terminator) Terminate(ctx context.Context, pid int, label string) Result {
	res := Result{PID: pid, Label: label, Signal: "SIGTERM"}

	if pid <= 0 {
		res.Err = fmt.Errorf("%w: invalid pid %d", ErrTerminate, pid)
		return res
	}
	if pid == os.Getpid() {
		res.Err = fmt.Errorf("%w: refusing to signal self", ErrTerminate)
		return res
	}

	start := time.Now()
	if err := t.signal(pid); err != nil {
		res.Err = fmt.Errorf("%w: pid %d: %w", ErrTerminate, pid, err)
		t.logger.Warn("terminate", zap.Int("pid", pid), zap.Error(err))
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, t.AckWait)
	defer cancel()

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

poll:
	for {
		alive, err := t.alive(pid)
		if err != nil {
			t.logger.Debug("liveness probe", zap.Int("pid", pid), zap.Error(err))
		}
		if !alive {
			res.Exited = true
			break
		}
		select {
		case <-ctx.Done():
			break poll
		case <-ticker.C:
		}
	}

	res.Elapsed = time.Since(start)
	t.logger.Info("terminate",
		zap.Int("pid", pid),
		zap.String("label", label),
		zap.Bool("exited", res.Exited),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}
