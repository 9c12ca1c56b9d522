//go:build unix

package control

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTerminateRealChild(t *testing.T) {
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	cmd := exec.Command(path, "30")
	require.NoError(t, cmd.Start())

	// reap the child so it does not linger as a zombie after SIGTERM
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	term := NewTerminator(MaxAckWait, zaptest.NewLogger(t))
	res := term.Terminate(context.Background(), cmd.Process.Pid, "sleep")
	require.NoError(t, res.Err)
	assert.True(t, res.Exited)
	<-done
}

func TestProbeMissingPid(t *testing.T) {
	// pid_max on Linux never exceeds 2^22
	alive, err := probe(1 << 30)
	require.NoError(t, err)
	assert.False(t, alive)
}
