package docker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ContainerPIDs returns the host pids of the processes running in a container.
func (c *Client) ContainerPIDs(ctx context.Context, id string) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	top, err := c.api.ContainerTop(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	// top.Titles is the ps header, e.g. ["UID", "PID", "PPID", "C", "STIME", "TTY", "TIME", "CMD"]
	pidIdx := -1
	for i, title := range top.Titles {
		if strings.EqualFold(strings.TrimSpace(title), "PID") {
			pidIdx = i
			break
		}
	}
	if pidIdx < 0 {
		return nil, fmt.Errorf("container %s: top output has no PID column", id)
	}

	pids := make([]int, 0, len(top.Processes))
	for _, proc := range top.Processes {
		if len(proc) <= pidIdx {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(proc[pidIdx]))
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}

	// threads can be listed more than once depending on the ps flags
	return lo.Uniq(pids), nil
}
