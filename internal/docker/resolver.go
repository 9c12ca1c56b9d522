package docker

import (
	"context"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTTL is how long a pid to container mapping is reused. Container
// membership changes far less often than the sampling interval.
const DefaultTTL = 5 * time.Second

// Resolver maps host pids to the name of the container running them.
type Resolver struct {
	client ContainerClient
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	owners  map[int]string
	fetched time.Time
}

func NewResolver(client ContainerClient, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		client: client,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Attribute returns pid -> container name. A container that exits between
// the list and top calls is skipped. The result is cached for the TTL; on a
// list failure the stale mapping is kept and the error returned.
func (r *Resolver) Attribute(ctx context.Context) (map[int]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners != nil && r.now().Sub(r.fetched) < r.ttl {
		return maps.Clone(r.owners), nil
	}

	containers, err := r.client.ListContainers(ctx)
	if err != nil {
		return maps.Clone(r.owners), err
	}

	pidSets := make([][]int, len(containers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range containers {
		g.Go(func() error {
			pids, err := r.client.ContainerPIDs(gctx, c.ID)
			if err != nil {
				r.logger.Debug("container top failed", zap.String("container", c.Name), zap.Error(err))
				return nil
			}
			pidSets[i] = pids
			return nil
		})
	}
	// workers swallow per-container failures, so Wait only reports nil
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return maps.Clone(r.owners), err
	}

	owners := make(map[int]string)
	for i, c := range containers {
		for _, pid := range pidSets[i] {
			owners[pid] = c.Name
		}
	}

	r.owners = owners
	r.fetched = r.now()
	r.logger.Debug("container attribution refreshed",
		zap.Int("containers", len(containers)),
		zap.Int("pids", len(owners)),
	)
	return maps.Clone(owners), nil
}

// Invalidate forces the next Attribute call to query the daemon.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.owners = nil
	r.mu.Unlock()
}
