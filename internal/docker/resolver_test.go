package docker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAPI struct {
	containers []types.Container
	tops       map[string]container.ContainerTopOKBody
	listErr    error
	listCalls  int
}

func (f *fakeAPI) ContainerList(context.Context, container.ListOptions) ([]types.Container, error) {
	f.listCalls++
	return f.containers, f.listErr
}

func (f *fakeAPI) ContainerTop(_ context.Context, id string, _ []string) (container.ContainerTopOKBody, error) {
	top, ok := f.tops[id]
	if !ok {
		return container.ContainerTopOKBody{}, errors.New("no such container: " + id)
	}
	return top, nil
}

var psTitles = []string{"UID", "PID", "PPID", "C", "STIME", "TTY", "TIME", "CMD"}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		containers: []types.Container{
			{ID: "0123456789abcdef0123", Names: []string{"/web"}, Image: "nginx:1.25"},
			{ID: "fedcba9876543210fedc", Names: []string{"/db"}, Image: "postgres:16"},
			{ID: "aaaaaaaaaaaaaaaaaaaa", Names: []string{"/gone"}, Image: "busybox"},
		},
		tops: map[string]container.ContainerTopOKBody{
			"0123456789ab": {Titles: psTitles, Processes: [][]string{
				{"root", "3100", "3080", "0", "10:00", "?", "00:00:01", "nginx: master process"},
				{"101", "3121", "3100", "0", "10:00", "?", "00:00:00", "nginx: worker process"},
			}},
			"fedcba987654": {Titles: psTitles, Processes: [][]string{
				{"999", "4200", "4180", "2", "10:01", "?", "00:01:12", "postgres"},
				{"999", "bogus", "4200", "0", "10:01", "?", "00:00:00", "postgres: checkpointer"},
			}},
		},
	}
}

func TestListContainersTrimsNames(t *testing.T) {
	c := NewClientWithAPI(newFakeAPI(), time.Second)

	got, err := c.ListContainers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "0123456789ab", got[0].ID)
	assert.Equal(t, "web", got[0].Name)
	assert.Equal(t, "postgres:16", got[1].Image)
}

func TestContainerPIDs(t *testing.T) {
	c := NewClientWithAPI(newFakeAPI(), time.Second)

	pids, err := c.ContainerPIDs(context.Background(), "fedcba987654")
	require.NoError(t, err)
	assert.Equal(t, []int{4200}, pids)
}

func TestContainerPIDsWithoutPIDColumn(t *testing.T) {
	api := newFakeAPI()
	api.tops["odd"] = container.ContainerTopOKBody{Titles: []string{"CMD"}, Processes: [][]string{{"sh"}}}
	c := NewClientWithAPI(api, time.Second)

	_, err := c.ContainerPIDs(context.Background(), "odd")
	assert.Error(t, err)
}

func TestResolverAttribute(t *testing.T) {
	r := NewResolver(NewClientWithAPI(newFakeAPI(), time.Second), time.Minute, zaptest.NewLogger(t))

	owners, err := r.Attribute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{3100: "web", 3121: "web", 4200: "db"}, owners)
}

func TestResolverCachesUntilTTL(t *testing.T) {
	api := newFakeAPI()
	r := NewResolver(NewClientWithAPI(api, time.Second), 10*time.Second, zaptest.NewLogger(t))
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, err := r.Attribute(context.Background())
	require.NoError(t, err)
	_, err = r.Attribute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCalls)

	now = now.Add(11 * time.Second)
	_, err = r.Attribute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)

	r.Invalidate()
	_, err = r.Attribute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, api.listCalls)
}

func TestResolverKeepsStaleMappingOnListFailure(t *testing.T) {
	api := newFakeAPI()
	r := NewResolver(NewClientWithAPI(api, time.Second), time.Nanosecond, zaptest.NewLogger(t))

	_, err := r.Attribute(context.Background())
	require.NoError(t, err)

	api.listErr = errors.New("daemon restarting")
	owners, err := r.Attribute(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "db", owners[4200])
}

func TestResolverDoesNotCacheCancelledRefresh(t *testing.T) {
	api := newFakeAPI()
	r := NewResolver(NewClientWithAPI(api, time.Second), time.Minute, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	owners, err := r.Attribute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, owners)

	owners, err = r.Attribute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, "web", owners[3100])
}
