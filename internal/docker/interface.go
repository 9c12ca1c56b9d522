// internal/docker/interface.go
package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/rusenback/procmon/internal/model"
)

// API is the slice of the Docker engine client this package calls.
type API interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerTop(ctx context.Context, containerID string, arguments []string) (container.ContainerTopOKBody, error)
}

// ContainerClient interface mahdollistaa mockauksen testeissä
type ContainerClient interface {
	ListContainers(ctx context.Context) ([]model.Container, error)
	ContainerPIDs(ctx context.Context, id string) ([]int, error)
	Close() error
}

// Varmista että Client toteuttaa interfacen
var (
	_ API             = (*client.Client)(nil)
	_ ContainerClient = (*Client)(nil)
)
