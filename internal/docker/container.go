// internal/docker/container.go
package docker

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/rusenback/procmon/internal/model"
)

// ListContainers palauttaa käynnissä olevat containerit
func (c *Client) ListContainers(ctx context.Context) ([]model.Container, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	containers, err := c.api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, err
	}

	result := make([]model.Container, 0, len(containers))
	for _, cont := range containers {
		result = append(result, model.Container{
			ID:    shortID(cont.ID),
			Name:  containerName(cont.Names, cont.ID),
			Image: cont.Image,
		})
	}

	return result, nil
}

// containerName picks the first name without Docker's leading "/".
func containerName(names []string, id string) string {
	for _, n := range names {
		if n = strings.TrimPrefix(n, "/"); n != "" {
			return n
		}
	}
	return shortID(id)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
