// Package dockerutil builds Docker Engine API clients.
package dockerutil

import (
	"github.com/docker/docker/client"
)

// NewDockerClient returns a docker client configured from the standard
// DOCKER_* environment variables. The API version is negotiated with the
// daemon on first use, so older Swarm managers keep working.
func NewDockerClient(opts ...client.Opt) (*client.Client, error) {
	opts = append([]client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, opts...)
	return client.NewClientWithOpts(opts...)
}
