package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
)

// Config sisältää Docker client konfiguraation
type Config struct {
	Host      string
	TLSVerify bool
	CertPath  string
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:    "unix:///var/run/docker.sock",
		Timeout: 5 * time.Second,
	}
}

// Client wraps the Docker API calls needed to attribute host pids.
type Client struct {
	api     API
	timeout time.Duration
}

// NewClient connects to the daemon and pings it once so a missing socket
// fails at startup instead of on the first refresh.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	opts := []client.Opt{
		client.WithHost(cfg.Host),
		client.WithAPIVersionNegotiation(),
	}

	if cfg.TLSVerify {
		opts = append(opts, client.WithTLSClientConfig(
			cfg.CertPath+"/ca.pem",
			cfg.CertPath+"/cert.pem",
			cfg.CertPath+"/key.pem",
		))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker ping %s: %w", cfg.Host, err)
	}

	return NewClientWithAPI(cli, cfg.Timeout), nil
}

// NewClientWithAPI builds a Client around an existing API implementation.
func NewClientWithAPI(api API, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{api: api, timeout: timeout}
}

// Close sulkee yhteyden
func (c *Client) Close() error {
	if closer, ok := c.api.(interface{ Close() error }); ok && closer != nil {
		return closer.Close()
	}
	return nil
}
