package statsd

import (
	"log/slog"

	"github.com/DataDog/datadog-go/statsd"

	shared "github.com/geohive/server/pkg"
)

// StatsD wrapper using the DataDog library, which added tags to the
// protocol. Default agent host is "127.0.0.1:8125".

const (
	// prefix is prepended to each metric name.
	prefix = "geohive."

	// bufferLen is the statsd client buffer size.
	bufferLen = 1024
)

var _ shared.StatsClient = (*Client)(nil)

// Client emits tagged counters to a statsd agent. Emission failures are
// logged, never surfaced: metrics must not fail a payload.
type Client struct {
	client *statsd.Client
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger) (*Client, error) {
	c, err := statsd.NewBuffered(addr, bufferLen)
	if err != nil {
		return nil, err
	}
	return &Client{client: c, logger: logger}, nil
}

func (c *Client) Count(name string, value int64, tags ...string) {
	if err := c.client.Count(prefix+name, value, tags, 1); err != nil {
		c.logger.Warn("statsd count failed", "metric", name, "error", err)
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Nop is a stats client that does nothing, used when no agent is
// configured.
type Nop struct{}

func (Nop) Count(name string, value int64, tags ...string) {}
func (Nop) Close() error                                   { return nil }
