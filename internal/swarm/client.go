// Package swarm wraps the Docker Engine API: connectivity and swarm
// membership checks, and the filtered container event subscription.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	dockerevents "github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	dockerswarm "github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/event"
)

// StreamFault reports that the engine event stream broke while
// monitoring. It is fatal: there is no automatic reconnect, recovery is
// an external process restart.
type StreamFault struct {
	Err error
}

func (f *StreamFault) Error() string {
	return fmt.Sprintf("event stream fault: %v", f.Err)
}

func (f *StreamFault) Unwrap() error { return f.Err }

// engineAPI is the slice of the Docker API client the monitor needs.
type engineAPI interface {
	Info(ctx context.Context) (system.Info, error)
	Events(ctx context.Context, options dockerevents.ListOptions) (<-chan dockerevents.Message, <-chan error)
	Close() error
}

// Client wraps a Docker engine connection for event monitoring.
type Client struct {
	api    engineAPI
	logger *zap.Logger
}

// New connects to the engine using the standard environment settings
// (DOCKER_HOST and friends) with API version negotiation.
func New(logger *zap.Logger) (*Client, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newWithAPI(api, logger), nil
}

func newWithAPI(api engineAPI, logger *zap.Logger) *Client {
	return &Client{api: api, logger: logger.Named("swarm")}
}

// Close releases the underlying engine connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// VerifyMembership checks that the engine is reachable and that the
// local node is an active swarm member. A failure here is a startup
// precondition violation, never a retry target.
func (c *Client) VerifyMembership(ctx context.Context) error {
	info, err := c.api.Info(ctx)
	if err != nil {
		return fmt.Errorf("docker engine unreachable: %w", err)
	}
	if info.Swarm.LocalNodeState != dockerswarm.LocalNodeStateActive {
		return fmt.Errorf("node is not an active swarm member (state %q)", info.Swarm.LocalNodeState)
	}
	c.logger.Info("Connected to Docker Swarm",
		zap.String("node", info.Name),
		zap.String("node_id", info.Swarm.NodeID),
	)
	return nil
}

// NodeName returns the engine-reported hostname.
func (c *Client) NodeName(ctx context.Context) (string, error) {
	info, err := c.api.Info(ctx)
	if err != nil {
		return "", fmt.Errorf("query engine info: %w", err)
	}
	return info.Name, nil
}

// Subscribe opens the engine event stream, server-side filtered to
// container start/die events. The filter is an optimization only: the
// classifier re-validates every event. Stream errors surface on the
// returned error channel as *StreamFault; context cancellation closes
// the event channel without a fault.
func (c *Client) Subscribe(ctx context.Context) (<-chan event.Raw, <-chan error) {
	f := filters.NewArgs(
		filters.Arg("type", string(dockerevents.ContainerEventType)),
		filters.Arg("event", "start"),
		filters.Arg("event", "die"),
	)
	msgs, errs := c.api.Events(ctx, dockerevents.ListOptions{Filters: f})

	out := make(chan event.Raw)
	faults := make(chan error, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				faults <- &StreamFault{Err: err}
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- toRaw(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, faults
}

// toRaw converts an engine event message. Events without a timestamp
// (never observed from a real engine) default to the receive time.
func toRaw(msg dockerevents.Message) event.Raw {
	raw := event.Raw{
		Action:     string(msg.Action),
		Attributes: msg.Actor.Attributes,
		Time:       msg.Time,
		TimeNano:   msg.TimeNano,
	}
	if raw.Time == 0 && raw.TimeNano == 0 {
		raw.Time = time.Now().Unix()
	}
	return raw
}
