package swarm

import (
	"context"
	"errors"
	"testing"
	"time"

	dockerevents "github.com/docker/docker/api/types/events"
	dockerswarm "github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	info    system.Info
	infoErr error

	msgs chan dockerevents.Message
	errs chan error

	lastOptions dockerevents.ListOptions
}

func (f *fakeEngine) Info(ctx context.Context) (system.Info, error) {
	return f.info, f.infoErr
}

func (f *fakeEngine) Events(ctx context.Context, options dockerevents.ListOptions) (<-chan dockerevents.Message, <-chan error) {
	f.lastOptions = options
	return f.msgs, f.errs
}

func (f *fakeEngine) Close() error { return nil }

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		info: system.Info{
			Name: "node-1",
			Swarm: dockerswarm.Info{
				NodeID:         "abcdef",
				LocalNodeState: dockerswarm.LocalNodeStateActive,
			},
		},
		msgs: make(chan dockerevents.Message),
		errs: make(chan error, 1),
	}
}

func TestVerifyMembership_Active(t *testing.T) {
	c := newWithAPI(newFakeEngine(), zap.NewNop())
	require.NoError(t, c.VerifyMembership(context.Background()))
}

func TestVerifyMembership_EngineUnreachable(t *testing.T) {
	engine := newFakeEngine()
	engine.infoErr = errors.New("cannot connect to the Docker daemon")
	c := newWithAPI(engine, zap.NewNop())

	err := c.VerifyMembership(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker engine unreachable")
}

func TestVerifyMembership_NotInSwarm(t *testing.T) {
	engine := newFakeEngine()
	engine.info.Swarm.LocalNodeState = dockerswarm.LocalNodeStateInactive
	c := newWithAPI(engine, zap.NewNop())

	err := c.VerifyMembership(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an active swarm member")
}

func TestNodeName(t *testing.T) {
	c := newWithAPI(newFakeEngine(), zap.NewNop())
	name, err := c.NodeName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node-1", name)
}

func TestSubscribe_AppliesServerSideFilters(t *testing.T) {
	engine := newFakeEngine()
	c := newWithAPI(engine, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Subscribe(ctx)

	f := engine.lastOptions.Filters
	assert.Equal(t, []string{"container"}, f.Get("type"))
	assert.ElementsMatch(t, []string{"start", "die"}, f.Get("event"))
}

func TestSubscribe_ConvertsMessages(t *testing.T) {
	engine := newFakeEngine()
	c := newWithAPI(engine, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := c.Subscribe(ctx)

	engine.msgs <- dockerevents.Message{
		Action: "start",
		Actor: dockerevents.Actor{
			ID: "c0ffee",
			Attributes: map[string]string{
				"name":                          "web-1",
				"com.docker.swarm.service.name": "web",
			},
		},
		Time:     1700000000,
		TimeNano: 1700000000123456789,
	}

	select {
	case raw := <-events:
		assert.Equal(t, "start", raw.Action)
		assert.Equal(t, "web-1", raw.Attributes["name"])
		assert.Equal(t, int64(1700000000), raw.Time)
		assert.Equal(t, int64(1700000000123456789), raw.TimeNano)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for converted event")
	}
}

func TestSubscribe_MissingTimestampDefaultsToNow(t *testing.T) {
	engine := newFakeEngine()
	c := newWithAPI(engine, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := c.Subscribe(ctx)

	engine.msgs <- dockerevents.Message{Action: "start"}

	select {
	case raw := <-events:
		assert.NotZero(t, raw.Time)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for converted event")
	}
}

func TestSubscribe_StreamErrorBecomesFault(t *testing.T) {
	engine := newFakeEngine()
	c := newWithAPI(engine, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, faults := c.Subscribe(ctx)

	streamErr := errors.New("unexpected EOF")
	engine.errs <- streamErr

	select {
	case err := <-faults:
		var fault *StreamFault
		require.ErrorAs(t, err, &fault)
		assert.ErrorIs(t, err, streamErr)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stream fault")
	}

	// The event channel closes after a fault.
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel was not closed")
	}
}

func TestSubscribe_ContextCancellationIsNotAFault(t *testing.T) {
	engine := newFakeEngine()
	c := newWithAPI(engine, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	events, faults := c.Subscribe(ctx)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel was not closed")
	}
	select {
	case err := <-faults:
		t.Fatalf("unexpected fault: %v", err)
	default:
	}
}

func TestSubscribe_CancelledStreamErrorIsNotAFault(t *testing.T) {
	engine := newFakeEngine()
	c := newWithAPI(engine, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, faults := c.Subscribe(ctx)

	// The docker client surfaces the context error on its error channel
	// when the subscription context is cancelled.
	engine.errs <- context.Canceled

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel was not closed")
	}
	select {
	case err := <-faults:
		t.Fatalf("unexpected fault: %v", err)
	default:
	}
}
