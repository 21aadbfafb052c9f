// Package event defines the container lifecycle event model and the
// pure classifier that maps raw engine events into notification kinds.
package event

import "time"

// Actor attribute keys set by the Docker engine on container events.
const (
	attrName    = "name"
	attrService = "com.docker.swarm.service.name"
)

// Actions in the monitored set. The engine emits "die" for every
// container-stop path (graceful exit, crash, kill), so it is the
// canonical stopped signal.
const (
	actionStart = "start"
	actionDie   = "die"
)

// Kind is the lifecycle state surfaced to the user.
type Kind string

const (
	KindUnknown Kind = ""
	KindStarted Kind = "started"
	KindStopped Kind = "stopped"
	// KindRestarted is reserved vocabulary. The formatter renders it,
	// but no classification path produces it: only start/die actions
	// are observed, and there is no restart detection.
	KindRestarted Kind = "restarted"
)

// Raw is a container lifecycle event as received from the engine.
// Consumed once, never stored.
type Raw struct {
	Action     string
	Attributes map[string]string
	// Time is the event time in seconds since epoch; TimeNano is the
	// same in nanoseconds and wins when set. Source-provided, so it may
	// lag wall clock.
	Time     int64
	TimeNano int64
}

// OccurredAt returns the event time as reported by the source.
func (r Raw) OccurredAt() time.Time {
	if r.TimeNano > 0 {
		return time.Unix(0, r.TimeNano)
	}
	return time.Unix(r.Time, 0)
}

// Classified is a raw event resolved to a monitored workload and a
// notification kind. In-memory only.
type Classified struct {
	// Entity is the container name ("unknown" when the engine did not
	// report one).
	Entity string
	// Service is the swarm service the container belongs to.
	Service string
	// Kind is the notification kind the action mapped to.
	Kind Kind
	// OccurredAt is the source-reported event time.
	OccurredAt time.Time
}

// Classify maps a raw engine event to a classified one. It reports
// false, silently, for events outside the monitored scope: containers
// without a swarm service attribute, and actions other than start/die.
// Pure function of its input.
func Classify(raw Raw) (Classified, bool) {
	service := raw.Attributes[attrService]
	if service == "" {
		return Classified{}, false
	}

	var kind Kind
	switch raw.Action {
	case actionStart:
		kind = KindStarted
	case actionDie:
		kind = KindStopped
	default:
		return Classified{}, false
	}

	name := raw.Attributes[attrName]
	if name == "" {
		name = "unknown"
	}

	return Classified{
		Entity:     name,
		Service:    service,
		Kind:       kind,
		OccurredAt: raw.OccurredAt(),
	}, true
}
