// Package connectivity tracks the online/offline state of the process.
//
// The monitor is pure event plumbing: connectivity is asserted from outside
// via Set (there is no polling loop, no retry, no backoff), the initial state
// is read once from a probe at construction, and interested components
// subscribe to transitions.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/mlodari/camposanto/internal/events"
	"github.com/mlodari/camposanto/internal/logging"
)

type Monitor struct {
	logger logging.Logger

	changes   *events.Emitter[bool]
	durations *events.Emitter[time.Duration]

	mu          sync.Mutex
	online      bool
	wentOffline time.Time

	now func() time.Time
}

// NewMonitor builds a monitor whose initial state comes from probe. A nil
// probe starts the monitor offline until someone asserts otherwise.
func NewMonitor(probe func() bool, logger logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &Monitor{
		logger:    logger,
		changes:   events.NewEmitter[bool](),
		durations: events.NewEmitter[time.Duration](),
		now:       time.Now,
	}
	if probe != nil {
		m.online = probe()
	}
	if !m.online {
		m.wentOffline = m.now()
	}
	return m
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set asserts the current connectivity. A no-op when the state is unchanged;
// otherwise the transition is published to subscribers. On offline→online
// the time spent offline is published as a metric.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	var offlineFor time.Duration
	if online {
		offlineFor = m.now().Sub(m.wentOffline)
	} else {
		m.wentOffline = m.now()
	}
	m.mu.Unlock()

	if online {
		m.logger.Info(context.Background(), "connection restored", "offline_for", offlineFor)
		m.durations.Emit(offlineFor)
	} else {
		m.logger.Info(context.Background(), "connection lost")
	}
	m.changes.Emit(online)
}

// OnChange subscribes to transitions; the payload is the new state.
func (m *Monitor) OnChange(fn func(online bool)) (unsubscribe func()) {
	return m.changes.Subscribe(fn)
}

// OnOfflineDuration subscribes to the offline-duration metric emitted on
// each offline→online transition.
func (m *Monitor) OnOfflineDuration(fn func(d time.Duration)) (unsubscribe func()) {
	return m.durations.Subscribe(fn)
}
