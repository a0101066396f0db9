package metrics

import (
	"sync"
	"time"

	"github.com/cuemby/crld/internal/log"
)

var collectorLogger = log.WithComponent("metrics")

// StateCounter reports how many worlds currently sit in each FSM state,
// keyed by WorldState.String(). Supplied by internal/fsm at Collector
// construction time, so this package never imports fsm back.
type StateCounter func() map[string]int

// QueueDepths reports the current depth of the create and stop
// serializer queues, in that order.
type QueueDepths func() (create int, stop int)

// Collector periodically samples world-state counts and queue depths
// into the corresponding gauges. Transition counts and op durations are
// recorded inline by their callers and need no sampling.
type Collector struct {
	interval time.Duration
	states   StateCounter
	queues   QueueDepths

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewCollector builds a Collector that samples every interval.
func NewCollector(interval time.Duration, states StateCounter, queues QueueDepths) *Collector {
	return &Collector{interval: interval, states: states, queues: queues}
}

// Start begins the sampling ticker. Calling Start twice without an
// intervening Stop is a no-op.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.stopCh = make(chan struct{})
	c.running = true
	go c.run(c.stopCh)
}

// Stop halts the sampling ticker. Safe to call even if Start was never
// called.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.stopCh)
	c.running = false
}

func (c *Collector) run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sample()
		case <-stop:
			return
		}
	}
}

func (c *Collector) sample() {
	if c.states != nil {
		counts := c.states()
		WorldStates.Reset()
		for state, n := range counts {
			WorldStates.WithLabelValues(state).Set(float64(n))
		}
	}
	if c.queues != nil {
		create, stop := c.queues()
		CreateQueueDepth.Set(float64(create))
		StopQueueDepth.Set(float64(stop))
	}
	collectorLogger.Debug().Msg("metrics sample collected")
}
