package fsm

import (
	"context"

	"github.com/cuemby/crld/internal/configstore"
	"github.com/cuemby/crld/internal/executor"
	"github.com/cuemby/crld/internal/health"
	"github.com/cuemby/crld/internal/log"
	"github.com/cuemby/crld/internal/metrics"
	"github.com/cuemby/crld/internal/worldops"
)

// queueItem is one pending create or stop request. Completion is
// observed the same way any other transition is: the worker's eventual
// Signal(key, SigDown/SigFail) call re-enters apply, which wakes any
// SignalAndWait caller registered as a waiter for key.
type queueItem struct {
	key WorldKey
}

// command is a single signal submitted to the FSM actor goroutine.
// register, when non-nil, is closed once key next reaches a resting
// state (no pending async action) — the mechanism SignalAndWait uses to
// reproduce the original's "await the next settle" recursion without a
// literal recursive call.
type command struct {
	key      WorldKey
	sig      WorldSignal
	register chan struct{}
}

// readRequest is a State() query answered by the actor goroutine, kept
// separate from the command channel so status polling never competes
// with signal delivery ordering.
type readRequest struct {
	key   WorldKey
	reply chan<- WorldState
}

// worldOps is the subset of *worldops.Ops the FSM drives. Declared as an
// interface here, rather than taking the concrete type, so tests can
// substitute a fake that never shells out to docker.
type worldOps interface {
	Create(ctx context.Context, event, user string) bool
	Start(ctx context.Context, event, user string) bool
	Stop(ctx context.Context, event, user string) bool
	Delete(ctx context.Context, event, user string) bool
}

// healthChecker is the subset of *health.Reconciler the FSM drives.
type healthChecker interface {
	Check(ctx context.Context, event, user string) (health.Health, error)
}

// peerConfigChecker is the subset of *configstore.Store CheckIntegrity
// needs.
type peerConfigChecker interface {
	PeerConfigExists(event, user string) bool
}

// FSM is the single funnel described in spec.md 4.E: one goroutine owns
// the state map and the two serializer queues; every signal, whether
// from an HTTP handler, the health reconciler, or a completed blocking
// op, is delivered by sending on the actor's channel. No other goroutine
// ever reads or writes the state map directly.
type FSM struct {
	store  peerConfigChecker
	ops    worldOps
	reconc healthChecker

	commands    chan command
	reads       chan readRequest
	countReqs   chan chan<- map[string]int
	createQueue chan queueItem
	stopQueue   chan queueItem

	states  map[WorldKey]WorldState
	waiters map[WorldKey][]chan struct{}
}

// New builds an FSM actor. Call Run to start its goroutine and the two
// queue workers before serving any HTTP traffic.
func New(store *configstore.Store, ops *worldops.Ops, reconc *health.Reconciler) *FSM {
	return newFSM(store, ops, reconc)
}

func newFSM(store peerConfigChecker, ops worldOps, reconc healthChecker) *FSM {
	return &FSM{
		store:       store,
		ops:         ops,
		reconc:      reconc,
		commands:    make(chan command, 256),
		reads:       make(chan readRequest),
		countReqs:   make(chan chan<- map[string]int),
		createQueue: make(chan queueItem, 256),
		stopQueue:   make(chan queueItem, 256),
		states:      make(map[WorldKey]WorldState),
		waiters:     make(map[WorldKey][]chan struct{}),
	}
}

// Run starts the actor loop and the two serializer queue workers. It
// blocks until ctx is cancelled, so callers should run it in its own
// goroutine.
func (f *FSM) Run(ctx context.Context) {
	go f.runCreateWorker(ctx)
	go f.runStopWorker(ctx)
	f.runActor(ctx)
}

func (f *FSM) runActor(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-f.commands:
			f.apply(ctx, cmd.key, cmd.sig, cmd.register)
		case req := <-f.reads:
			req.reply <- f.stateLocked(req.key)
		case reply := <-f.countReqs:
			reply <- f.countsLocked()
		}
	}
}

// Signal enqueues sig for key and returns immediately; the actor
// goroutine applies it asynchronously. This is the funnel every other
// package uses to drive the FSM — never mutate states directly.
func (f *FSM) Signal(key WorldKey, sig WorldSignal) {
	f.commands <- command{key: key, sig: sig}
}

// SignalAndWait delivers sig and blocks until key settles into a resting
// state (no transition-triggered side effect still pending), returning
// that state. This is how HTTP handlers reproduce the original's
// recursive "await user_fsm(...)" chains — create, then once settled
// decide whether to also signal start — using a channel instead of a
// suspended coroutine.
func (f *FSM) SignalAndWait(key WorldKey, sig WorldSignal) WorldState {
	done := make(chan struct{})
	f.commands <- command{key: key, sig: sig, register: done}
	<-done
	return f.State(key)
}

// State returns the world's current state. Safe to call concurrently
// from any goroutine; it never blocks on the command queue, only on the
// actor picking up the read request.
func (f *FSM) State(key WorldKey) WorldState {
	reply := make(chan WorldState, 1)
	f.reads <- readRequest{key: key, reply: reply}
	return <-reply
}

// StateCounts reports how many worlds sit in each state, keyed by
// WorldState.String(). Satisfies metrics.StateCounter.
func (f *FSM) StateCounts() map[string]int {
	reply := make(chan map[string]int, 1)
	f.countReqs <- reply
	return <-reply
}

func (f *FSM) stateLocked(key WorldKey) WorldState {
	s, ok := f.states[key]
	if !ok {
		return NotFound
	}
	return s
}

func (f *FSM) countsLocked() map[string]int {
	counts := make(map[string]int)
	for _, s := range f.states {
		counts[s.String()]++
	}
	return counts
}

// QueueDepths reports the current buffered length of the create and
// stop queues. Safe to call concurrently: len() on a channel is a
// lock-free read of its internal counter. Satisfies metrics.QueueDepths.
func (f *FSM) QueueDepths() (create int, stop int) {
	return len(f.createQueue), len(f.stopQueue)
}

// apply runs one transition and, where the table calls for it, dispatches
// the side effect (queue enqueue, blocking op, health check) that
// eventually feeds a further signal back through Signal. If register is
// non-nil it is added to key's waiter list before the transition runs,
// so a transition that settles immediately (a no-op signal on a resting
// state, or one whose action is actionNone) still wakes it. A no-op signal
// on a state whose side effect is still in flight (checking, creating,
// starting, stopping) leaves its waiters registered until that side
// effect's own signal arrives.
func (f *FSM) apply(ctx context.Context, key WorldKey, sig WorldSignal, register chan struct{}) {
	if register != nil {
		f.waiters[key] = append(f.waiters[key], register)
	}

	old := f.stateLocked(key)
	next, action := transition(old, sig)
	if next == old && action == actionNone {
		// An empty transition-table cell: no transition, but the signal
		// is still logged, mirroring crld.py's set_fsm_state logging
		// unconditionally even on its fallthrough case.
		logTransition(key, old, next, sig)
		switch old {
		case Checking, Creating, Starting, Stopping:
			return
		}
		f.settle(key)
		return
	}
	f.states[key] = next
	logTransition(key, old, next, sig)
	metrics.FSMTransitionsTotal.WithLabelValues(sig.String()).Inc()

	switch action {
	case actionEnqueueCreate:
		f.createQueue <- queueItem{key: key}
	case actionEnqueueStop:
		f.stopQueue <- queueItem{key: key}
	case actionRunStart:
		f.runStart(key)
	case actionRunCheck:
		f.runCheck(key)
	case actionRunDelete:
		// Fire-and-forget cleanup: notfound is already the settled
		// state, the delete itself gates nothing further.
		f.runDelete(key)
	}

	// actionNone and actionRunDelete both resolve to a resting state
	// with no further signal expected back into this key; the other
	// actions (enqueue, start, check) have a later Signal call on the
	// way and must keep their waiters registered until it arrives.
	if action == actionNone || action == actionRunDelete {
		f.settle(key)
	}
}

// settle wakes every waiter registered for key and clears the list. Only
// called when key has just reached a resting state: either a no-op
// signal on a resting state or a transition whose action was actionNone
// or actionRunDelete (running, stopped, notfound — never a state with a
// pending async side effect).
func (f *FSM) settle(key WorldKey) {
	for _, ch := range f.waiters[key] {
		close(ch)
	}
	delete(f.waiters, key)
}

func (f *FSM) runStart(key WorldKey) {
	timer := metrics.NewTimer()
	executor.Run(func(ctx context.Context) bool {
		return f.ops.Start(ctx, key.Event, key.User)
	}, func() {
		timer.ObserveDurationVec(metrics.BlockingOpDuration, "start")
		f.Signal(key, SigUp)
	}, func() {
		timer.ObserveDurationVec(metrics.BlockingOpDuration, "start")
		f.Signal(key, SigFail)
	})
}

// runDelete performs the creating-state failure cleanup: a best-effort
// delete of lingering files. It is fire-and-forget — the state has
// already moved to notfound in apply, so there is no further signal to
// emit regardless of whether the delete itself succeeds.
func (f *FSM) runDelete(key WorldKey) {
	timer := metrics.NewTimer()
	executor.Run(func(ctx context.Context) bool {
		return f.ops.Delete(ctx, key.Event, key.User)
	}, func() {
		timer.ObserveDurationVec(metrics.BlockingOpDuration, "delete")
	}, func() {
		timer.ObserveDurationVec(metrics.BlockingOpDuration, "delete")
	})
}

func (f *FSM) runCheck(key WorldKey) {
	timer := metrics.NewTimer()
	var resultSig WorldSignal
	executor.Run(func(ctx context.Context) bool {
		h, err := f.reconc.Check(ctx, key.Event, key.User)
		if err != nil {
			transitionLogger.Warn().Err(err).Str("event", key.Event).Str("user", key.User).Msg("health check failed")
			resultSig = SigFail
			return true
		}
		if h == health.Up || h == health.Degraded {
			resultSig = SigUp
		} else {
			resultSig = SigDown
		}
		return true
	}, func() {
		timer.ObserveDurationVec(metrics.BlockingOpDuration, "check")
		f.Signal(key, resultSig)
	}, func() {
		timer.ObserveDurationVec(metrics.BlockingOpDuration, "check")
		f.Signal(key, SigFail)
	})
}

func (f *FSM) runCreateWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-f.createQueue:
			timer := metrics.NewTimer()
			ok := false
			executor.RunSync(func(ctx context.Context) bool {
				return f.ops.Create(ctx, item.key.Event, item.key.User)
			}, func() { ok = true }, func() { ok = false })
			timer.ObserveDurationVec(metrics.BlockingOpDuration, "create")
			if ok {
				f.Signal(item.key, SigDown)
			} else {
				f.Signal(item.key, SigFail)
			}
		}
	}
}

func (f *FSM) runStopWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-f.stopQueue:
			timer := metrics.NewTimer()
			ok := false
			executor.RunSync(func(ctx context.Context) bool {
				return f.ops.Stop(ctx, item.key.Event, item.key.User)
			}, func() { ok = true }, func() { ok = false })
			timer.ObserveDurationVec(metrics.BlockingOpDuration, "stop")
			if ok {
				f.Signal(item.key, SigDown)
			} else {
				f.Signal(item.key, SigFail)
			}
		}
	}
}

var transitionLogger = log.WithComponent("fsm")

func logTransition(key WorldKey, old, next WorldState, sig WorldSignal) {
	transitionLogger.Info().Msgf("event=%s user=%s %s->%s (%s)", key.Event, key.User, old, next, sig)
}
