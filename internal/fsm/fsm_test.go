package fsm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/crld/internal/health"
)

// fakeStore always reports the given presence, regardless of key.
type fakeStore struct{ present bool }

func (f fakeStore) PeerConfigExists(event, user string) bool { return f.present }

// fakeOps lets tests script Create/Start/Stop/Delete outcomes and counts
// calls and concurrent invocations of Create, needed for the V2
// serialization check.
type fakeOps struct {
	createResult, startResult, stopResult, deleteResult bool

	mu              sync.Mutex
	inFlightCreate  int32
	maxFlightCreate int32
	createCalls     int32
}

func (f *fakeOps) Create(ctx context.Context, event, user string) bool {
	n := atomic.AddInt32(&f.inFlightCreate, 1)
	atomic.AddInt32(&f.createCalls, 1)
	f.mu.Lock()
	if n > f.maxFlightCreate {
		f.maxFlightCreate = n
	}
	f.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&f.inFlightCreate, -1)
	return f.createResult
}

func (f *fakeOps) Start(ctx context.Context, event, user string) bool  { return f.startResult }
func (f *fakeOps) Stop(ctx context.Context, event, user string) bool   { return f.stopResult }
func (f *fakeOps) Delete(ctx context.Context, event, user string) bool { return f.deleteResult }

type fakeHealth struct {
	result health.Health
	err    error
}

func (f fakeHealth) Check(ctx context.Context, event, user string) (health.Health, error) {
	return f.result, f.err
}

// dynamicHealth is a healthChecker whose result can be changed between
// checks, for tests that need a world's health to change after it has
// already settled into a state.
type dynamicHealth struct {
	mu     sync.Mutex
	result health.Health
}

func (d *dynamicHealth) set(h health.Health) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = h
}

func (d *dynamicHealth) Check(ctx context.Context, event, user string) (health.Health, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, nil
}

func newTestFSM(store peerConfigChecker, ops worldOps, hc healthChecker) (*FSM, context.CancelFunc) {
	f := newFSM(store, ops, hc)
	ctx, cancel := context.WithCancel(context.Background())
	go f.Run(ctx)
	return f, cancel
}

func TestTransitionTableV1(t *testing.T) {
	cases := []struct {
		state  WorldState
		sig    WorldSignal
		want   WorldState
		action action
	}{
		{NotFound, SigCreate, Creating, actionEnqueueCreate},
		{NotFound, SigCheck, Checking, actionRunCheck},
		{NotFound, SigStart, NotFound, actionNone},
		{Checking, SigUp, Running, actionNone},
		{Checking, SigDown, Stopped, actionNone},
		{Checking, SigFail, NotFound, actionNone},
		{Creating, SigDown, Stopped, actionNone},
		{Creating, SigFail, NotFound, actionRunDelete},
		{Stopped, SigStart, Starting, actionRunStart},
		{Stopped, SigCheck, Checking, actionRunCheck},
		{Stopped, SigStop, Stopped, actionNone},
		{Starting, SigUp, Running, actionNone},
		{Starting, SigFail, Stopped, actionNone},
		{Starting, SigDown, Starting, actionNone},
		{Running, SigStop, Stopping, actionEnqueueStop},
		{Running, SigCheck, Checking, actionRunCheck},
		{Running, SigCreate, Running, actionNone},
		{Stopping, SigDown, Stopped, actionNone},
		{Stopping, SigFail, Stopped, actionNone},
	}
	for _, c := range cases {
		got, act := transition(c.state, c.sig)
		if got != c.want || act != c.action {
			t.Errorf("transition(%s, %s) = (%s, %d); want (%s, %d)", c.state, c.sig, got, act, c.want, c.action)
		}
	}
}

func TestSignalAndWaitCreateToRunning(t *testing.T) {
	ops := &fakeOps{createResult: true, startResult: true}
	hc := fakeHealth{result: health.Up}
	f, cancel := newTestFSM(fakeStore{present: false}, ops, hc)
	defer cancel()

	key := WorldKey{Event: "demo", User: "alice"}
	state := f.SignalAndWait(key, SigCreate)
	if state != Stopped {
		t.Fatalf("after create, state = %s; want stopped", state)
	}

	state = f.SignalAndWait(key, SigStart)
	if state != Running {
		t.Fatalf("after start, state = %s; want running", state)
	}
}

func TestSignalAndWaitCreateFailure(t *testing.T) {
	ops := &fakeOps{createResult: false}
	f, cancel := newTestFSM(fakeStore{present: false}, ops, fakeHealth{})
	defer cancel()

	key := WorldKey{Event: "demo", User: "bob"}
	state := f.SignalAndWait(key, SigCreate)
	if state != NotFound {
		t.Fatalf("after failed create, state = %s; want notfound", state)
	}
}

func TestIdempotentCreateOnRunning(t *testing.T) {
	ops := &fakeOps{createResult: true, startResult: true}
	hc := fakeHealth{result: health.Up}
	f, cancel := newTestFSM(fakeStore{present: false}, ops, hc)
	defer cancel()

	key := WorldKey{Event: "demo", User: "carol"}
	f.SignalAndWait(key, SigCreate)
	f.SignalAndWait(key, SigStart)

	state := f.SignalAndWait(key, SigCreate)
	if state != Running {
		t.Fatalf("replaying create on running world changed state to %s", state)
	}
	if atomic.LoadInt32(&ops.createCalls) != 1 {
		t.Fatalf("expected exactly 1 Create call, got %d", ops.createCalls)
	}
}

func TestConcurrentCreatesSerialized(t *testing.T) {
	ops := &fakeOps{createResult: true}
	f, cancel := newTestFSM(fakeStore{present: false}, ops, fakeHealth{})
	defer cancel()

	var wg sync.WaitGroup
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			f.SignalAndWait(WorldKey{Event: "demo", User: user}, SigCreate)
		}(u)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&ops.maxFlightCreate); got != 1 {
		t.Fatalf("observed %d concurrent Create invocations; want at most 1 (V2 violated)", got)
	}
	if got := atomic.LoadInt32(&ops.createCalls); int(got) != len(users) {
		t.Fatalf("expected %d Create calls, got %d", len(users), got)
	}
}

func TestCheckIntegrityNoMismatch(t *testing.T) {
	ops := &fakeOps{}
	f, cancel := newTestFSM(fakeStore{present: false}, ops, fakeHealth{})
	defer cancel()

	key := WorldKey{Event: "demo", User: "dave"}
	state := f.CheckIntegrity(key)
	if state != NotFound {
		t.Fatalf("state = %s; want notfound (no mismatch, no signal expected)", state)
	}
}

func TestCheckIntegrityMismatchRunsCheck(t *testing.T) {
	ops := &fakeOps{}
	hc := fakeHealth{result: health.Up}
	f, cancel := newTestFSM(fakeStore{present: true}, ops, hc)
	defer cancel()

	key := WorldKey{Event: "demo", User: "erin"}
	state := f.CheckIntegrity(key)
	if state != Running {
		t.Fatalf("state = %s; want running after reconciling a present-but-notfound mismatch", state)
	}
}

// TestDegradedHealthKeepsWorldRunning covers spec.md 4.G: up or degraded
// both resolve to the `up` signal, so a world with one failing non-VPN
// task among several stays running instead of being torn down to
// stopped.
func TestDegradedHealthKeepsWorldRunning(t *testing.T) {
	ops := &fakeOps{createResult: true, startResult: true}
	hc := &dynamicHealth{result: health.Up}
	f, cancel := newTestFSM(fakeStore{present: false}, ops, hc)
	defer cancel()

	key := WorldKey{Event: "demo", User: "frank"}
	f.SignalAndWait(key, SigCreate)
	f.SignalAndWait(key, SigStart)

	hc.set(health.Degraded)
	state := f.SignalAndWait(key, SigCheck)
	if state != Running {
		t.Fatalf("state after degraded check = %s; want running", state)
	}
}

// TestNoOpSignalSettlesImmediately covers the empty-cell branch of apply:
// a signal with no transition for the current state must still settle
// any waiter (and, per spec.md 4.E, still log the attempt) rather than
// leaving SignalAndWait blocked forever.
func TestNoOpSignalSettlesImmediately(t *testing.T) {
	f, cancel := newTestFSM(fakeStore{present: false}, &fakeOps{}, fakeHealth{})
	defer cancel()

	key := WorldKey{Event: "demo", User: "grace"}
	state := f.SignalAndWait(key, SigStop)
	if state != NotFound {
		t.Fatalf("state after no-op signal = %s; want notfound unchanged", state)
	}
}
