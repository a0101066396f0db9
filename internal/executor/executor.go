package executor

import (
	"context"

	"github.com/cuemby/crld/internal/log"
)

// Op is a slow, blocking world operation (create, start, stop, delete).
// It reports success or failure as a plain bool; it must never be asked
// to honor ctx cancellation mid-flight — callers pass a background
// context precisely so a client disconnect cannot interrupt it.
type Op func(ctx context.Context) bool

var logger = log.WithComponent("executor")

// Run dispatches op onto its own goroutine — the "worker pool" of
// spec.md 4.D has no bound, since the serializer queues (internal/fsm)
// are what actually limit concurrent create/stop execution, not this
// layer. On completion it invokes exactly one of onOK / onFail:
// onOK if op returned true, onFail if it returned false or panicked.
// Either callback may be nil, in which case that outcome is silently
// dropped, matching "only dispatch a signal if one was set" in spec.md.
//
// Run returns a channel that is closed once op and its callback have
// both completed, so a caller that needs the spec's "await" semantics
// (the stopped->starting->running chain) can simply receive from it.
func Run(op Op, onOK, onFail func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runOnce(context.Background(), op, onOK, onFail)
	}()
	return done
}

// RunSync executes op in the calling goroutine. Used by the serializer
// queue workers (internal/fsm), which are already dedicated,
// long-lived goroutines off any HTTP request path — there is no need to
// spawn a further goroutine for them, and doing so would only obscure
// the FIFO ordering the queue exists to guarantee.
func RunSync(op Op, onOK, onFail func()) {
	runOnce(context.Background(), op, onOK, onFail)
}

func runOnce(ctx context.Context, op Op, onOK, onFail func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("blocking op panicked")
			if onFail != nil {
				onFail()
			}
		}
	}()

	ok := op(ctx)
	logger.Info().Bool("ok", ok).Msg("blocking op completed")
	if ok {
		if onOK != nil {
			onOK()
		}
	} else {
		if onFail != nil {
			onFail()
		}
	}
}
