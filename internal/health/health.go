package health

import (
	"context"
	"fmt"

	"github.com/cuemby/crld/internal/configstore"
	"github.com/cuemby/crld/internal/metrics"
	"github.com/cuemby/crld/internal/orchestrator"
)

const vpnServiceName = "wireguard"

// Health is the derived health of a world, computed from its running
// stack tasks.
type Health int

const (
	Up Health = iota
	Degraded
	Down
)

func (h Health) String() string {
	switch h {
	case Up:
		return "up"
	case Degraded:
		return "degraded"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Reconciler inspects the orchestrator to compute a world's health.
type Reconciler struct {
	Adapter *orchestrator.Adapter
	Store   *configstore.Store
}

// New returns a Reconciler backed by adapter, consulting store's world
// descriptors when a stack fails to resolve at all.
func New(adapter *orchestrator.Adapter, store *configstore.Store) *Reconciler {
	return &Reconciler{Adapter: adapter, Store: store}
}

// Check inspects the orchestrator-reported tasks of a world's stack and
// returns its health. The VPN gateway service is excluded from the
// computation: a world whose only service is wireguard is considered
// down, not up.
//
// A non-nil error means the adapter could not resolve the stack at all
// (it reports no non-VPN tasks AND an empty inspect result) — the caller maps
// this to the FSM's `fail` signal rather than `down`, per spec.
func (r *Reconciler) Check(ctx context.Context, event, user string) (Health, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HealthReconcileDuration)

	stack := fmt.Sprintf("crl-%s-%s", event, user)
	tasks := r.Adapter.ListStackTasks(ctx, stack)

	nonVPN := make([]bool, 0, len(tasks))
	for _, t := range tasks {
		if t.ServiceName == vpnServiceName {
			continue
		}
		nonVPN = append(nonVPN, t.Up)
	}

	if len(nonVPN) == 0 {
		obj := r.Adapter.Inspect(ctx, stack)
		if obj.Labels == nil && obj.VirtualIP == nil {
			// The stack isn't running at all. Consult the world's own
			// descriptor to tell "never deployed" (or deployed under a
			// descriptor that no longer exists on disk) apart from a
			// stack that is merely between deploys, for the operator
			// reading this error in the logs.
			services, svcErr := r.Store.ServiceNames(event, user)
			if svcErr != nil {
				return Down, fmt.Errorf("health: stack %s does not resolve, world descriptor unreadable: %w", stack, svcErr)
			}
			return Down, fmt.Errorf("health: stack %s does not resolve, declared services %v never came up", stack, services)
		}
		return Down, nil
	}

	allUp, anyUp := true, false
	for _, up := range nonVPN {
		if up {
			anyUp = true
		} else {
			allUp = false
		}
	}

	switch {
	case allUp:
		return Up, nil
	case anyUp:
		return Degraded, nil
	default:
		return Down, nil
	}
}
