package fsm

// CheckIntegrity reconciles the in-memory state of key against the
// on-disk peer config, mirroring crld.py's check_fsm_integrity: if the
// config exists and the state is notfound, or the config is absent and
// the state is anything but notfound, a check signal is injected to let
// the health reconciler settle the discrepancy. Otherwise it is a no-op.
//
// Called both at startup (4.I, fanned out over every world on disk) and
// inline by the create/reset handlers before they decide whether to
// issue their own create/start/stop signal. Returns the settled state
// after reconciliation, or the unchanged current state if there was no
// mismatch to resolve.
func (f *FSM) CheckIntegrity(key WorldKey) WorldState {
	state := f.State(key)
	exists := f.store.PeerConfigExists(key.Event, key.User)

	mismatch := (exists && state == NotFound) || (!exists && state != NotFound)
	if !mismatch {
		return state
	}
	return f.SignalAndWait(key, SigCheck)
}
