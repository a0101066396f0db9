package fsm

// action identifies the side effect apply must dispatch once a
// transition's new state has been recorded, mirrored 1:1 from the table
// in spec.md 4.E.
type action int

const (
	actionNone action = iota
	actionEnqueueCreate
	actionEnqueueStop
	actionRunStart
	actionRunCheck
	actionRunDelete
)

// transition returns the new state and side effect for state/sig, or
// (state, actionNone) if the cell is unspecified — per V1, an
// unspecified cell is a no-op, not an error.
func transition(state WorldState, sig WorldSignal) (WorldState, action) {
	switch state {
	case NotFound:
		switch sig {
		case SigCreate:
			return Creating, actionEnqueueCreate
		case SigCheck:
			return Checking, actionRunCheck
		}
	case Checking:
		switch sig {
		case SigUp:
			return Running, actionNone
		case SigDown:
			return Stopped, actionNone
		case SigFail:
			return NotFound, actionNone
		}
	case Creating:
		switch sig {
		case SigDown:
			return Stopped, actionNone
		case SigFail:
			return NotFound, actionRunDelete
		}
	case Stopped:
		switch sig {
		case SigStart:
			return Starting, actionRunStart
		case SigCheck:
			return Checking, actionRunCheck
		}
	case Starting:
		switch sig {
		case SigUp:
			return Running, actionNone
		case SigFail:
			return Stopped, actionNone
		}
	case Running:
		switch sig {
		case SigStop:
			return Stopping, actionEnqueueStop
		case SigCheck:
			return Checking, actionRunCheck
		}
	case Stopping:
		switch sig {
		case SigDown:
			return Stopped, actionNone
		case SigFail:
			return Stopped, actionNone
		}
	}
	return state, actionNone
}
