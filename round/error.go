package round

import "fmt"

// Error carries the task/phase/culprit context the round core attaches to
// every failure, the same shape tss-lib's Error wraps around a plain cause.
type Error struct {
	cause    error
	phase    Phase
	victim   *Player
	culprits []*Player
}

func WrapError(err error, phase Phase, victim *Player, culprits ...*Player) *Error {
	if err == nil {
		return nil
	}
	return &Error{cause: err, phase: phase, victim: victim, culprits: culprits}
}

func (e *Error) Unwrap() error     { return e.cause }
func (e *Error) Cause() error      { return e.cause }
func (e *Error) Phase() Phase      { return e.phase }
func (e *Error) Victim() *Player   { return e.victim }
func (e *Error) Culprits() []*Player { return e.culprits }

func (e *Error) Error() string {
	if e == nil || e.cause == nil {
		return "<nil round error>"
	}
	if len(e.culprits) > 0 {
		return fmt.Sprintf("phase %s, player %v, culprits %v: %s", e.phase, e.victim, e.culprits, e.cause)
	}
	return fmt.Sprintf("phase %s, player %v: %s", e.phase, e.victim, e.cause)
}

// BlameException is raised when the blame resolver cannot converge on a
// single offender — a divergent reason or a divergent evidence hash among
// otherwise-valid Blame messages — and terminates the round.
type BlameException struct {
	Reason string
}

func (b *BlameException) Error() string {
	return fmt.Sprintf("blame: %s", b.Reason)
}
