package round

// Phase enumerates every state the FSM can occupy, productive phases first
// and blame sub-phases last. It is a local, closed sum type distinct from
// wire.Phase: several Phase values (the four blame variants) share the
// single wire.Blame tag on the network.
type Phase int

const (
	PhasePreflight Phase = iota
	PhaseAnnouncement
	PhaseShuffling
	PhaseBroadcastOutput
	PhaseEquivocationCheck
	PhaseVerificationAndSubmission
	PhaseBlameInsufficientFunds
	PhaseBlameEquivocationFailure
	PhaseBlameShuffleFailure
	PhaseBlameShuffleAndEquivocationFailure
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePreflight:
		return "Preflight"
	case PhaseAnnouncement:
		return "Announcement"
	case PhaseShuffling:
		return "Shuffling"
	case PhaseBroadcastOutput:
		return "BroadcastOutput"
	case PhaseEquivocationCheck:
		return "EquivocationCheck"
	case PhaseVerificationAndSubmission:
		return "VerificationAndSubmission"
	case PhaseBlameInsufficientFunds:
		return "Blame:InsufficientFunds"
	case PhaseBlameEquivocationFailure:
		return "Blame:EquivocationFailure"
	case PhaseBlameShuffleFailure:
		return "Blame:ShuffleFailure"
	case PhaseBlameShuffleAndEquivocationFailure:
		return "Blame:ShuffleAndEquivocationFailure"
	case PhaseDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Round is one state in the FSM. Each productive phase and each blame
// sub-phase gets its own implementation, mirroring the per-round-number
// Round implementations in the teacher framework this is built from.
type Round interface {
	Phase() Phase
	Params() *Params
	State() *State

	// Start runs the phase's one-shot entry action (e.g. broadcasting an
	// Announcement key, or broadcasting the equivocation-check hash).
	// Phases with no entry action implement it as a no-op.
	Start() *Error

	// Update consumes whatever is currently available in the inbox for
	// this phase and advances State accordingly. ok is true once the
	// phase's completion condition is met and NextRound may be called.
	Update() (bool, *Error)

	// CanProceed reports whether Update has already driven this phase to
	// completion.
	CanProceed() bool

	// NextRound returns the Round to run after this one completes, or
	// nil if the protocol has terminated (State.Done is authoritative).
	NextRound() Round

	// WaitingFor names the players this phase still needs a message
	// from, for diagnostics and tests.
	WaitingFor() []*Player
}

// base is embedded by every concrete Round to share Params/State access
// and the WrapError convenience, the same role BaseParty's helpers play in
// the teacher framework.
type base struct {
	params *Params
	state  *State
}

func (b *base) Params() *Params { return b.params }
func (b *base) State() *State   { return b.state }

func (b *base) wrapErrorf(err error, culprits ...*Player) *Error {
	return WrapError(err, b.state.Phase, b.params.Me, culprits...)
}
