package round

import (
	btcwire "github.com/btcsuite/btcd/wire"

	"github.com/go-coinshuffle/core/netio"
	"github.com/go-coinshuffle/core/wire"
)

// Run drives a round to completion: fund pre-flight, then the productive
// phases and any blame detours, until State.Done. It is the single-
// threaded cooperative loop §4.6 and §5 describe — the only suspension
// points are netio.Channels.RecvBatch and the coin-adapter calls made from
// inside individual phases' Start/Update.
func Run(p *Params) (*btcwire.MsgTx, error) {
	state, err := newState(p)
	if err != nil {
		return nil, err
	}

	var current Round = &preflightRound{base{p, state}}
	state.Phase = current.Phase()

	if serr := current.Start(); serr != nil {
		state.Done = true
		state.Err = serr
		return nil, serr
	}

	var buf netio.Buffer
	for !state.Done {
		// §4.5: "all players agree on the reason of the first blame
		// message observed" — a Blame packet received while sitting in a
		// productive phase immediately diverts into the matching blame
		// sub-phase, even when this player never detected the underlying
		// fault itself (mirrors process_inbox's check_for_blame, run
		// ahead of normal phase dispatch on every tick).
		if next := checkForBlame(current, p, state); next != nil {
			state.Phase = next.Phase()
			current = next
			p.logf("diverting into phase %s on an observed blame message", current.Phase())
			if serr := current.Start(); serr != nil {
				state.Done = true
				state.Err = serr
				return nil, serr
			}
			continue
		}

		if current.CanProceed() {
			next := current.NextRound()
			if next == nil {
				state.Done = true
				break
			}
			state.Phase = next.Phase()
			current = next
			p.logf("entering phase %s", current.Phase())
			if serr := current.Start(); serr != nil {
				state.Done = true
				state.Err = serr
				return nil, serr
			}
			continue
		}

		batch, idle, rerr := p.Channels.RecvBatch(&buf)
		if rerr != nil {
			p.logf("dropping malformed batch: %v", rerr)
			continue
		}
		if idle {
			continue
		}
		if serr := state.ingest(batch); serr != nil {
			state.Done = true
			state.Err = serr
			return nil, serr
		}
		if _, serr := current.Update(); serr != nil {
			state.Done = true
			state.Err = serr
			return nil, serr
		}
	}

	return state.Tx, state.Err
}

// checkForBlame reports the blame sub-phase to divert into, or nil if
// current is already a blame sub-phase or no divertable Blame message has
// been observed yet.
func checkForBlame(current Round, p *Params, s *State) Round {
	if isBlameRound(current.Phase()) {
		return nil
	}
	reason, ok := firstObservedBlameReason(s)
	if !ok {
		return nil
	}
	return blameRoundFor(reason, p, s)
}

func isBlameRound(phase Phase) bool {
	switch phase {
	case PhaseBlameInsufficientFunds, PhaseBlameEquivocationFailure, PhaseBlameShuffleFailure, PhaseBlameShuffleAndEquivocationFailure:
		return true
	}
	return false
}

// firstObservedBlameReason scans every seated player's Blame slot, in
// ascending player-index order, for the first message carrying a reason
// that starts a blame sub-phase. Liar (a ban notice addressed to the
// sender itself, never a phase trigger), InvalidSignature (already
// terminal where it is raised), and MissingOutput (folded into
// ShuffleFailure, never emitted on its own) are skipped rather than
// matched. Index order, not arrival order, is what makes the result
// reproducible across every honest player scanning the same inbox state.
func firstObservedBlameReason(s *State) (wire.BlameReason, bool) {
	for _, pl := range s.Players.All() {
		msgs, ok := s.inboxMessages(wire.Blame, pl.VK)
		if !ok {
			continue
		}
		for _, msg := range msgs {
			if msg.Blame == nil {
				continue
			}
			switch msg.Blame.Reason {
			case wire.InsufficientFunds, wire.EquivocationFailure, wire.ShuffleFailure, wire.ShuffleAndEquivocationFailure:
				return msg.Blame.Reason, true
			}
		}
	}
	return 0, false
}

func blameRoundFor(reason wire.BlameReason, p *Params, s *State) Round {
	switch reason {
	case wire.InsufficientFunds:
		return &blameInsufficientFundsRound{base: base{p, s}, offenders: insufficientFundsOffenders(s)}
	case wire.EquivocationFailure:
		return &blameEquivocationFailureRound{base: base{p, s}}
	case wire.ShuffleFailure:
		return &blameShuffleFailureRound{base: base{p, s}}
	case wire.ShuffleAndEquivocationFailure:
		return &blameShuffleAndEquivocationFailureRound{base: base{p, s}}
	default:
		return nil
	}
}

// insufficientFundsOffenders derives the accused set directly from every
// InsufficientFunds Blame message visible so far, so a player diverting
// into blameInsufficientFundsRound off a received message (rather than its
// own Preflight detection) still enters with the right offenders.
func insufficientFundsOffenders(s *State) []*Player {
	seen := make(map[string]bool)
	var offenders []*Player
	for _, pl := range s.Players.All() {
		msgs, ok := s.inboxMessages(wire.Blame, pl.VK)
		if !ok {
			continue
		}
		for _, msg := range msgs {
			if msg.Blame == nil || msg.Blame.Reason != wire.InsufficientFunds || msg.Blame.Accused == nil {
				continue
			}
			vk := string(msg.Blame.Accused.Key)
			if seen[vk] {
				continue
			}
			seen[vk] = true
			if off := s.Players.ByVK(msg.Blame.Accused.Key); off != nil {
				offenders = append(offenders, off)
			}
		}
	}
	return offenders
}
