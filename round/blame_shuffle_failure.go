package round

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// blameShuffleFailureRound implements §4.5's ShuffleFailure policy. Every
// honest player runs this same round: on entry, if exactly one Blame
// message is visible and it wasn't authored locally, this player piles on
// with its own ShuffleFailure against the same accused. Once every
// player's ShuffleFailure has landed and their transcript hashes agree,
// this player exports its ephemeral keys and Shuffling-phase evidence and
// hands off to the replay round.
type blameShuffleFailureRound struct {
	base
	done bool
}

func (r *blameShuffleFailureRound) Phase() Phase { return PhaseBlameShuffleFailure }

func (r *blameShuffleFailureRound) Start() *Error {
	s := r.state
	senders := s.Inbox.Senders(wire.Blame)
	if len(senders) != 1 || string(senders[0]) == string(s.Params.Me.VK) {
		return nil
	}
	msgs, ok := s.inboxMessages(wire.Blame, senders[0])
	if !ok {
		return nil
	}
	for _, msg := range msgs {
		if msg.Blame == nil || msg.Blame.Reason != wire.ShuffleFailure || msg.Blame.Accused == nil {
			continue
		}
		if err := s.emitShuffleFailure(msg.Blame.Accused.Key, s.transcriptHash()); err != nil {
			return r.wrapErrorf(errors.Wrap(err, "round: could not pile on ShuffleFailure blame"))
		}
		break
	}
	return nil
}

func (r *blameShuffleFailureRound) Update() (bool, *Error) {
	s := r.state
	if !s.Inbox.Complete(wire.Blame, s.Players) {
		return false, nil
	}

	var accused, transcript []byte
	for _, p := range s.Players.All() {
		msgs, ok := s.inboxMessages(wire.Blame, p.VK)
		if !ok {
			return false, r.wrapErrorf(errors.Errorf("round: missing ShuffleFailure blame from %v", p))
		}
		for _, msg := range msgs {
			if msg.Blame == nil || msg.Blame.Reason != wire.ShuffleFailure {
				continue
			}
			if msg.Blame.Accused == nil || msg.Blame.Invalid == nil {
				return false, r.wrapErrorf(errors.Errorf("round: malformed ShuffleFailure blame from %v", p))
			}
			if accused == nil {
				accused = msg.Blame.Accused.Key
				transcript = msg.Blame.Invalid.Invalid
				continue
			}
			if string(msg.Blame.Accused.Key) != string(accused) {
				s.Done = true
				return true, r.wrapErrorf(&BlameException{Reason: "divergent ShuffleFailure accusations"})
			}
			if string(msg.Blame.Invalid.Invalid) != string(transcript) {
				s.Done = true
				return true, r.wrapErrorf(&BlameException{Reason: "divergent shuffle transcript hashes"})
			}
		}
	}
	if accused == nil {
		return false, r.wrapErrorf(errors.New("round: no valid ShuffleFailure blame found"))
	}

	evidence := s.collectEvidence(wire.Shuffle)
	if err := s.emitShuffleAndEquivocationFailure(accused, s.Ephemeral.ExportPublicKey(), s.Ephemeral.ExportPrivateKey(), evidence); err != nil {
		return false, r.wrapErrorf(errors.Wrap(err, "round: could not emit ShuffleAndEquivocationFailure"))
	}
	s.Inbox.Reset(wire.Blame)
	r.done = true
	return true, nil
}

func (r *blameShuffleFailureRound) CanProceed() bool { return r.done || r.state.Done }

func (r *blameShuffleFailureRound) WaitingFor() []*Player {
	if r.done {
		return nil
	}
	s := r.state
	var waiting []*Player
	for _, p := range s.Players.All() {
		if _, ok := s.Inbox.Get(wire.Blame, p.VK); !ok {
			waiting = append(waiting, p)
		}
	}
	return waiting
}

func (r *blameShuffleFailureRound) NextRound() Round {
	if r.state.Done {
		return nil
	}
	return &blameShuffleAndEquivocationFailureRound{base: base{r.params, r.state}}
}
