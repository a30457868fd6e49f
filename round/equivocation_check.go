package round

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// equivocationCheckRound implements §4.4.6: every player commits to a hash
// over the output set and the announced-key set, and all N hashes must
// agree before advancing.
type equivocationCheckRound struct {
	base
	done   bool
	blamed bool
}

func (r *equivocationCheckRound) Phase() Phase { return PhaseEquivocationCheck }

func (r *equivocationCheckRound) Start() *Error {
	s := r.state
	h := s.equivocationHash()
	if err := s.sendBatch(wire.EquivocationCheck, &wire.Message{Hash: &wire.Hash{Hash: h}}); err != nil {
		return r.wrapErrorf(errors.Wrap(err, "round: could not broadcast equivocation hash"))
	}
	return nil
}

func (r *equivocationCheckRound) Update() (bool, *Error) {
	s := r.state
	if !s.Inbox.Complete(wire.EquivocationCheck, s.Players) {
		return false, nil
	}
	local := s.equivocationHash()

	var mismatched []*Player
	for _, p := range s.Players.All() {
		msg, ok := s.inboxMessage(wire.EquivocationCheck, p.VK)
		if !ok || msg.Hash == nil || string(msg.Hash.Hash) != string(local) {
			mismatched = append(mismatched, p)
		}
	}
	if len(mismatched) > 0 {
		for _, p := range mismatched {
			if err := s.emitEquivocationFailure(p.VK); err != nil {
				s.Params.logf("equivocationCheck: could not emit EquivocationFailure against %v: %v", p, err)
			}
		}
		r.blamed = true
	}
	r.done = true
	return true, nil
}

func (r *equivocationCheckRound) CanProceed() bool { return r.done }

func (r *equivocationCheckRound) WaitingFor() []*Player {
	s := r.state
	var waiting []*Player
	for _, p := range s.Players.All() {
		if _, ok := s.Inbox.Get(wire.EquivocationCheck, p.VK); !ok {
			waiting = append(waiting, p)
		}
	}
	return waiting
}

func (r *equivocationCheckRound) NextRound() Round {
	if r.blamed {
		return &blameEquivocationFailureRound{base: base{r.params, r.state}}
	}
	return &verificationRound{base: base{r.params, r.state}}
}

// equivocationHash commits to the output set and the announced encryption
// keys, sorted deterministically so every honest player computes the
// identical value regardless of arrival order (§4.4.6).
func (s *State) equivocationHash() []byte {
	output := make([]string, len(s.Output))
	copy(output, s.Output)
	sort.Strings(output)

	parts := make([][]byte, 0, len(output)+s.Players.Len())
	for _, o := range output {
		parts = append(parts, []byte(o))
	}
	for _, p := range s.Players.All() {
		parts = append(parts, s.EK[p.KeyString()])
	}
	return s.Params.Crypto.Hash(parts...)
}
