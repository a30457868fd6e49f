package round

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// broadcastOutputRound implements §4.4.5. The last player already has its
// own Output populated by the final Shuffling step; every other player
// waits for the last player's broadcast.
type broadcastOutputRound struct {
	base
	done   bool
	blamed bool
}

func (r *broadcastOutputRound) Phase() Phase { return PhaseBroadcastOutput }

func (r *broadcastOutputRound) Start() *Error {
	s := r.state
	if string(s.Players.Last().VK) == string(s.Params.Me.VK) {
		r.done = true // Output was already produced while forwarding the final Shuffling hop
	}
	return nil
}

func (r *broadcastOutputRound) Update() (bool, *Error) {
	if r.done {
		return true, nil
	}
	s := r.state
	last := s.Players.Last()
	output, ok := s.inboxStrings(wire.Broadcast, last.VK)
	if !ok {
		return false, nil
	}
	s.Output = output

	if !containsString(output, s.Params.AddrNew) {
		transcript := s.transcriptHash()
		if err := s.emitShuffleFailure(last.VK, transcript); err != nil {
			s.Params.logf("broadcastOutput: could not emit ShuffleFailure: %v", errors.WithStack(err))
		}
		r.blamed = true
	}
	r.done = true
	return true, nil
}

func (r *broadcastOutputRound) CanProceed() bool { return r.done }

func (r *broadcastOutputRound) WaitingFor() []*Player {
	if r.done {
		return nil
	}
	return []*Player{r.state.Players.Last()}
}

func (r *broadcastOutputRound) NextRound() Round {
	if r.blamed {
		return &blameShuffleFailureRound{base: base{r.params, r.state}}
	}
	return &equivocationCheckRound{base: base{r.params, r.state}}
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
