package round

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/common"
	"github.com/go-coinshuffle/core/wire"
)

// shufflingRound implements §4.4.4 for every player except the first (who
// already forwarded from Announcement), including the special broadcast
// step taken by the last player.
type shufflingRound struct {
	base
	done        bool
	blamed      bool
	predecessor *Player
}

func (r *shufflingRound) Phase() Phase { return PhaseShuffling }

func (r *shufflingRound) Start() *Error {
	s := r.state
	all := s.Players.All()
	for i, p := range all {
		if string(p.VK) == string(s.Params.Me.VK) {
			r.predecessor = all[(i-1+len(all))%len(all)]
			break
		}
	}
	return nil
}

func (r *shufflingRound) Update() (bool, *Error) {
	s := r.state
	incoming, ok := s.inboxStrings(wire.Shuffle, r.predecessor.VK)
	if !ok {
		return false, nil
	}

	peeled := make([]string, 0, len(incoming))
	for _, ct := range incoming {
		pt, err := s.Ephemeral.Decrypt([]byte(ct))
		if err != nil {
			return false, r.wrapErrorf(errors.Wrap(err, "round: could not peel onion layer"))
		}
		peeled = append(peeled, string(pt))
	}

	if hasDuplicate(peeled) {
		transcript := s.transcriptHash()
		if err := s.emitShuffleFailure(r.predecessor.VK, transcript); err != nil {
			s.Params.logf("shuffling: could not emit ShuffleFailure: %v", err)
		}
		r.done = true
		r.blamed = true
		return true, nil
	}

	isLast := string(s.Players.Last().VK) == string(s.Params.Me.VK)
	if isLast {
		final := common.ShuffleStrings(append(peeled, s.Params.AddrNew))
		s.Output = final
		if err := s.broadcastOutput(final); err != nil {
			return false, r.wrapErrorf(errors.Wrap(err, "round: could not broadcast output set"))
		}
		r.done = true
		return true, nil
	}

	layered, err := s.layerOwnAddress()
	if err != nil {
		return false, r.wrapErrorf(err)
	}
	forward := common.ShuffleStrings(append(peeled, layered))

	next := s.Players.Next(s.Params.Me)
	if err := s.sendStrings(wire.Shuffle, next.VK, forward); err != nil {
		return false, r.wrapErrorf(errors.Wrap(err, "round: could not forward shuffle batch"))
	}
	r.done = true
	return true, nil
}

func (r *shufflingRound) CanProceed() bool { return r.done }

func (r *shufflingRound) WaitingFor() []*Player {
	if r.done {
		return nil
	}
	return []*Player{r.predecessor}
}

func (r *shufflingRound) NextRound() Round {
	if r.state.Done {
		return nil
	}
	if r.blamed {
		return &blameShuffleFailureRound{base: base{r.params, r.state}}
	}
	return &broadcastOutputRound{base: base{r.params, r.state}}
}

func hasDuplicate(values []string) bool {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}

// layerOwnAddress encrypts this player's addr_new for every player
// strictly after it in position order, the same layering loop as the
// first player's sendFirstOnion but scoped to the remaining recipients.
func (s *State) layerOwnAddress() (string, error) {
	all := s.Players.All()
	var after []*Player
	for _, p := range all {
		if p.Index > s.Params.Me.Index {
			after = append(after, p)
		}
	}
	ciphertext := []byte(s.Params.AddrNew)
	for i := len(after) - 1; i >= 0; i-- {
		peer := after[i]
		pub, err := s.Params.Crypto.ParsePublicKey(s.EK[peer.KeyString()])
		if err != nil {
			return "", errors.Wrapf(err, "round: invalid encryption key from player %v", peer)
		}
		ciphertext, err = s.Params.Crypto.Encrypt(ciphertext, pub)
		if err != nil {
			return "", errors.Wrapf(err, "round: could not encrypt onion layer for player %v", peer)
		}
	}
	return string(ciphertext), nil
}

// transcriptHash is §4.4.8's skipped_equivocation_check commitment: a hash
// over the announced encryption-key set in player-index order, attached
// to a ShuffleFailure blame so other honest players can cross-check they
// observed the same announcements.
func (s *State) transcriptHash() []byte {
	parts := make([][]byte, 0, s.Players.Len())
	for _, p := range s.Players.All() {
		parts = append(parts, s.EK[p.KeyString()])
	}
	return s.Params.Crypto.Hash(parts...)
}

func (s *State) broadcastOutput(output []string) error {
	return s.sendStrings(wire.Broadcast, nil, output)
}
