package round

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// blameShuffleAndEquivocationFailureRound implements §4.5's replay policy.
// Every seated player has, by now, broadcast its ephemeral key pair and its
// own Shuffling-phase inbox as evidence. Each position's claimed input list
// is replayed forward by successively applying the decryption keys of
// every player from that position onward (mirroring the nested-encryption
// order layerOwnAddress/sendFirstOnion build onions in), and adjacent
// positions' fully-peeled sets are compared: an honest hop adds exactly
// one new plaintext and drops or duplicates none.
type blameShuffleAndEquivocationFailureRound struct {
	base
	done    bool
	cheater *Player
}

func (r *blameShuffleAndEquivocationFailureRound) Phase() Phase {
	return PhaseBlameShuffleAndEquivocationFailure
}

func (r *blameShuffleAndEquivocationFailureRound) Start() *Error { return nil }

func (r *blameShuffleAndEquivocationFailureRound) Update() (bool, *Error) {
	s := r.state
	if !s.Inbox.Complete(wire.Blame, s.Players) {
		return false, nil
	}

	players := s.Players.All()
	dks := make(map[int][]byte, len(players))
	claimedInput := make(map[int][]string, len(players))

	var culprits []*Player
	var merr *multierror.Error
	for _, p := range players {
		msgs, ok := s.inboxMessages(wire.Blame, p.VK)
		if !ok {
			culprits = append(culprits, p)
			merr = multierror.Append(merr, errors.Errorf("missing ShuffleAndEquivocationFailure blame from %v", p))
			continue
		}
		for _, msg := range msgs {
			if msg.Blame == nil || msg.Blame.Reason != wire.ShuffleAndEquivocationFailure {
				continue
			}
			if msg.Blame.Key == nil || msg.Blame.Invalid == nil {
				culprits = append(culprits, p)
				merr = multierror.Append(merr, errors.Errorf("malformed ShuffleAndEquivocationFailure blame from %v", p))
				break
			}
			dks[p.Index] = msg.Blame.Key.Public
			batch, err := decodeEvidence(msg.Blame.Invalid.Invalid)
			if err != nil {
				culprits = append(culprits, p)
				merr = multierror.Append(merr, errors.Wrapf(err, "could not decode replay evidence from %v", p))
				break
			}
			var strs []string
			for _, env := range batch.Envelopes {
				if env == nil || env.Packet == nil || env.Packet.Phase != wire.Shuffle || env.Packet.Message == nil {
					continue
				}
				strs = append(strs, string(env.Packet.Message.Str))
			}
			claimedInput[p.Index] = strs
			break
		}
	}
	if merr.ErrorOrNil() != nil {
		return false, r.wrapErrorf(merr, culprits...)
	}

	var cheater *Player
	for i := 0; i < len(players)-1 && cheater == nil; i++ {
		p := players[i]
		next := players[i+1]

		peeledP, err := replayPeel(s, p.Index, claimedInput[p.Index], dks, players)
		if err != nil {
			return false, r.wrapErrorf(errors.Wrapf(err, "round: could not replay-peel position %v", p))
		}
		peeledNext, err := replayPeel(s, next.Index, claimedInput[next.Index], dks, players)
		if err != nil {
			return false, r.wrapErrorf(errors.Wrapf(err, "round: could not replay-peel position %v", next))
		}

		if symmetricDifferenceSize(peeledP, peeledNext) != 1 {
			// position p's claimed forward does not match what p+1 claims
			// to have received from it — p is the earlier, attributable
			// position; p+1 is just the honest player reporting it.
			cheater = p
		}
	}

	if cheater != nil && string(cheater.VK) != string(s.Params.Me.VK) {
		r.cheater = cheater
		if err := s.emitLiar(cheater.VK); err != nil {
			s.Params.logf("blameShuffleAndEquivocationFailure: could not emit Liar against %v: %v", cheater, err)
		}
		s.Players = s.Players.Remove(cheater.VK)
		s.Inbox.EvictSendersAll(cheater.VK)
	}
	s.Inbox.Reset(wire.Blame)
	r.done = true
	return true, nil
}

func (r *blameShuffleAndEquivocationFailureRound) CanProceed() bool { return r.done }

func (r *blameShuffleAndEquivocationFailureRound) WaitingFor() []*Player {
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

func (r *blameShuffleAndEquivocationFailureRound) NextRound() Round {
	s := r.state
	if err := s.resetForAnnouncement(); err != nil {
		s.Done = true
		s.Err = err
		return nil
	}
	return &announcementRound{base: base{r.params, s}}
}

// replayPeel fully decrypts a position's claimed ciphertext list by
// applying the decryption key of that position and every later position in
// ascending index order, the same order layerOwnAddress/sendFirstOnion
// nest their encryptions in reverse of.
func replayPeel(s *State, fromIndex int, ciphertexts []string, dks map[int][]byte, players []*Player) ([]string, error) {
	out := make([]string, len(ciphertexts))
	copy(out, ciphertexts)
	for _, p := range players {
		if p.Index < fromIndex {
			continue
		}
		dk, ok := dks[p.Index]
		if !ok {
			return nil, errors.Errorf("round: missing decryption key for player index %d", p.Index)
		}
		kp, err := s.Params.Crypto.RestoreFromPrivateKey(dk)
		if err != nil {
			return nil, errors.Wrapf(err, "round: could not restore decryption key for player index %d", p.Index)
		}
		for i, ct := range out {
			pt, err := kp.Decrypt([]byte(ct))
			if err != nil {
				return nil, errors.Wrapf(err, "round: could not peel layer for player index %d", p.Index)
			}
			out[i] = string(pt)
		}
	}
	return out, nil
}

func symmetricDifferenceSize(a, b []string) int {
	setA := make(map[string]int, len(a))
	for _, v := range a {
		setA[v]++
	}
	setB := make(map[string]int, len(b))
	for _, v := range b {
		setB[v]++
	}
	diff := 0
	for v, ca := range setA {
		cb := setB[v]
		if ca > cb {
			diff += ca - cb
		}
	}
	for v, cb := range setB {
		ca := setA[v]
		if cb > ca {
			diff += cb - ca
		}
	}
	return diff
}
