package round

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// blameInsufficientFundsRound implements §4.5's InsufficientFunds policy.
// preflightRound already broadcast one InsufficientFunds blame per
// offender before entering this round; here we wait for every other
// funded player to broadcast a matching set of accusations, then ban each
// offender and restart at Announcement with the shrunken player set.
type blameInsufficientFundsRound struct {
	base
	offenders []*Player
	done      bool
}

func (r *blameInsufficientFundsRound) Phase() Phase { return PhaseBlameInsufficientFunds }

func (r *blameInsufficientFundsRound) Start() *Error { return nil }

func (r *blameInsufficientFundsRound) honest() *PlayerSet {
	return r.state.Players.Remove(vksOf(r.offenders)...)
}

func (r *blameInsufficientFundsRound) Update() (bool, *Error) {
	s := r.state
	honest := r.honest()
	if !s.Inbox.Complete(wire.Blame, honest) {
		return false, nil
	}

	accused := make(map[string]bool, len(r.offenders))
	for _, o := range r.offenders {
		accused[o.KeyString()] = true
	}

	var culprits []*Player
	var merr *multierror.Error
	for _, p := range honest.All() {
		msgs, ok := s.inboxMessages(wire.Blame, p.VK)
		if !ok {
			culprits = append(culprits, p)
			merr = multierror.Append(merr, errors.Errorf("missing InsufficientFunds blame from %v", p))
			continue
		}
		named := make(map[string]bool, len(msgs))
		for _, msg := range msgs {
			if msg.Blame == nil || msg.Blame.Reason != wire.InsufficientFunds || msg.Blame.Accused == nil {
				continue
			}
			named[string(msg.Blame.Accused.Key)] = true
		}
		for vk := range accused {
			if !named[vk] {
				culprits = append(culprits, p)
				merr = multierror.Append(merr, errors.Errorf("%v did not name every insufficient-funds offender", p))
				break
			}
		}
	}
	if merr.ErrorOrNil() != nil {
		return false, r.wrapErrorf(merr, culprits...)
	}

	for _, o := range r.offenders {
		if err := s.emitLiar(o.VK); err != nil {
			s.Params.logf("blameInsufficientFunds: could not emit Liar against %v: %v", o, err)
		}
	}

	offenderVKs := vksOf(r.offenders)
	s.Players = s.Players.Remove(offenderVKs...)
	s.Inbox.Reset(wire.Blame)
	s.Inbox.EvictSendersAll(offenderVKs...)
	r.done = true
	return true, nil
}

func (r *blameInsufficientFundsRound) CanProceed() bool { return r.done }

func (r *blameInsufficientFundsRound) WaitingFor() []*Player {
	if r.done {
		return nil
	}
	s := r.state
	var waiting []*Player
	for _, p := range r.honest().All() {
		if _, ok := s.Inbox.Get(wire.Blame, p.VK); !ok {
			waiting = append(waiting, p)
		}
	}
	return waiting
}

func (r *blameInsufficientFundsRound) NextRound() Round {
	s := r.state
	if err := s.resetForAnnouncement(); err != nil {
		s.Done = true
		s.Err = err
		return nil
	}
	return &announcementRound{base: base{r.params, s}}
}
