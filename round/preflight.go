package round

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// preflightRound implements §4.4.2: before entering Announcement, every
// seated player's funding address must hold at least amount+fee.
type preflightRound struct {
	base
	proceeded bool
	offenders []*Player
}

func (r *preflightRound) Phase() Phase { return PhasePreflight }

func (r *preflightRound) Start() *Error {
	s := r.state
	minFunds := s.Params.Amount + s.Params.Fee

	for _, p := range s.Players.All() {
		addr, err := s.fundedAddress(p.VK)
		if err != nil {
			s.Done = true
			return r.wrapErrorf(errors.Wrap(err, "round: could not derive player address"))
		}
		ok, err := s.Params.Coin.SufficientFunds(addr, minFunds)
		if err != nil {
			// a network fault is local-fatal: §4.4.2, §7
			s.Done = true
			return r.wrapErrorf(errors.Wrap(err, "round: blockchain network fault during funds check"))
		}
		if !ok {
			r.offenders = append(r.offenders, p)
		}
	}

	if len(r.offenders) == 0 {
		r.proceeded = true
		return nil
	}

	for _, offender := range r.offenders {
		if string(offender.VK) == string(s.Params.Me.VK) {
			s.Done = true
			return r.wrapErrorf(errors.New("round: local player has insufficient funds"), offender)
		}
	}
	if s.Players.Len()-len(r.offenders) <= 1 {
		s.Done = true
		return r.wrapErrorf(errors.New("round: fewer than two funded players remain"))
	}

	msgs := make([]*wire.Message, 0, len(r.offenders))
	for _, offender := range r.offenders {
		msgs = append(msgs, &wire.Message{Blame: &wire.Blame{
			Reason:  wire.InsufficientFunds,
			Accused: &wire.Key{Key: offender.VK},
		}})
	}
	if err := s.sendMessages(wire.Blame, nil, msgs); err != nil {
		s.Params.logf("preflight: could not broadcast InsufficientFunds blames: %v", err)
	}
	return nil
}

func (r *preflightRound) Update() (bool, *Error) { return r.proceeded || len(r.offenders) > 0, nil }
func (r *preflightRound) CanProceed() bool        { return r.proceeded || len(r.offenders) > 0 }
func (r *preflightRound) WaitingFor() []*Player   { return nil }

func (r *preflightRound) NextRound() Round {
	s := r.state
	if r.proceeded {
		if err := s.resetForAnnouncement(); err != nil {
			s.Done = true
			s.Err = err
			return nil
		}
		return &announcementRound{base: base{r.params, s}}
	}
	return &blameInsufficientFundsRound{base: base{r.params, s}, offenders: r.offenders}
}
