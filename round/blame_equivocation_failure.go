package round

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// blameEquivocationFailureRound implements §4.5's EquivocationFailure
// policy: every accuser's evidence blob is decoded independently, and the
// per-announcer key/change-address/output-set values each blob reveals
// are unioned across accusers (an honest announcer only ever appears with
// one value; a cheater's two different announcements surface as two
// distinct accusers each having witnessed a different one).
type blameEquivocationFailureRound struct {
	base
	done     bool
	cheaters []*Player
}

func (r *blameEquivocationFailureRound) Phase() Phase { return PhaseBlameEquivocationFailure }

func (r *blameEquivocationFailureRound) Start() *Error { return nil }

func (r *blameEquivocationFailureRound) Update() (bool, *Error) {
	s := r.state
	if !s.Inbox.Complete(wire.Blame, s.Players) {
		return false, nil
	}

	announcedKeys := make(map[string]map[string]bool)
	announcedChanges := make(map[string]map[string]bool)
	broadcastOutputs := make(map[string]map[string]bool)

	for _, p := range s.Players.All() {
		msgs, ok := s.inboxMessages(wire.Blame, p.VK)
		if !ok {
			return false, r.wrapErrorf(errors.Errorf("round: missing EquivocationFailure blame from %v", p))
		}
		for _, msg := range msgs {
			if msg.Blame == nil || msg.Blame.Reason != wire.EquivocationFailure || msg.Blame.Invalid == nil {
				continue
			}
			batch, err := decodeEvidence(msg.Blame.Invalid.Invalid)
			if err != nil {
				s.Params.logf("blameEquivocationFailure: could not decode evidence from %v: %v", p, err)
				continue
			}
			for vk, m := range latestBySender(batch, wire.Announcement) {
				if m.Key == nil {
					continue
				}
				if announcedKeys[vk] == nil {
					announcedKeys[vk] = make(map[string]bool)
				}
				announcedKeys[vk][string(m.Key.Key)] = true
				if m.Address != nil {
					if announcedChanges[vk] == nil {
						announcedChanges[vk] = make(map[string]bool)
					}
					announcedChanges[vk][m.Address.Address] = true
				}
			}
			for vk, strs := range stringsBySender(batch, wire.Broadcast) {
				if broadcastOutputs[vk] == nil {
					broadcastOutputs[vk] = make(map[string]bool)
				}
				broadcastOutputs[vk][setKey(strs)] = true
			}
		}
	}

	cheaterSet := make(map[string]bool)
	for vk, keys := range announcedKeys {
		if len(keys) > 1 {
			cheaterSet[vk] = true
		}
	}
	for vk, changes := range announcedChanges {
		if len(changes) > 1 {
			cheaterSet[vk] = true
		}
	}
	outputsAgree := true
	var firstOutputSet string
	first := true
	for _, sets := range broadcastOutputs {
		for k := range sets {
			if first {
				firstOutputSet = k
				first = false
				continue
			}
			if k != firstOutputSet {
				outputsAgree = false
			}
		}
	}
	if !outputsAgree {
		if last := s.Players.Last(); last != nil {
			cheaterSet[last.KeyString()] = true
		}
	}

	for vk := range cheaterSet {
		if p := s.Players.ByVK([]byte(vk)); p != nil {
			r.cheaters = append(r.cheaters, p)
		}
	}

	for _, c := range r.cheaters {
		if err := s.emitLiar(c.VK); err != nil {
			s.Params.logf("blameEquivocationFailure: could not emit Liar against %v: %v", c, err)
		}
	}

	cheaterVKs := vksOf(r.cheaters)
	s.Players = s.Players.Remove(cheaterVKs...)
	s.Inbox.ResetAllExcept(wire.Announcement)
	s.Inbox.EvictSendersAll(cheaterVKs...)

	// Drop any retained phase-1 entry whose announced key coincides with
	// one we already hold for a different sender, a heuristic for
	// dropping duplicate admissions left over from the cheating round.
	seen := make(map[string]bool)
	for _, p := range s.Players.All() {
		ek, ok := s.EK[p.KeyString()]
		if !ok {
			continue
		}
		k := string(ek)
		if seen[k] {
			s.Inbox.EvictSenders(wire.Announcement, p.VK)
			continue
		}
		seen[k] = true
	}

	r.done = true
	return true, nil
}

func (r *blameEquivocationFailureRound) CanProceed() bool { return r.done }

func (r *blameEquivocationFailureRound) WaitingFor() []*Player {
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

func (r *blameEquivocationFailureRound) NextRound() Round {
	s := r.state
	for _, c := range r.cheaters {
		if string(c.VK) == string(r.params.Me.VK) {
			// the local player was identified as a cheater: nothing
			// further to drive locally.
			s.Done = true
			return nil
		}
	}
	if err := s.resetForAnnouncement(); err != nil {
		s.Done = true
		s.Err = err
		return nil
	}
	return &announcementRound{base: base{r.params, s}}
}
