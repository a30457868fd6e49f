package round

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

type announcementRound struct {
	base
	complete bool
}

func (r *announcementRound) Phase() Phase { return PhaseAnnouncement }

func (r *announcementRound) Start() *Error {
	s := r.state
	msg := &wire.Message{
		Key:     &wire.Key{Key: s.Ephemeral.ExportPublicKey()},
		Address: &wire.Address{Address: s.Params.Change},
	}
	if err := s.sendBatch(wire.Announcement, msg); err != nil {
		return r.wrapErrorf(errors.Wrap(err, "round: could not broadcast announcement"))
	}
	return nil
}

func (r *announcementRound) Update() (bool, *Error) {
	s := r.state
	if !s.Inbox.Complete(wire.Announcement, s.Players) {
		return false, nil
	}
	if err := s.readAnnouncements(); err != nil {
		return false, r.wrapErrorf(err)
	}
	r.complete = true
	return true, nil
}

func (r *announcementRound) CanProceed() bool { return r.complete }

func (r *announcementRound) WaitingFor() []*Player {
	s := r.state
	var waiting []*Player
	for _, p := range s.Players.All() {
		if _, ok := s.Inbox.Get(wire.Announcement, p.VK); !ok {
			waiting = append(waiting, p)
		}
	}
	return waiting
}

func (r *announcementRound) NextRound() Round {
	s := r.state
	me := s.Players.First()
	if string(me.VK) == string(s.Params.Me.VK) {
		// The first player produces the complete onion immediately and
		// forwards it, then skips straight to waiting for BroadcastOutput.
		if err := s.sendFirstOnion(); err != nil {
			s.Done = true
			s.Err = err
			return nil
		}
		return &broadcastOutputRound{base: base{r.params, s}}
	}
	return &shufflingRound{base: base{r.params, s}}
}

// readAnnouncements parses every stored Announcement message and
// populates EK and CA. A sender whose stored batch fails to decode or
// carries no key is skipped rather than aborting the round (§7: decoding
// exceptions on a single packet are transient).
func (s *State) readAnnouncements() error {
	for _, p := range s.Players.All() {
		msg, ok := s.inboxMessage(wire.Announcement, p.VK)
		if !ok || msg.Key == nil {
			s.Params.logf("announcement: missing or malformed packet from %v", p)
			continue
		}
		s.EK[p.KeyString()] = msg.Key.Key
		if msg.Address != nil {
			s.CA[p.KeyString()] = msg.Address.Address
		}
	}
	return nil
}

// sendFirstOnion builds C1 = Encrypt_{EK[me+1]}(...Encrypt_{EK[last]}(addr_new)...)
// and forwards it as a single-Str batch to the immediate next player, per
// §4.4.3.
func (s *State) sendFirstOnion() error {
	players := s.Players.All()
	ciphertext := []byte(s.Params.AddrNew)
	// layer from the last player inward to my immediate successor, so the
	// innermost layer is the last player's key and the outermost layer
	// (peeled first by my immediate successor) is the successor's key
	for i := len(players) - 1; i > 0; i-- {
		peer := players[i]
		pub, err := s.Params.Crypto.ParsePublicKey(s.EK[peer.KeyString()])
		if err != nil {
			return errors.Wrapf(err, "round: invalid encryption key from player %v", peer)
		}
		ciphertext, err = s.Params.Crypto.Encrypt(ciphertext, pub)
		if err != nil {
			return errors.Wrapf(err, "round: could not encrypt onion layer for player %v", peer)
		}
	}
	next := s.Players.Next(s.Params.Me)
	return s.sendStrings(wire.Shuffle, next.VK, []string{string(ciphertext)})
}
