package round

import (
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// State is all round-local mutable data, owned exclusively by the FSM for
// the lifetime of one round (§3's Ownership note). Run builds one State;
// every Announcement entry, including restarts after a successful blame
// resolution, resets it in place via resetForAnnouncement.
type State struct {
	Params *Params

	Players *PlayerSet
	Inbox   *Inbox

	Identity  KeyPair // long-lived signing identity (Params.SK restored once)
	Ephemeral KeyPair // this round's onion encryption keypair, regenerated each Announcement entry

	EK map[string][]byte // sender VK -> advertised encryption public key bytes
	CA map[string]string // sender VK -> advertised change address

	Output []string // the broadcast output set, in the order the last player sent it

	Phase Phase
	Done  bool
	Tx    *btcwire.MsgTx
	Err   error
}

func newState(p *Params) (*State, error) {
	identity, err := p.Crypto.RestoreFromPrivateKey(p.SK)
	if err != nil {
		return nil, errors.Wrap(err, "round: could not restore local identity key")
	}
	return &State{
		Params:   p,
		Players:  p.Players,
		Inbox:    NewInbox(),
		Identity: identity,
		EK:       make(map[string][]byte),
		CA:       make(map[string]string),
	}, nil
}

// resetForAnnouncement clears per-round announcement/shuffle state ahead of
// a fresh Announcement entry, generating a new ephemeral keypair. It does
// not touch Players or the long-lived Identity.
func (s *State) resetForAnnouncement() error {
	eph, err := s.Params.Crypto.GenerateKeyPair()
	if err != nil {
		return errors.Wrap(err, "round: could not generate ephemeral key pair")
	}
	s.Ephemeral = eph
	s.EK = make(map[string][]byte)
	s.CA = make(map[string]string)
	s.Output = nil
	return nil
}

// fundedAddress derives this player's coin address from its verification
// key via the coin adapter, used both in the funds pre-flight check and in
// building the shared unsigned transaction.
func (s *State) fundedAddress(vk []byte) (string, error) {
	pub, err := s.Params.Crypto.ParsePublicKey(vk)
	if err != nil {
		return "", errors.Wrap(err, "round: could not parse player verification key")
	}
	return s.Params.Coin.Address(pub, s.Params.Identity.Compressed)
}
