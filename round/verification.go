package round

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/coin"
	"github.com/go-coinshuffle/core/wire"
)

// verificationRound implements §4.4.7: build the shared transaction, sign
// and broadcast one signature, collect and verify every other player's
// signature, then submit.
type verificationRound struct {
	base
	done bool
}

func (r *verificationRound) Phase() Phase { return PhaseVerificationAndSubmission }

func (r *verificationRound) Start() *Error {
	s := r.state
	players := s.Players.All()

	inputs := make([]coin.Funding, 0, len(players))
	changes := make([]coin.Funding, 0, len(players))
	for _, p := range players {
		addr, err := s.fundedAddress(p.VK)
		if err != nil {
			return r.wrapErrorf(errors.Wrap(err, "round: could not derive funding address"))
		}
		inputs = append(inputs, coin.Funding{VK: p.KeyString(), Address: addr})
		if ca, ok := s.CA[p.KeyString()]; ok && ca != "" {
			changes = append(changes, coin.Funding{VK: p.KeyString(), Address: ca})
		}
	}

	tx, err := s.Params.Coin.MakeUnsignedTransaction(inputs, s.Output, changes, s.Params.Amount, s.Params.Fee)
	if err != nil {
		return r.wrapErrorf(errors.Wrap(err, "round: could not build unsigned transaction"))
	}
	s.Tx = tx

	inputIdx := -1
	for i, p := range players {
		if string(p.VK) == string(s.Params.Me.VK) {
			inputIdx = i
			break
		}
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), s.Identity.ExportPrivateKey())
	sig, err := s.Params.Coin.GetTransactionSignature(tx, inputIdx, priv)
	if err != nil {
		return r.wrapErrorf(errors.Wrap(err, "round: could not sign transaction"))
	}
	if err := s.sendBatch(wire.VerificationAndSubmission, &wire.Message{Signature: &wire.Signature{Signature: sig}}); err != nil {
		return r.wrapErrorf(errors.Wrap(err, "round: could not broadcast transaction signature"))
	}
	return nil
}

func (r *verificationRound) Update() (bool, *Error) {
	s := r.state
	if !s.Inbox.Complete(wire.VerificationAndSubmission, s.Players) {
		return false, nil
	}

	players := s.Players.All()
	sigs := make(map[string][]byte, len(players))
	for i, p := range players {
		msg, ok := s.inboxMessage(wire.VerificationAndSubmission, p.VK)
		if !ok || msg.Signature == nil {
			return false, r.wrapErrorf(errors.Errorf("round: missing transaction signature from %v", p))
		}
		pub, err := s.Params.Crypto.ParsePublicKey(p.VK)
		if err != nil {
			return false, r.wrapErrorf(errors.Wrap(err, "round: invalid player verification key"))
		}
		if !s.Params.Coin.VerifyTxSignature(s.Tx, i, msg.Signature.Signature, pub) {
			if err := s.emitInvalidTxSignature(p.VK); err != nil {
				s.Params.logf("verification: could not emit blame for wrong tx signature from %v: %v", p, err)
			}
			werr := r.wrapErrorf(errors.Errorf("round: wrong tx signature from player %v", p))
			s.Done = true
			s.Err = werr
			return true, werr
		}
		sigs[p.KeyString()] = msg.Signature.Signature
	}

	for i, p := range players {
		pub, err := s.Params.Crypto.ParsePublicKey(p.VK)
		if err != nil {
			return false, r.wrapErrorf(err)
		}
		if err := s.Params.Coin.AddTransactionSignatures(s.Tx, i, sigs[p.KeyString()], pub); err != nil {
			return false, r.wrapErrorf(errors.Wrap(err, "round: could not attach transaction signature"))
		}
	}

	status, err := s.Params.Coin.BroadcastTransaction(s.Tx)
	if err != nil {
		return false, r.wrapErrorf(errors.Wrap(err, "round: could not broadcast transaction"))
	}
	s.Params.logf("verification: broadcast complete: %s", status)
	s.Done = true
	r.done = true
	return true, nil
}

func (r *verificationRound) CanProceed() bool { return r.done || r.state.Done }

func (r *verificationRound) WaitingFor() []*Player {
	s := r.state
	var waiting []*Player
	for _, p := range s.Players.All() {
		if _, ok := s.Inbox.Get(wire.VerificationAndSubmission, p.VK); !ok {
			waiting = append(waiting, p)
		}
	}
	return waiting
}

func (r *verificationRound) NextRound() Round { return nil }
