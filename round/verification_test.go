package round

import (
	"testing"

	"github.com/go-coinshuffle/core/wire"
)

func TestVerificationStartBuildsTransactionAndBroadcastsSignature(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, out := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	params.Amount, params.Fee = 1000, 10
	params.Change = "change-0"
	state.Identity, _ = params.Crypto.RestoreFromPrivateKey(params.SK)
	state.Output = []string{"addr-0", "addr-1", "addr-2"}
	state.CA[players[0].KeyString()] = "change-0"
	params.Coin = &fakeCoin{funded: map[string]bool{}, verifyResult: true}

	r := &verificationRound{base: base{params, state}}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if state.Tx == nil {
		t.Fatal("expected Start to populate state.Tx")
	}

	envs := decodeOutBatch(t, out)
	if len(envs) != 1 || envs[0].Packet.Message.Signature == nil {
		t.Fatal("expected a single transaction-signature envelope")
	}
	if string(envs[0].Packet.Message.Signature.Signature) != "sig" {
		t.Fatalf("got signature %q, want %q", envs[0].Packet.Message.Signature.Signature, "sig")
	}
}

func sigEnv(sender []byte, sig []byte) *wire.Envelope {
	return &wire.Envelope{Packet: &wire.Packet{
		Phase: wire.VerificationAndSubmission, FromKey: &wire.Key{Key: sender}, Message: &wire.Message{Signature: &wire.Signature{Signature: sig}},
	}}
}

func TestVerificationUpdateWaitsForEverySeatedSignature(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, _ := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	params.Coin = &fakeCoin{verifyResult: true}

	state.Inbox.Store(wire.VerificationAndSubmission, players[0].VK, encodeEvidence(t, sigEnv(players[0].VK, []byte("s0"))))

	r := &verificationRound{base: base{params, state}}
	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if ok {
		t.Fatal("expected Update to wait for the remaining two signatures")
	}
}

func TestVerificationUpdateSucceedsAndBroadcastsTransaction(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, _ := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	fc := &fakeCoin{verifyResult: true, broadcastHash: "txid-123"}
	params.Coin = fc

	for i, p := range players {
		state.Inbox.Store(wire.VerificationAndSubmission, p.VK, encodeEvidence(t, sigEnv(p.VK, []byte{byte(i)})))
	}

	r := &verificationRound{base: base{params, state}}
	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if !ok || !r.done {
		t.Fatal("expected Update to complete successfully")
	}
	if !state.Done {
		t.Fatal("expected State.Done to be set on successful submission")
	}
	if r.NextRound() != nil {
		t.Fatal("expected NextRound to be nil: VerificationAndSubmission is terminal")
	}
}

func TestVerificationUpdateBlamesAndTerminatesOnBadSignature(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, out := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	state.Identity, _ = params.Crypto.RestoreFromPrivateKey(params.SK)
	params.Coin = &fakeCoin{verifyResult: false}

	for i, p := range players {
		state.Inbox.Store(wire.VerificationAndSubmission, p.VK, encodeEvidence(t, sigEnv(p.VK, []byte{byte(i)})))
	}

	r := &verificationRound{base: base{params, state}}
	ok, rerr := r.Update()
	if !ok {
		t.Fatal("expected Update to report done alongside the terminal error")
	}
	if rerr == nil {
		t.Fatal("expected Update to report an error for the failed signature check")
	}
	if !state.Done {
		t.Fatal("expected State.Done to be set on a verification failure")
	}

	envs := decodeOutBatch(t, out)
	if len(envs) != 1 || envs[0].Packet.Message.Blame == nil ||
		envs[0].Packet.Message.Blame.Reason != wire.InvalidSignature {
		t.Fatal("expected an InvalidSignature blame to have been emitted")
	}
}
