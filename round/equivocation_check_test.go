package round

import (
	"testing"

	"github.com/go-coinshuffle/core/wire"
)

func storeHash(t *testing.T, inbox *Inbox, sender, hash []byte) {
	t.Helper()
	env := &wire.Envelope{Packet: &wire.Packet{
		Phase: wire.EquivocationCheck, FromKey: &wire.Key{Key: sender}, Message: &wire.Message{Hash: &wire.Hash{Hash: hash}},
	}}
	inbox.Store(wire.EquivocationCheck, sender, encodeEvidence(t, env))
}

func TestEquivocationCheckStartBroadcastsLocalHash(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, out := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	state.Identity, _ = params.Crypto.RestoreFromPrivateKey(params.SK)
	state.Output = []string{"addr-0", "addr-1", "addr-2"}
	for _, p := range players {
		state.EK[p.KeyString()] = p.VK
	}

	r := &equivocationCheckRound{base: base{params, state}}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	envs := decodeOutBatch(t, out)
	if len(envs) != 1 || envs[0].Packet.Message.Hash == nil {
		t.Fatal("expected a single equivocation-hash envelope")
	}
	if string(envs[0].Packet.Message.Hash.Hash) != string(state.equivocationHash()) {
		t.Fatal("expected the broadcast hash to match equivocationHash()")
	}
}

func TestEquivocationCheckUpdateAdvancesWhenAllAgree(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, _ := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	state.Output = []string{"addr-0", "addr-1", "addr-2"}
	for _, p := range players {
		state.EK[p.KeyString()] = p.VK
	}
	h := state.equivocationHash()
	for _, p := range players {
		storeHash(t, state.Inbox, p.VK, h)
	}

	r := &equivocationCheckRound{base: base{params, state}}
	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if !ok || !r.done || r.blamed {
		t.Fatal("expected Update to advance when every hash agrees")
	}

	next := r.NextRound()
	if _, ok := next.(*verificationRound); !ok {
		t.Fatalf("got NextRound %T, want *verificationRound", next)
	}
}

func TestEquivocationCheckUpdateBlamesMismatchedPlayer(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, out := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	state.Identity, _ = params.Crypto.RestoreFromPrivateKey(params.SK)
	state.Output = []string{"addr-0", "addr-1", "addr-2"}
	for _, p := range players {
		state.EK[p.KeyString()] = p.VK
	}
	h := state.equivocationHash()
	storeHash(t, state.Inbox, players[0].VK, h)
	storeHash(t, state.Inbox, players[1].VK, h)
	storeHash(t, state.Inbox, players[2].VK, []byte("a-different-hash"))

	r := &equivocationCheckRound{base: base{params, state}}
	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if !ok || !r.done || !r.blamed {
		t.Fatal("expected Update to detect the mismatch and blame")
	}

	envs := decodeOutBatch(t, out)
	if len(envs) != 1 || envs[0].Packet.Message.Blame == nil ||
		envs[0].Packet.Message.Blame.Reason != wire.EquivocationFailure ||
		string(envs[0].Packet.Message.Blame.Accused.Key) != string(players[2].VK) {
		t.Fatal("expected an EquivocationFailure emission naming player 2")
	}

	next := r.NextRound()
	if _, ok := next.(*blameEquivocationFailureRound); !ok {
		t.Fatalf("got NextRound %T, want *blameEquivocationFailureRound", next)
	}
}

func TestEquivocationHashDeterministicRegardlessOfOutputOrder(t *testing.T) {
	ps, players, _ := realPlayerSet3(t)
	state1, _, _ := newTestState(t, players[0], ps)
	state2, _, _ := newTestState(t, players[0], ps)
	state1.Output = []string{"b", "a"}
	state2.Output = []string{"a", "b"}
	for _, p := range players {
		state1.EK[p.KeyString()] = p.VK
		state2.EK[p.KeyString()] = p.VK
	}
	if string(state1.equivocationHash()) != string(state2.equivocationHash()) {
		t.Fatal("expected equivocationHash to be independent of Output arrival order")
	}
}
