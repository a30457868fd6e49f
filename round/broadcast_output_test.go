package round

import (
	"testing"

	"github.com/go-coinshuffle/core/wire"
)

func TestBroadcastOutputLastPlayerShortCircuits(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, _ := newTestState(t, players[2], ps) // last seated player
	params.SK = privKeys[2]
	state.Output = []string{"addr-0", "addr-1", "addr-2"}

	r := &broadcastOutputRound{base: base{params, state}}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.done {
		t.Fatal("expected the last player to short-circuit immediately")
	}
	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if !ok {
		t.Fatal("expected Update to report done for the last player")
	}
	next := r.NextRound()
	if _, ok := next.(*equivocationCheckRound); !ok {
		t.Fatalf("got NextRound %T, want *equivocationCheckRound", next)
	}
}

func TestBroadcastOutputWaitsThenAcceptsValidOutput(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, _ := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	params.AddrNew = "addr-0"

	r := &broadcastOutputRound{base: base{params, state}}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.done {
		t.Fatal("did not expect a non-last player to short-circuit")
	}

	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if ok {
		t.Fatal("expected Update to wait with no broadcast yet")
	}
	waiting := r.WaitingFor()
	if len(waiting) != 1 || string(waiting[0].VK) != string(players[2].VK) {
		t.Fatal("expected WaitingFor to name the last player")
	}

	envs := []*wire.Envelope{
		{Packet: &wire.Packet{Phase: wire.Broadcast, FromKey: &wire.Key{Key: players[2].VK}, Message: &wire.Message{Str: []byte("addr-1")}}},
		{Packet: &wire.Packet{Phase: wire.Broadcast, FromKey: &wire.Key{Key: players[2].VK}, Message: &wire.Message{Str: []byte("addr-0")}}},
		{Packet: &wire.Packet{Phase: wire.Broadcast, FromKey: &wire.Key{Key: players[2].VK}, Message: &wire.Message{Str: []byte("addr-2")}}},
	}
	state.Inbox.Store(wire.Broadcast, players[2].VK, encodeEvidence(t, envs...))

	ok, rerr = r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if !ok || !r.done || r.blamed {
		t.Fatal("expected Update to accept the valid output set")
	}
	if len(state.Output) != 3 {
		t.Fatalf("got %d outputs, want 3", len(state.Output))
	}

	next := r.NextRound()
	if _, ok := next.(*equivocationCheckRound); !ok {
		t.Fatalf("got NextRound %T, want *equivocationCheckRound", next)
	}
}

func TestBroadcastOutputMissingAddressTriggersShuffleFailure(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	state, params, out := newTestState(t, players[0], ps)
	params.SK = privKeys[0]
	params.AddrNew = "addr-0"
	state.Identity, _ = params.Crypto.RestoreFromPrivateKey(params.SK)

	envs := []*wire.Envelope{
		{Packet: &wire.Packet{Phase: wire.Broadcast, FromKey: &wire.Key{Key: players[2].VK}, Message: &wire.Message{Str: []byte("addr-1")}}},
		{Packet: &wire.Packet{Phase: wire.Broadcast, FromKey: &wire.Key{Key: players[2].VK}, Message: &wire.Message{Str: []byte("addr-2")}}},
	}
	state.Inbox.Store(wire.Broadcast, players[2].VK, encodeEvidence(t, envs...))

	r := &broadcastOutputRound{base: base{params, state}}
	ok, rerr := r.Update()
	if rerr != nil {
		t.Fatalf("Update: %v", rerr)
	}
	if !ok || !r.done || !r.blamed {
		t.Fatal("expected Update to detect the missing address and blame")
	}

	envsOut := decodeOutBatch(t, out)
	if len(envsOut) != 1 || envsOut[0].Packet.Message.Blame == nil ||
		envsOut[0].Packet.Message.Blame.Reason != wire.ShuffleFailure {
		t.Fatal("expected a ShuffleFailure emission naming the last player")
	}

	next := r.NextRound()
	if _, ok := next.(*blameShuffleFailureRound); !ok {
		t.Fatalf("got NextRound %T, want *blameShuffleFailureRound", next)
	}
}
