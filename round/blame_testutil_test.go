package round

import (
	"testing"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/go-coinshuffle/core/netio"
	"github.com/go-coinshuffle/core/shufflecrypto"
	"github.com/go-coinshuffle/core/wire"
)

// storeBlameMessages writes msgs into inbox's Blame slot for sender, in the
// same shape ingest() would have produced: one envelope per message, all
// re-marshaled as a single wire.Batch.
func storeBlameMessages(t *testing.T, inbox *Inbox, sender []byte, msgs []*wire.Message) {
	t.Helper()
	envs := make([]*wire.Envelope, 0, len(msgs))
	for _, m := range msgs {
		envs = append(envs, &wire.Envelope{Packet: &wire.Packet{
			Phase:   wire.Blame,
			FromKey: &wire.Key{Key: sender},
			Message: m,
		}})
	}
	raw, err := proto.Marshal(&wire.Batch{Envelopes: envs})
	if err != nil {
		t.Fatalf("could not marshal test blame batch: %v", err)
	}
	inbox.Store(wire.Blame, sender, raw)
}

// storeShuffleEvidence stashes ciphertexts into a player's own Shuffle-phase
// inbox, used to build the collectEvidence(wire.Shuffle) blob a
// ShuffleAndEquivocationFailure blame carries.
func storeShuffleEvidence(t *testing.T, inbox *Inbox, sender []byte, ciphertexts []string) {
	t.Helper()
	envs := make([]*wire.Envelope, 0, len(ciphertexts))
	for _, ct := range ciphertexts {
		envs = append(envs, &wire.Envelope{Packet: &wire.Packet{
			Phase:   wire.Shuffle,
			FromKey: &wire.Key{Key: sender},
			Message: &wire.Message{Str: []byte(ct)},
		}})
	}
	raw, err := proto.Marshal(&wire.Batch{Envelopes: envs})
	if err != nil {
		t.Fatalf("could not marshal test shuffle batch: %v", err)
	}
	inbox.Store(wire.Shuffle, sender, raw)
}

// encodeEvidence mirrors collectEvidence's output shape for a single-sender
// evidence blob: a marshaled Batch.
func encodeEvidence(t *testing.T, envs ...*wire.Envelope) []byte {
	t.Helper()
	raw, err := proto.Marshal(&wire.Batch{Envelopes: envs})
	if err != nil {
		t.Fatalf("could not marshal test evidence: %v", err)
	}
	return raw
}

// newTestState builds a minimal, directly-constructed State for player me
// within players, wired with real shufflecrypto (so replay/signing paths
// behave exactly as in production) and large enough buffered channels that
// sendBatch/sendTo never block during a test.
func newTestState(t *testing.T, me *Player, players *PlayerSet) (*State, *Params, chan []byte) {
	t.Helper()
	out := make(chan []byte, 64)
	in := make(chan []byte, 64)
	params := &Params{
		Session:  []byte("test-session"),
		Me:       me,
		Players:  players,
		SK:       mustPrivKey(t),
		Crypto:   shufflecrypto.Adapter{},
		Channels: netio.NewChannels(in, out, nil, 50*time.Millisecond),
	}
	state, err := newState(params)
	if err != nil {
		t.Fatalf("newState: %v", err)
	}
	eph, err := params.Crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	state.Ephemeral = eph
	return state, params, out
}

func mustPrivKey(t *testing.T) []byte {
	t.Helper()
	kp, err := shufflecrypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp.ExportPrivateKey()
}

func playerSet3(t *testing.T) (*PlayerSet, *Player, *Player, *Player) {
	t.Helper()
	ps := NewPlayerSet(map[int][]byte{0: []byte("vk-0"), 1: []byte("vk-1"), 2: []byte("vk-2")})
	all := ps.All()
	return ps, all[0], all[1], all[2]
}

// realPlayerSet3 seats three players under genuine secp256k1 public keys,
// needed by any round that parses a player's VK as a public key
// (fundedAddress, VerificationAndSubmission's signature checks).
func realPlayerSet3(t *testing.T) (ps *PlayerSet, players []*Player, privKeys map[int][]byte) {
	t.Helper()
	seats := make(map[int][]byte, 3)
	privKeys = make(map[int][]byte, 3)
	for i := 0; i < 3; i++ {
		kp, err := shufflecrypto.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair: %v", err)
		}
		seats[i] = kp.ExportPublicKey()
		privKeys[i] = kp.ExportPrivateKey()
	}
	ps = NewPlayerSet(seats)
	return ps, ps.All(), privKeys
}
