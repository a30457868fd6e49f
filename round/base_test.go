package round

import (
	"testing"
	"time"

	"github.com/go-coinshuffle/core/netio"
	"github.com/go-coinshuffle/core/shufflecrypto"
	"github.com/go-coinshuffle/core/wire"
)

func TestRunAbortsImmediatelyWhenLocalPlayerIsUnderfunded(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	in := make(chan []byte, 4)
	out := make(chan []byte, 4)

	params := &Params{
		Session:  []byte("run-test"),
		Me:       players[0],
		Players:  ps,
		SK:       privKeys[0],
		Crypto:   shufflecrypto.Adapter{},
		Coin:     &fakeCoin{funded: map[string]bool{}}, // nobody funded
		Channels: netio.NewChannels(in, out, nil, 20*time.Millisecond),
		Amount:   1000,
		Fee:      10,
	}

	tx, err := Run(params)
	if err == nil {
		t.Fatal("expected Run to return an error when the local player lacks funds")
	}
	if tx != nil {
		t.Fatal("expected a nil transaction on an aborted run")
	}
}

func TestRunReturnsFundsCheckFaultWithoutBlocking(t *testing.T) {
	ps, players, privKeys := realPlayerSet3(t)
	in := make(chan []byte, 4)
	out := make(chan []byte, 4)

	params := &Params{
		Session:  []byte("run-test"),
		Me:       players[0],
		Players:  ps,
		SK:       privKeys[0],
		Crypto:   shufflecrypto.Adapter{},
		Coin:     &fakeCoin{fundsErr: errNetworkFault},
		Channels: netio.NewChannels(in, out, nil, 20*time.Millisecond),
		Amount:   1000,
		Fee:      10,
	}

	done := make(chan struct{})
	go func() {
		_, _ = Run(params)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return promptly on a funds-check fault, not block on RecvBatch")
	}
}

func TestCheckForBlameDivertsFromProductivePhaseOnReceivedMessage(t *testing.T) {
	ps, p0, p1, p2 := playerSet3(t)
	state, params, _ := newTestState(t, p0, ps)

	// p0 never detected anything itself; it only received p2's ShuffleFailure.
	storeBlameMessages(t, state.Inbox, p2.VK, []*wire.Message{{Blame: &wire.Blame{
		Reason:  wire.ShuffleFailure,
		Accused: &wire.Key{Key: p1.VK},
	}}})

	current := &broadcastOutputRound{base: base{params, state}}
	next := checkForBlame(current, params, state)
	if next == nil {
		t.Fatal("expected a divert into the matching blame sub-phase")
	}
	if next.Phase() != PhaseBlameShuffleFailure {
		t.Fatalf("got phase %s, want %s", next.Phase(), PhaseBlameShuffleFailure)
	}
}

func TestCheckForBlameIsNilAlreadyInsideABlamePhase(t *testing.T) {
	ps, p0, _, p2 := playerSet3(t)
	state, params, _ := newTestState(t, p0, ps)

	storeBlameMessages(t, state.Inbox, p2.VK, []*wire.Message{{Blame: &wire.Blame{
		Reason: wire.ShuffleFailure,
	}}})

	current := &blameShuffleFailureRound{base: base{params, state}}
	if next := checkForBlame(current, params, state); next != nil {
		t.Fatalf("expected no divert while already inside a blame phase, got %s", next.Phase())
	}
}

func TestCheckForBlameIsNilWithoutAnyBlameMessage(t *testing.T) {
	ps, p0, _, _ := playerSet3(t)
	state, params, _ := newTestState(t, p0, ps)

	current := &broadcastOutputRound{base: base{params, state}}
	if next := checkForBlame(current, params, state); next != nil {
		t.Fatalf("expected no divert with an empty inbox, got %s", next.Phase())
	}
}

func TestCheckForBlameSkipsLiarAndFindsTheRealReasonBehindIt(t *testing.T) {
	ps, p0, _, p2 := playerSet3(t)
	state, params, _ := newTestState(t, p0, ps)

	// p2's own self-addressed Liar ban (echoed back via the relay) must not
	// mask the EquivocationFailure reason sitting right after it.
	storeBlameMessages(t, state.Inbox, p2.VK, []*wire.Message{
		{Blame: &wire.Blame{Reason: wire.Liar, Accused: &wire.Key{Key: []byte("someone")}}},
		{Blame: &wire.Blame{Reason: wire.EquivocationFailure, Accused: &wire.Key{Key: []byte("someone")}}},
	})

	current := &announcementRound{base: base{params, state}}
	next := checkForBlame(current, params, state)
	if next == nil || next.Phase() != PhaseBlameEquivocationFailure {
		t.Fatalf("got %v, want phase %s", next, PhaseBlameEquivocationFailure)
	}
}

func TestCheckForBlameDerivesInsufficientFundsOffendersFromInbox(t *testing.T) {
	ps, p0, p1, p2 := playerSet3(t)
	state, params, _ := newTestState(t, p0, ps)

	storeBlameMessages(t, state.Inbox, p2.VK, []*wire.Message{{Blame: &wire.Blame{
		Reason:  wire.InsufficientFunds,
		Accused: &wire.Key{Key: p1.VK},
	}}})

	current := &announcementRound{base: base{params, state}}
	next := checkForBlame(current, params, state)
	bifr, ok := next.(*blameInsufficientFundsRound)
	if !ok {
		t.Fatalf("got %T, want *blameInsufficientFundsRound", next)
	}
	if len(bifr.offenders) != 1 || string(bifr.offenders[0].VK) != string(p1.VK) {
		t.Fatalf("got offenders %v, want [p1]", bifr.offenders)
	}
}
