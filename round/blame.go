package round

import (
	"sort"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// vksOf collects the verification keys of a player slice, the shape every
// PlayerSet.Remove/Inbox.EvictSenders* call needs.
func vksOf(players []*Player) [][]byte {
	out := make([][]byte, len(players))
	for i, p := range players {
		out[i] = p.VK
	}
	return out
}

// emitLiar bans accused by sending a single Liar blame addressed to this
// player's own verification key rather than broadcasting it peer-to-peer —
// the original's ban_the_liar routes the eviction notice to a distinct
// external destination (self.vk) so a calling harness gets a
// machine-readable eviction record separate from the peer blame traffic.
func (s *State) emitLiar(accused []byte) error {
	msg := &wire.Message{Blame: &wire.Blame{
		Reason:  wire.Liar,
		Accused: &wire.Key{Key: accused},
	}}
	return s.sendTo(wire.Blame, s.Params.Me.VK, msg)
}

// emitInvalidTxSignature broadcasts an InvalidSignature blame against a
// player whose submitted transaction signature failed verification during
// VerificationAndSubmission.
func (s *State) emitInvalidTxSignature(accused []byte) error {
	return s.sendBatch(wire.Blame, &wire.Message{Blame: &wire.Blame{
		Reason:  wire.InvalidSignature,
		Accused: &wire.Key{Key: accused},
	}})
}

// blameInvalidSignature is reached straight out of the signature gate: an
// entire inbound batch was rejected because one envelope's signature did
// not verify against its claimed sender. It broadcasts an InvalidSignature
// blame naming that sender and then terminates the round locally instead of
// entering a blame sub-phase; a failed broadcast is only logged.
func (s *State) blameInvalidSignature(badSender []byte) *Error {
	if err := s.sendBatch(wire.Blame, &wire.Message{Blame: &wire.Blame{
		Reason:  wire.InvalidSignature,
		Accused: &wire.Key{Key: badSender},
	}}); err != nil {
		s.Params.logf("ingest: could not emit InvalidSignature blame against %x: %v", badSender, err)
	}
	s.Done = true
	return WrapError(errors.Errorf("round: signature verification failed for sender %x", badSender), s.Phase, s.Params.Me)
}

// emitShuffleFailure broadcasts a ShuffleFailure blame against accused,
// attaching the transcript hash so other honest players can cross-check
// they observed the same announced key set (§4.4.8). MissingOutput stays a
// distinct wire enum value but the FSM never emits it directly — the
// original folds the BroadcastOutput dropped-address case into this same
// call, and so do we.
func (s *State) emitShuffleFailure(accused []byte, transcript []byte) error {
	return s.sendBatch(wire.Blame, &wire.Message{Blame: &wire.Blame{
		Reason:  wire.ShuffleFailure,
		Accused: &wire.Key{Key: accused},
		Invalid: &wire.Invalid{Invalid: transcript},
	}})
}

// emitEquivocationFailure broadcasts an EquivocationFailure blame against
// accused, attaching this player's own Announcement+BroadcastOutput inbox
// as evidence.
func (s *State) emitEquivocationFailure(accused []byte) error {
	evidence := s.collectEvidence(wire.Announcement, wire.Broadcast)
	return s.sendBatch(wire.Blame, &wire.Message{Blame: &wire.Blame{
		Reason:  wire.EquivocationFailure,
		Accused: &wire.Key{Key: accused},
		Invalid: &wire.Invalid{Invalid: evidence},
	}})
}

// emitShuffleAndEquivocationFailure broadcasts the replay-enabling blame:
// this player's ephemeral public and private keys plus its own Shuffling-
// phase inbox as evidence, so every honest peer can reconstruct and replay
// the onion.
func (s *State) emitShuffleAndEquivocationFailure(accused, ek, dk, evidence []byte) error {
	return s.sendBatch(wire.Blame, &wire.Message{Blame: &wire.Blame{
		Reason:  wire.ShuffleAndEquivocationFailure,
		Accused: &wire.Key{Key: accused},
		Key:     &wire.Key{Key: ek, Public: dk},
		Invalid: &wire.Invalid{Invalid: evidence},
	}})
}

// collectEvidence concatenates the raw inbox bytes stored for every sender
// across the named phases, senders visited in a deterministic order. Each
// stored blob is itself a marshaled wire.Batch (a repeated field); the
// concatenation of several such blobs decodes, via plain proto.Unmarshal,
// as one Batch whose Envelopes list is the union of all of them, by proto's
// repeated-field concatenation property.
func (s *State) collectEvidence(phases ...wire.Phase) []byte {
	var buf []byte
	for _, phase := range phases {
		senders := s.Inbox.Senders(phase)
		sort.Slice(senders, func(i, j int) bool { return string(senders[i]) < string(senders[j]) })
		for _, sender := range senders {
			if raw, ok := s.Inbox.Get(phase, sender); ok {
				buf = append(buf, raw...)
			}
		}
	}
	return buf
}

// decodeEvidence parses a blame's Invalid payload back into the Batch it
// was built from.
func decodeEvidence(raw []byte) (*wire.Batch, error) {
	b := new(wire.Batch)
	if err := proto.Unmarshal(raw, b); err != nil {
		return nil, errors.Wrap(err, "round: could not decode blame evidence")
	}
	return b, nil
}

// latestBySender returns, for every sender with at least one envelope in
// phase within batch, that sender's last message — used to read an
// accuser's Announcement or BroadcastOutput evidence one message per
// original announcer/broadcaster (these phases are both single-value from
// any one sender's perspective within one evidence blob; equivocation only
// shows up once two different accusers' evidence blobs are compared).
func latestBySender(batch *wire.Batch, phase wire.Phase) map[string]*wire.Message {
	out := make(map[string]*wire.Message)
	for _, env := range batch.Envelopes {
		if env == nil || env.Packet == nil || env.Packet.Phase != phase || env.Packet.Message == nil {
			continue
		}
		out[string(env.Packet.FromKeyBytes())] = env.Packet.Message
	}
	return out
}

// stringsBySender collects, for every sender with at least one envelope in
// phase within batch, the ordered list of Str payloads that sender sent —
// used to reconstruct the output set a BroadcastOutput evidence blob
// carries, and the ciphertext list a Shuffling evidence blob carries.
func stringsBySender(batch *wire.Batch, phase wire.Phase) map[string][]string {
	out := make(map[string][]string)
	for _, env := range batch.Envelopes {
		if env == nil || env.Packet == nil || env.Packet.Phase != phase || env.Packet.Message == nil {
			continue
		}
		sender := string(env.Packet.FromKeyBytes())
		out[sender] = append(out[sender], string(env.Packet.Message.Str))
	}
	return out
}

// setKey canonicalizes a set of strings into a comparable map key, sorted
// and joined, so two evidence-derived sets can be compared for equality
// regardless of arrival order.
func setKey(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	key := ""
	for _, v := range sorted {
		key += v + "\x00"
	}
	return key
}
