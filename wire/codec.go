package wire

import (
	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/common"
)

// EncodeBatch serializes a batch of signed envelopes for transport.
func EncodeBatch(envelopes []*Envelope) ([]byte, error) {
	return proto.Marshal(&Batch{Envelopes: envelopes})
}

// ParseBatch decodes bytes produced by EncodeBatch. Decoding errors on a
// single malformed batch are the caller's responsibility to log and drop
// (§7 of the protocol core: decode failures are transient, not fatal).
func ParseBatch(raw []byte) ([]*Envelope, error) {
	batch := new(Batch)
	if err := proto.Unmarshal(raw, batch); err != nil {
		return nil, errors.Wrap(err, "wire: malformed batch")
	}
	return batch.Envelopes, nil
}

// VerifyFunc checks a signature over msg against a claimed verification key.
// It is supplied by the crypto adapter; this package never implements
// cryptography itself.
type VerifyFunc func(sig, msg, vk []byte) bool

// SignatureGate implements the mandatory signature check from the protocol
// core's external interface: every envelope in a batch must verify against
// its claimed sender, and any envelope whose sender is not a known player is
// dropped silently (it is not this peer's business). The first envelope that
// fails to verify causes the whole batch to be rejected, returning the
// offending sender's verification key so the caller can emit an
// InvalidSignature blame.
func SignatureGate(batch []*Envelope, knownPlayers map[string]bool, verify VerifyFunc) ([]*Envelope, []byte, error) {
	accepted := make([]*Envelope, 0, len(batch))
	for _, env := range batch {
		if env == nil || env.Packet == nil || env.Packet.FromKey == nil {
			return nil, nil, errors.New("wire: envelope missing sender key")
		}
		from := env.Packet.FromKeyBytes()
		if !common.NonEmptyMultiBytes([][]byte{env.Signature, from}) {
			return nil, nil, errors.New("wire: envelope has an empty signature or sender key")
		}
		packetBytes, err := proto.Marshal(env.Packet)
		if err != nil {
			return nil, nil, errors.Wrap(err, "wire: could not re-marshal packet for verification")
		}
		if !verify(env.Signature, packetBytes, from) {
			return nil, from, errors.Errorf("wire: signature verification failed for sender %x", from)
		}
		if !knownPlayers[string(from)] {
			continue // sender is not seated; drop silently
		}
		accepted = append(accepted, env)
	}
	return accepted, nil, nil
}
