package shufflecrypto

import (
	"github.com/btcsuite/btcd/btcec"

	"github.com/go-coinshuffle/core/common"
)

// Sign produces a DER-encoded ECDSA signature over the SHA512/256 digest of
// msg, the signature scheme every wire envelope's Signature field is
// verified against.
func (k *KeyPair) Sign(msg []byte) []byte {
	digest := Hash(msg)
	sig, err := k.priv.Sign(digest)
	if err != nil {
		// only possible on an internal RNG failure; the round core treats
		// this identically to any other irrecoverable adapter fault
		common.Logger.Errorf("shufflecrypto: signing failed: %v", err)
		return nil
	}
	return sig.Serialize()
}

// Verify checks a DER-encoded ECDSA signature against a raw compressed
// public key. It is the VerifyFunc plugged into wire.SignatureGate.
func Verify(sig, msg, vk []byte) bool {
	pub, err := btcec.ParsePubKey(vk, btcec.S256())
	if err != nil {
		return false
	}
	parsed, err := btcec.ParseDERSignature(sig, btcec.S256())
	if err != nil {
		return false
	}
	return parsed.Verify(Hash(msg), pub)
}
