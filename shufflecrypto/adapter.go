package shufflecrypto

import (
	"github.com/btcsuite/btcd/btcec"

	"github.com/go-coinshuffle/core/round"
)

// Adapter implements round.Crypto against this package's secp256k1 ECDH,
// HKDF/AES-GCM hybrid encryption, and ECDSA signing. It is the crypto
// collaborator a caller plugs into round.Params for a live deployment; a
// test harness substitutes its own round.Crypto instead.
type Adapter struct{}

func (Adapter) GenerateKeyPair() (round.KeyPair, error) {
	return GenerateKeyPair()
}

func (Adapter) RestoreFromPrivateKey(raw []byte) (round.KeyPair, error) {
	return RestoreFromPrivateKey(raw)
}

func (Adapter) ParsePublicKey(raw []byte) (*btcec.PublicKey, error) {
	return ParsePublicKey(raw)
}

func (Adapter) Encrypt(plaintext []byte, peerPublic *btcec.PublicKey) ([]byte, error) {
	return Encrypt(plaintext, peerPublic)
}

func (Adapter) Hash(parts ...[]byte) []byte {
	return Hash(parts...)
}

func (Adapter) Verify(sig, msg, vk []byte) bool {
	return Verify(sig, msg, vk)
}
