package shufflecrypto

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
)

// KeyPair is a single secp256k1 key pair, used interchangeably as an
// encryption key (ECDH) and a signing key (ECDSA), the same dual role the
// protocol core's per-round ephemeral keys play.
type KeyPair struct {
	priv *btcec.PrivateKey
}

// GenerateKeyPair produces a fresh ephemeral secp256k1 key pair, grounded on
// btcec.S256(), the curve registered as Secp256k1 in this package's curve
// registry.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not generate key pair")
	}
	return &KeyPair{priv: priv}, nil
}

// RestoreFromPrivateKey rebuilds a KeyPair from raw private key bytes. It is
// deliberately scoped rather than mutating a long-lived adapter: the blame
// flow for ShuffleFailure exports a single round's decryption key without
// disturbing any other round's key material.
func RestoreFromPrivateKey(raw []byte) (*KeyPair, error) {
	if len(raw) == 0 {
		return nil, errors.New("shufflecrypto: empty private key")
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return &KeyPair{priv: priv}, nil
}

// ExportPrivateKey returns the raw private scalar bytes.
func (k *KeyPair) ExportPrivateKey() []byte {
	return k.priv.Serialize()
}

// ExportPublicKey returns the compressed public key encoding.
func (k *KeyPair) ExportPublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// ParsePublicKey decodes a compressed or uncompressed public key as
// advertised by a peer over the wire.
func ParsePublicKey(raw []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: invalid public key")
	}
	return pub, nil
}

func (k *KeyPair) ecdsaPrivate() *ecdsa.PrivateKey {
	return k.priv.ToECDSA()
}
