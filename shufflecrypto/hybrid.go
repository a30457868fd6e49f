package shufflecrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"github.com/go-coinshuffle/core/common"
)

// Encrypt implements the protocol core's hybrid encryption adapter: an
// ephemeral ECDH exchange against the peer's public key derives a shared
// secret, HKDF-SHA256 stretches it into an AES-256-GCM key, and the
// ephemeral public key is prefixed onto the ciphertext so the receiver can
// redo the ECDH step without any extra round trip. This is a drop-in
// generalization of the original pycrypto `encrypt(message, public_key)`
// call, which hid the same ECIES-style scheme behind one function.
func Encrypt(plaintext []byte, peerPublic *btcec.PublicKey) ([]byte, error) {
	ephemeral, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not generate ephemeral key")
	}
	shared := deriveShared(ephemeral, peerPublic)

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte("coinshuffle-nonce")), nonce); err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not derive nonce")
	}

	ephPub := ephemeral.PubKey().SerializeCompressed()
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(ephPub)+len(sealed))
	out = append(out, ephPub...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt reverses Encrypt using this key pair's private scalar.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	const compressedLen = 33
	if len(ciphertext) < compressedLen {
		return nil, errors.New("shufflecrypto: ciphertext too short")
	}
	ephPub, err := btcec.ParsePubKey(ciphertext[:compressedLen], btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: invalid ephemeral public key")
	}
	shared := deriveShared(k.priv, ephPub)

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte("coinshuffle-nonce")), nonce); err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not derive nonce")
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext[compressedLen:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: decryption failed")
	}
	return plaintext, nil
}

func deriveShared(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	x, _ := pub.Curve.ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	return x.Bytes()
}

func newAEAD(shared []byte) (cipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte("coinshuffle-key")), key); err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not derive symmetric key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not build AES cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "shufflecrypto: could not build AEAD")
	}
	return aead, nil
}

// Hash wraps the shared domain-separated hash used throughout the round
// core for equivocation commitments and shuffle-failure transcripts.
func Hash(parts ...[]byte) []byte {
	return common.SHA512_256(parts...)
}
