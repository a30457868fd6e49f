package round

import (
	"time"

	"github.com/btcsuite/btcd/btcec"

	"github.com/go-coinshuffle/core/coin"
	"github.com/go-coinshuffle/core/netio"
)

// KeyPair is the scoped per-round key capability: decryption, signing, and
// export. It is named separately from shufflecrypto.KeyPair so this package
// depends only on the small surface it actually needs (§9's design note:
// restore_from_privkey must build a scoped context, never mutate a
// long-lived adapter).
type KeyPair interface {
	Decrypt(ciphertext []byte) ([]byte, error)
	Sign(msg []byte) []byte
	ExportPrivateKey() []byte
	ExportPublicKey() []byte
}

// Crypto is the crypto adapter contract from the external interface: key
// generation, hybrid encrypt/decrypt, hashing and signing. The round
// package is built against this interface only, never against a concrete
// curve or cipher choice.
type Crypto interface {
	GenerateKeyPair() (KeyPair, error)
	RestoreFromPrivateKey(raw []byte) (KeyPair, error)
	ParsePublicKey(raw []byte) (*btcec.PublicKey, error)
	Encrypt(plaintext []byte, peerPublic *btcec.PublicKey) ([]byte, error)
	Hash(parts ...[]byte) []byte
	Verify(sig, msg, vk []byte) bool
}

// Identity carries the non-cryptographic facts about a player's signing key
// that still affect coin-layer behavior. Compressed records whether this
// player's verification key is meant to be read as a compressed or
// uncompressed SEC1 public key — the original branches its signing mode on
// the "04" uncompressed prefix; the round core itself stays agnostic to the
// distinction and only threads it through to the coin adapter's address
// derivation.
type Identity struct {
	Compressed bool
}

// Params bundles everything a round needs to run: the player set, this
// player's identity, the external collaborators, and the shuffle's
// financial parameters. It is immutable once the round starts.
type Params struct {
	Session []byte
	Me      *Player
	Players *PlayerSet

	SK       []byte // local signing key, opaque to this package beyond Crypto.Sign
	Identity Identity

	AddrNew string
	Change  string
	Amount  int64
	Fee     int64

	Crypto   Crypto
	Coin     coin.Adapter
	Channels *netio.Channels

	Timeout time.Duration
}

func (p *Params) logf(format string, args ...interface{}) {
	if p.Channels != nil {
		p.Channels.Logf(format, args...)
	}
}
