package coin

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
)

// Funding pairs a seated player's verification key with a funding or
// change address. Ordering matters: the slice position a caller builds
// inputs in is the inputIdx every later signing/verification call uses.
type Funding struct {
	VK      string
	Address string
}

// Adapter is the coin-specific contract the round core is built against. It
// is deliberately narrow: everything address-format-specific, fee-specific,
// and transaction-format-specific lives behind this interface so the round
// package never imports a chain SDK directly.
type Adapter interface {
	// Address derives this player's receiving address from a public key.
	// compressed selects compressed vs. uncompressed SEC1 encoding of pub
	// before hashing, mirroring whichever form that player's verification
	// key was advertised in.
	Address(pub *btcec.PublicKey, compressed bool) (string, error)

	// SufficientFunds reports whether addr holds at least amount. A nil
	// error with a false bool means the address genuinely lacks funds; a
	// non-nil error means the check itself failed (a network fault) and
	// must not be treated as evidence of an InsufficientFunds blame.
	SufficientFunds(addr string, amount int64) (bool, error)

	// MakeUnsignedTransaction builds the shared shuffle transaction: one
	// input per entry in inputs (in order — inputs[i] becomes tx input i),
	// one output per entry in outputs, plus at most one change output per
	// entry in changes. UTXO selection and change-value accounting for each funding
	// address is the adapter's concern, not the round core's.
	MakeUnsignedTransaction(inputs []Funding, outputs []string, changes []Funding, amount, fee int64) (*wire.MsgTx, error)

	// GetTransactionSignature signs the input at inputIdx with priv.
	GetTransactionSignature(tx *wire.MsgTx, inputIdx int, priv *btcec.PrivateKey) ([]byte, error)

	// VerifyTxSignature checks one input's signature against the claimed
	// public key without mutating tx.
	VerifyTxSignature(tx *wire.MsgTx, inputIdx int, sig []byte, pub *btcec.PublicKey) bool

	// AddTransactionSignatures merges a verified signature into tx's
	// input script.
	AddTransactionSignatures(tx *wire.MsgTx, inputIdx int, sig []byte, pub *btcec.PublicKey) error

	// BroadcastTransaction submits a fully-signed tx to the network.
	BroadcastTransaction(tx *wire.MsgTx) (string, error)

	// VerifySignature checks a detached signature over an arbitrary
	// message, outside of transaction signing. The round package does not
	// call it.
	VerifySignature(sig, msg []byte, pub *btcec.PublicKey) bool
}
