package coin

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	btcdwire "github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

// BTCAdapter implements Adapter against a P2PKH Bitcoin-style chain. It is
// the reference adapter this module ships (the round package's own tests
// use an in-test fake instead); a production deployment targeting a
// different coin swaps in a different Adapter without touching the round
// package.
type BTCAdapter struct {
	Params     *chaincfg.Params
	Lookup     func(addr string) (int64, error) // balance lookup, e.g. against an indexer
	SelectUTXO func(addr string, minAmount int64) ([]byte, uint32, int64, error)
	Submit     func(tx *btcdwire.MsgTx) (string, error)

	// Compressed is this adapter's own player's key encoding, used by
	// GetTransactionSignature and VerifyTxSignature when they recompute the
	// P2PKH script a signature commits to. AddTransactionSignatures always
	// embeds the compressed encoding of the given public key. A caller
	// speaking for a different player's Address derivation passes that
	// player's own Compressed setting directly to Address instead.
	Compressed bool
}

// NewBTCAdapter builds an adapter for the given network parameters. Each
// callback is injected so tests can run without a live node, the same seam
// the round core's tests use for the crypto and net adapters.
func NewBTCAdapter(params *chaincfg.Params, lookup func(string) (int64, error), selectUTXO func(string, int64) ([]byte, uint32, int64, error), submit func(*btcdwire.MsgTx) (string, error), compressed bool) *BTCAdapter {
	return &BTCAdapter{Params: params, Lookup: lookup, SelectUTXO: selectUTXO, Submit: submit, Compressed: compressed}
}

func (a *BTCAdapter) Address(pub *btcec.PublicKey, compressed bool) (string, error) {
	var pubBytes []byte
	if compressed {
		pubBytes = pub.SerializeCompressed()
	} else {
		pubBytes = pub.SerializeUncompressed()
	}
	hash := btcutil.Hash160(pubBytes)
	addr, err := btcutil.NewAddressPubKeyHash(hash, a.Params)
	if err != nil {
		return "", errors.Wrap(err, "coin: could not derive address")
	}
	return addr.EncodeAddress(), nil
}

func (a *BTCAdapter) SufficientFunds(addr string, amount int64) (bool, error) {
	balance, err := a.Lookup(addr)
	if err != nil {
		return false, errors.Wrap(err, "coin: balance lookup failed")
	}
	return balance >= amount, nil
}

func (a *BTCAdapter) MakeUnsignedTransaction(inputs []Funding, outputs []string, changes []Funding, amount, fee int64) (*btcdwire.MsgTx, error) {
	tx := btcdwire.NewMsgTx(btcdwire.TxVersion)

	for _, in := range inputs {
		txid, vout, _, err := a.selectUTXO(in.Address, amount+fee)
		if err != nil {
			return nil, errors.Wrapf(err, "coin: could not select funding utxo for %s", in.VK)
		}
		hash, err := chainhash.NewHash(txid)
		if err != nil {
			return nil, errors.Wrapf(err, "coin: bad outpoint hash for %s", in.VK)
		}
		tx.AddTxIn(btcdwire.NewTxIn(btcdwire.NewOutPoint(hash, vout), nil, nil))
	}

	for _, out := range outputs {
		script, err := payToAddrScript(out, a.Params)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(btcdwire.NewTxOut(amount, script))
	}

	for _, ch := range changes {
		balance, err := a.Lookup(ch.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "coin: could not look up change balance for %s", ch.VK)
		}
		leftover := balance - amount - fee
		if leftover <= 0 {
			continue
		}
		script, err := payToAddrScript(ch.Address, a.Params)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(btcdwire.NewTxOut(leftover, script))
	}

	return tx, nil
}

// selectUTXO picks a spendable output at addr holding at least minAmount.
// A production adapter backs this with an indexer query; SelectUTXO is
// injected the same way Lookup and Submit are, so tests can drive the
// round core without a live node.
func (a *BTCAdapter) selectUTXO(addr string, minAmount int64) (txid []byte, vout uint32, value int64, err error) {
	if a.SelectUTXO == nil {
		return nil, 0, 0, errors.New("coin: no UTXO selector configured")
	}
	return a.SelectUTXO(addr, minAmount)
}

func payToAddrScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, errors.Wrapf(err, "coin: invalid address %s", address)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, errors.Wrap(err, "coin: could not build output script")
	}
	return script, nil
}

func (a *BTCAdapter) GetTransactionSignature(tx *btcdwire.MsgTx, inputIdx int, priv *btcec.PrivateKey) ([]byte, error) {
	prevScript, err := payToAddrScript(mustAddress(a, priv), a.Params)
	if err != nil {
		return nil, err
	}
	sig, err := txscript.RawTxInSignature(tx, inputIdx, prevScript, txscript.SigHashAll, priv)
	if err != nil {
		return nil, errors.Wrap(err, "coin: could not sign input")
	}
	return sig, nil
}

func mustAddress(a *BTCAdapter, priv *btcec.PrivateKey) string {
	addr, _ := a.Address(priv.PubKey(), a.Compressed)
	return addr
}

func (a *BTCAdapter) VerifyTxSignature(tx *btcdwire.MsgTx, inputIdx int, sig []byte, pub *btcec.PublicKey) bool {
	parsed, err := btcec.ParseDERSignature(trimHashType(sig), btcec.S256())
	if err != nil {
		return false
	}
	addr, err := a.Address(pub, a.Compressed)
	if err != nil {
		return false
	}
	prevScript, err := payToAddrScript(addr, a.Params)
	if err != nil {
		return false
	}
	digest, err := txscript.CalcSignatureHash(prevScript, txscript.SigHashAll, tx, inputIdx)
	if err != nil {
		return false
	}
	return parsed.Verify(digest, pub)
}

func trimHashType(sig []byte) []byte {
	if len(sig) == 0 {
		return sig
	}
	return sig[:len(sig)-1]
}

func (a *BTCAdapter) AddTransactionSignatures(tx *btcdwire.MsgTx, inputIdx int, sig []byte, pub *btcec.PublicKey) error {
	builder := txscript.NewScriptBuilder()
	builder.AddData(sig)
	builder.AddData(pub.SerializeCompressed())
	script, err := builder.Script()
	if err != nil {
		return errors.Wrap(err, "coin: could not build signature script")
	}
	tx.TxIn[inputIdx].SignatureScript = script
	return nil
}

func (a *BTCAdapter) BroadcastTransaction(tx *btcdwire.MsgTx) (string, error) {
	return a.Submit(tx)
}

// VerifySignature expects msg to already be a digest (shufflecrypto.Hash
// output); it does not hash msg itself, matching GetTransactionSignature's
// and VerifyTxSignature's use of a sighash digest rather than raw bytes.
func (a *BTCAdapter) VerifySignature(sig, msg []byte, pub *btcec.PublicKey) bool {
	parsed, err := btcec.ParseDERSignature(sig, btcec.S256())
	if err != nil {
		return false
	}
	return parsed.Verify(msg, pub)
}
