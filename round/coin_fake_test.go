package round

import (
	"github.com/btcsuite/btcd/btcec"
	btcwire "github.com/btcsuite/btcd/wire"

	"github.com/go-coinshuffle/core/coin"
)

// fakeCoin is a minimal coin.Adapter test double: funds and signatures are
// driven entirely by the maps/funcs a test installs, with no real chain
// I/O or transaction-format logic.
type fakeCoin struct {
	funded        map[string]bool
	fundsErr      error
	verifyResult  bool
	broadcastHash string
}

func (f *fakeCoin) Address(pub *btcec.PublicKey, compressed bool) (string, error) {
	if compressed {
		return "addr:" + string(pub.SerializeCompressed()), nil
	}
	return "addr:" + string(pub.SerializeUncompressed()), nil
}

func (f *fakeCoin) SufficientFunds(addr string, amount int64) (bool, error) {
	if f.fundsErr != nil {
		return false, f.fundsErr
	}
	return f.funded[addr], nil
}

func (f *fakeCoin) MakeUnsignedTransaction(inputs []coin.Funding, outputs []string, changes []coin.Funding, amount, fee int64) (*btcwire.MsgTx, error) {
	return btcwire.NewMsgTx(btcwire.TxVersion), nil
}

func (f *fakeCoin) GetTransactionSignature(tx *btcwire.MsgTx, inputIdx int, priv *btcec.PrivateKey) ([]byte, error) {
	return []byte("sig"), nil
}

func (f *fakeCoin) VerifyTxSignature(tx *btcwire.MsgTx, inputIdx int, sig []byte, pub *btcec.PublicKey) bool {
	return f.verifyResult
}

func (f *fakeCoin) AddTransactionSignatures(tx *btcwire.MsgTx, inputIdx int, sig []byte, pub *btcec.PublicKey) error {
	return nil
}

func (f *fakeCoin) BroadcastTransaction(tx *btcwire.MsgTx) (string, error) {
	return f.broadcastHash, nil
}

func (f *fakeCoin) VerifySignature(sig, msg []byte, pub *btcec.PublicKey) bool {
	return f.verifyResult
}

var _ coin.Adapter = (*fakeCoin)(nil)
