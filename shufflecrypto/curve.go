package shufflecrypto

import (
	"crypto/elliptic"
	"reflect"

	s256k1 "github.com/btcsuite/btcd/btcec"
	"github.com/decred/dcrd/dcrec/edwards/v2"
)

// CurveName identifies a verification-key curve a peer may advertise.
// Secp256k1 is this package's default for every key pair it generates and
// for every onion/transaction signature; Ed25519 is registered alongside
// it so a future coin adapter accepting Ed25519-style verification keys
// doesn't need its own curve bookkeeping.
type CurveName string

const (
	Secp256k1 CurveName = "secp256k1"
	Ed25519   CurveName = "ed25519"
)

var curveRegistry = map[CurveName]elliptic.Curve{
	Secp256k1: s256k1.S256(),
	Ed25519:   edwards.Edwards(),
}

// RegisterCurve adds or overrides an entry in the verification-key curve
// registry.
func RegisterCurve(name CurveName, curve elliptic.Curve) {
	curveRegistry[name] = curve
}

// CurveByName looks up a registered curve.
func CurveByName(name CurveName) (elliptic.Curve, bool) {
	c, ok := curveRegistry[name]
	return c, ok
}

// NameForCurve reports the registered name for a curve value, used to tag
// an advertised verification key with the curve it was generated on.
func NameForCurve(curve elliptic.Curve) (CurveName, bool) {
	for name, c := range curveRegistry {
		if reflect.TypeOf(c) == reflect.TypeOf(curve) {
			return name, true
		}
	}
	return "", false
}
