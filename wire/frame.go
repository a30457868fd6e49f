package wire

import "bytes"

// frameSentinel is the legacy socket-framing terminator: the Unicode
// character '⏎' encoded as UTF-8. Existing deployments terminate every
// batch on the wire with these three bytes instead of length-prefixing, so
// peer compatibility requires reproducing it exactly rather than switching
// to a saner framing.
var frameSentinel = []byte("⏎")

// AppendFrame appends the sentinel terminator to an encoded batch.
func AppendFrame(batch []byte) []byte {
	framed := make([]byte, 0, len(batch)+len(frameSentinel))
	framed = append(framed, batch...)
	framed = append(framed, frameSentinel...)
	return framed
}

// StripFrame removes a trailing sentinel terminator, reporting whether one
// was present. A batch without the terminator is incomplete and the caller
// should keep buffering.
func StripFrame(buf []byte) ([]byte, bool) {
	if !bytes.HasSuffix(buf, frameSentinel) {
		return nil, false
	}
	return buf[:len(buf)-len(frameSentinel)], true
}
