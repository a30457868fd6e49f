package netio

import (
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// Buffer accumulates raw bytes from successive Recv calls until a full,
// frame-terminated batch is available, mirroring the original socket
// reader's "read until the frame sentinel" loop over a blocking socket.
type Buffer struct {
	pending []byte
}

// Feed appends newly received bytes and, once a complete frame has arrived,
// returns the decoded envelopes for that frame. ok is false when the frame
// is still incomplete and the caller should call Feed again on the next
// Recv.
func (b *Buffer) Feed(chunk []byte) (envelopes []*wire.Envelope, ok bool, err error) {
	b.pending = append(b.pending, chunk...)
	raw, complete := wire.StripFrame(b.pending)
	if !complete {
		return nil, false, nil
	}
	b.pending = nil
	envelopes, err = wire.ParseBatch(raw)
	if err != nil {
		return nil, true, errors.Wrap(err, "netio: dropping malformed batch")
	}
	return envelopes, true, nil
}

// SendBatch encodes and frames a batch of envelopes and pushes it onto the
// outbound channel.
func (c *Channels) SendBatch(envelopes []*wire.Envelope) error {
	raw, err := wire.EncodeBatch(envelopes)
	if err != nil {
		return errors.Wrap(err, "netio: could not encode outbound batch")
	}
	if !c.Send(wire.AppendFrame(raw)) {
		return errors.New("netio: timed out sending batch")
	}
	return nil
}

// RecvBatch drains whatever is currently available on the inbound channel
// without blocking past the idle timeout, feeding it through buf. It
// returns (nil, true, nil) on an idle tick so the round FSM can treat "no
// batch yet" as a retry rather than an error, exactly as spec'd for
// in.recv() returning None.
func (c *Channels) RecvBatch(buf *Buffer) ([]*wire.Envelope, bool, error) {
	chunk, ok := c.Recv()
	if !ok {
		return nil, true, nil
	}
	envelopes, complete, err := buf.Feed(chunk)
	if err != nil {
		return nil, true, err
	}
	if !complete {
		return nil, true, nil
	}
	return envelopes, false, nil
}
