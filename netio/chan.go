package netio

import (
	"fmt"
	"time"

	"github.com/go-coinshuffle/core/common"
)

// Channels bundles the three typed channels the round FSM uses: inbound
// serialized batches from peers (via an out-of-scope relay), outbound
// serialized batches, and a diagnostic log sink. This mirrors the original
// protocol's inchan/outchan/logchan trio, generalized from Python's
// queue.Queue(timeout=...) to Go channels with an explicit per-operation
// timeout.
type Channels struct {
	In      <-chan []byte
	Out     chan<- []byte
	Log     chan<- string
	Timeout time.Duration
}

// NewChannels wires three Go channels together with a shared switch timeout,
// the same role `switch_timeout` plays in the original Channel class.
func NewChannels(in <-chan []byte, out chan<- []byte, log chan<- string, timeout time.Duration) *Channels {
	return &Channels{In: in, Out: out, Log: log, Timeout: timeout}
}

// Recv waits up to the configured timeout for an inbound batch. A false
// second return means an idle tick (timeout elapsed with nothing to read, or
// the channel is empty for now) and must be treated as a no-op retry, never
// as a terminal condition.
func (c *Channels) Recv() ([]byte, bool) {
	select {
	case msg, ok := <-c.In:
		if !ok {
			return nil, false
		}
		return msg, true
	case <-time.After(c.Timeout):
		return nil, false
	}
}

// Send blocks up to the configured timeout delivering an outbound batch.
func (c *Channels) Send(msg []byte) bool {
	select {
	case c.Out <- msg:
		return true
	case <-time.After(c.Timeout):
		common.Logger.Warning("netio: send timed out")
		return false
	}
}

// Logf writes a formatted line to the log channel and to the package
// Logger, matching the original's dual print+queue behavior in
// ChannelWithPrint.
func (c *Channels) Logf(format string, args ...interface{}) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	common.Logger.Info(line)
	if c.Log == nil {
		return
	}
	select {
	case c.Log <- line:
	default:
		// the log channel is best-effort; never block protocol progress on it
	}
}
