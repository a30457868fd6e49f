package round

import (
	"github.com/go-coinshuffle/core/wire"
)

// Inbox stores, per phase, the last raw packet bytes seen from each sender.
// It tolerates arrival-before-phase: a packet for a phase the FSM hasn't
// entered yet is still recorded, and the handler for the current phase
// reads only its own slot. This generalizes tss-lib's per-round message
// store into the phase-keyed shape §4.2 calls for.
type Inbox struct {
	slots map[wire.Phase]map[string][]byte
}

func NewInbox() *Inbox {
	return &Inbox{slots: make(map[wire.Phase]map[string][]byte)}
}

// Store records raw bytes for (phase, sender), overwriting any prior entry
// for that slot.
func (ib *Inbox) Store(phase wire.Phase, sender []byte, raw []byte) {
	if ib.slots[phase] == nil {
		ib.slots[phase] = make(map[string][]byte)
	}
	ib.slots[phase][string(sender)] = raw
}

// Get returns the raw bytes stored for (phase, sender).
func (ib *Inbox) Get(phase wire.Phase, sender []byte) ([]byte, bool) {
	m := ib.slots[phase]
	if m == nil {
		return nil, false
	}
	raw, ok := m[string(sender)]
	return raw, ok
}

// Senders lists the senders with an entry in phase, in no particular order.
func (ib *Inbox) Senders(phase wire.Phase) [][]byte {
	m := ib.slots[phase]
	out := make([][]byte, 0, len(m))
	for k := range m {
		out = append(out, []byte(k))
	}
	return out
}

// Complete reports whether every seated player in players has a slot for
// phase.
func (ib *Inbox) Complete(phase wire.Phase, players *PlayerSet) bool {
	m := ib.slots[phase]
	if len(m) < players.Len() {
		return false
	}
	for _, p := range players.All() {
		if _, ok := m[p.KeyString()]; !ok {
			return false
		}
	}
	return true
}

// All returns every raw packet stored for phase, keyed by sender.
func (ib *Inbox) All(phase wire.Phase) map[string][]byte {
	out := make(map[string][]byte, len(ib.slots[phase]))
	for k, v := range ib.slots[phase] {
		out[k] = v
	}
	return out
}

// Reset clears one phase's slot entirely.
func (ib *Inbox) Reset(phase wire.Phase) {
	delete(ib.slots, phase)
}

// ResetAllExcept clears every phase except those named, used by the
// EquivocationFailure blame handler which purges all inboxes but phase 1.
func (ib *Inbox) ResetAllExcept(keep ...wire.Phase) {
	keepSet := make(map[wire.Phase]bool, len(keep))
	for _, p := range keep {
		keepSet[p] = true
	}
	for phase := range ib.slots {
		if !keepSet[phase] {
			delete(ib.slots, phase)
		}
	}
}

// EvictSenders removes any entry keyed by one of vks from phase, used when
// the player set shrinks and the removed VKs' stale packets must not
// linger (§4.2: clearing on player-set reduction MUST also evict entries
// keyed by removed VKs).
func (ib *Inbox) EvictSenders(phase wire.Phase, vks ...[]byte) {
	m := ib.slots[phase]
	if m == nil {
		return
	}
	for _, vk := range vks {
		delete(m, string(vk))
	}
}

// EvictSendersAll applies EvictSenders across every tracked phase.
func (ib *Inbox) EvictSendersAll(vks ...[]byte) {
	for phase := range ib.slots {
		ib.EvictSenders(phase, vks...)
	}
}
