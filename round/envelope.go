package round

import (
	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"

	"github.com/go-coinshuffle/core/wire"
)

// sign builds and signs a Packet for the given wire phase and message,
// addressed to an optional recipient (nil broadcasts to every peer that
// reads the batch).
func (s *State) sign(phase wire.Phase, number uint32, to []byte, msg *wire.Message) (*wire.Envelope, error) {
	packet := &wire.Packet{
		Session: s.Params.Session,
		Phase:   phase,
		Number:  number,
		FromKey: &wire.Key{Key: s.Identity.ExportPublicKey()},
		Message: msg,
	}
	if to != nil {
		packet.ToKey = &wire.Key{Key: to}
	}
	raw, err := proto.Marshal(packet)
	if err != nil {
		return nil, errors.Wrap(err, "round: could not marshal outbound packet")
	}
	return &wire.Envelope{
		Signature: s.Identity.Sign(raw),
		Packet:    packet,
	}, nil
}

// sendMessages signs one envelope per entry in msgs, all addressed to the
// same optional recipient, and transmits them as a single batch. Every
// multi-entry send in the protocol (the Shuffling phase's onion-string
// list, a blame broadcast naming several offenders) goes through here so
// the group lands in one inbox slot instead of being overwritten
// envelope-by-envelope.
func (s *State) sendMessages(phase wire.Phase, to []byte, msgs []*wire.Message) error {
	envs := make([]*wire.Envelope, 0, len(msgs))
	for _, msg := range msgs {
		env, err := s.sign(phase, uint32(s.Phase), to, msg)
		if err != nil {
			return err
		}
		envs = append(envs, env)
	}
	return s.Params.Channels.SendBatch(envs)
}

// sendBatch signs msg once and transmits it as a single-envelope broadcast.
func (s *State) sendBatch(phase wire.Phase, msg *wire.Message) error {
	return s.sendMessages(phase, nil, []*wire.Message{msg})
}

// sendTo signs msg and transmits it addressed to a single recipient, used
// by the Liar "ban" broadcast's single-destination variant.
func (s *State) sendTo(phase wire.Phase, to []byte, msg *wire.Message) error {
	return s.sendMessages(phase, to, []*wire.Message{msg})
}

// sendStrings transmits one envelope per entry in values, all addressed to
// a single recipient — the shape the Shuffling phase's onion-string list
// takes on the wire (§9: a batch is a repeated list of full signed
// entries, not one message with a list field).
func (s *State) sendStrings(phase wire.Phase, to []byte, values []string) error {
	msgs := make([]*wire.Message, 0, len(values))
	for _, v := range values {
		msgs = append(msgs, &wire.Message{Str: []byte(v)})
	}
	return s.sendMessages(phase, to, msgs)
}

// ingest runs the mandatory signature gate over an inbound batch and
// groups every accepted envelope by (declared phase, sender), storing each
// group as a re-marshaled wire.Batch into the inbox slot for that phase
// and sender (not necessarily the FSM's current phase, per the
// future-phase inbox rule). Grouping as a Batch rather than a single
// Packet lets a hop that carries several entries — the Shuffling phase's
// list of onion strings — round-trip intact through one inbox slot.
func (s *State) ingest(batch []*wire.Envelope) *Error {
	known := make(map[string]bool, s.Players.Len())
	for _, p := range s.Players.All() {
		known[p.KeyString()] = true
	}
	accepted, badSender, err := wire.SignatureGate(batch, known, s.Params.Crypto.Verify)
	if err != nil {
		if badSender != nil {
			return s.blameInvalidSignature(badSender)
		}
		return s.wrapSignatureError(err)
	}

	type slot struct {
		phase  wire.Phase
		sender string
	}
	grouped := make(map[slot][]*wire.Envelope)
	for _, env := range accepted {
		k := slot{phase: env.Packet.Phase, sender: string(env.Packet.FromKeyBytes())}
		grouped[k] = append(grouped[k], env)
	}
	for k, envs := range grouped {
		raw, err := proto.Marshal(&wire.Batch{Envelopes: envs})
		if err != nil {
			s.Params.logf("ingest: could not re-marshal batch from %x: %v", k.sender, err)
			continue
		}
		s.Inbox.Store(k.phase, []byte(k.sender), raw)
	}
	return nil
}

// inboxBatch decodes the Batch stored for (phase, sender).
func (s *State) inboxBatch(phase wire.Phase, sender []byte) (*wire.Batch, bool) {
	raw, ok := s.Inbox.Get(phase, sender)
	if !ok {
		return nil, false
	}
	b := new(wire.Batch)
	if err := proto.Unmarshal(raw, b); err != nil {
		return nil, false
	}
	return b, true
}

// inboxMessage returns the single message a single-value phase (every
// phase but Shuffling) expects from sender, i.e. the first envelope's
// payload.
func (s *State) inboxMessage(phase wire.Phase, sender []byte) (*wire.Message, bool) {
	b, ok := s.inboxBatch(phase, sender)
	if !ok || len(b.Envelopes) == 0 {
		return nil, false
	}
	return b.Envelopes[0].Packet.Message, true
}

// inboxMessages returns every message sender sent in phase, in arrival
// order — used to read a batch of several Blame entries from one sender
// (one offender named per entry).
func (s *State) inboxMessages(phase wire.Phase, sender []byte) ([]*wire.Message, bool) {
	b, ok := s.inboxBatch(phase, sender)
	if !ok {
		return nil, false
	}
	out := make([]*wire.Message, 0, len(b.Envelopes))
	for _, env := range b.Envelopes {
		if env.Packet == nil || env.Packet.Message == nil {
			continue
		}
		out = append(out, env.Packet.Message)
	}
	return out, true
}

// inboxStrings returns every Str payload sender sent in phase, in the
// order they arrived within the batch — the shape the Shuffling phase's
// onion list needs.
func (s *State) inboxStrings(phase wire.Phase, sender []byte) ([]string, bool) {
	b, ok := s.inboxBatch(phase, sender)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(b.Envelopes))
	for _, env := range b.Envelopes {
		if env.Packet == nil || env.Packet.Message == nil {
			continue
		}
		out = append(out, string(env.Packet.Message.Str))
	}
	return out, true
}

func (s *State) wrapSignatureError(err error) *Error {
	return WrapError(err, s.Phase, nil)
}
