package wire

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Key carries an EC public key (and, for the Blame variant that exports a
// decryption key during shuffle-failure replay, an optional private key).
type Key struct {
	Key    []byte `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Public []byte `protobuf:"bytes,2,opt,name=public,proto3" json:"public,omitempty"`
}

func (m *Key) Reset()         { *m = Key{} }
func (m *Key) String() string { return proto.CompactTextString(m) }
func (*Key) ProtoMessage()    {}

// Address carries a change address advertised alongside an Announcement key.
type Address struct {
	Address string `protobuf:"bytes,1,opt,name=address,proto3" json:"address,omitempty"`
}

func (m *Address) Reset()         { *m = Address{} }
func (m *Address) String() string { return proto.CompactTextString(m) }
func (*Address) ProtoMessage()    {}

// Hash carries an equivocation-check commitment or a shuffle-failure transcript hash.
type Hash struct {
	Hash []byte `protobuf:"bytes,1,opt,name=hash,proto3" json:"hash,omitempty"`
}

func (m *Hash) Reset()         { *m = Hash{} }
func (m *Hash) String() string { return proto.CompactTextString(m) }
func (*Hash) ProtoMessage()    {}

// Signature carries a raw signature blob (wire signature or tx signature).
type Signature struct {
	Signature []byte `protobuf:"bytes,1,opt,name=signature,proto3" json:"signature,omitempty"`
}

func (m *Signature) Reset()         { *m = Signature{} }
func (m *Signature) String() string { return proto.CompactTextString(m) }
func (*Signature) ProtoMessage()    {}

// Invalid transports an opaque, concatenated batch of raw packet bytes used
// as blame evidence. Its internal structure is parsed only by the blame
// resolver that consumes it, never by the wire layer itself.
type Invalid struct {
	Invalid []byte `protobuf:"bytes,1,opt,name=invalid,proto3" json:"invalid,omitempty"`
}

func (m *Invalid) Reset()         { *m = Invalid{} }
func (m *Invalid) String() string { return proto.CompactTextString(m) }
func (*Invalid) ProtoMessage()    {}

// Blame describes an accusation: a reason, the accused verification key,
// and reason-specific evidence (an exported key pair during replay, or a
// raw evidence blob during equivocation/shuffle-failure blames).
type Blame struct {
	Reason  BlameReason `protobuf:"varint,1,opt,name=reason,proto3,enum=wire.BlameReason" json:"reason,omitempty"`
	Accused *Key        `protobuf:"bytes,2,opt,name=accused,proto3" json:"accused,omitempty"`
	Key     *Key        `protobuf:"bytes,3,opt,name=key,proto3" json:"key,omitempty"`
	Invalid *Invalid    `protobuf:"bytes,4,opt,name=invalid,proto3" json:"invalid,omitempty"`
}

func (m *Blame) Reset()         { *m = Blame{} }
func (m *Blame) String() string { return proto.CompactTextString(m) }
func (*Blame) ProtoMessage()    {}

// Message is the envelope's tagged-union payload. Exactly one field is
// populated per variant named in the wire contract: key+address (phase 1
// EncryptionKey), str (ciphertext/address), hash, signature, or blame.
type Message struct {
	Key       *Key       `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Address   *Address   `protobuf:"bytes,2,opt,name=address,proto3" json:"address,omitempty"`
	Str       []byte     `protobuf:"bytes,3,opt,name=str,proto3" json:"str,omitempty"`
	Hash      *Hash      `protobuf:"bytes,4,opt,name=hash,proto3" json:"hash,omitempty"`
	Signature *Signature `protobuf:"bytes,5,opt,name=signature,proto3" json:"signature,omitempty"`
	Blame     *Blame     `protobuf:"bytes,6,opt,name=blame,proto3" json:"blame,omitempty"`
}

func (m *Message) Reset()         { *m = Message{} }
func (m *Message) String() string { return proto.CompactTextString(m) }
func (*Message) ProtoMessage()    {}

// Packet is the inner, signed part of an Envelope.
type Packet struct {
	Session []byte   `protobuf:"bytes,1,opt,name=session,proto3" json:"session,omitempty"`
	Phase   Phase    `protobuf:"varint,2,opt,name=phase,proto3,enum=wire.Phase" json:"phase,omitempty"`
	Number  uint32   `protobuf:"varint,3,opt,name=number,proto3" json:"number,omitempty"`
	FromKey *Key     `protobuf:"bytes,4,opt,name=from_key,json=fromKey,proto3" json:"from_key,omitempty"`
	ToKey   *Key     `protobuf:"bytes,5,opt,name=to_key,json=toKey,proto3" json:"to_key,omitempty"`
	Message *Message `protobuf:"bytes,6,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Packet) Reset()         { *m = Packet{} }
func (m *Packet) String() string { return proto.CompactTextString(m) }
func (*Packet) ProtoMessage()    {}

// Envelope is a signed Packet: the signature covers the serialized Packet
// bytes and is produced/verified by the crypto adapter, never by this
// package.
type Envelope struct {
	Signature []byte  `protobuf:"bytes,1,opt,name=signature,proto3" json:"signature,omitempty"`
	Packet    *Packet `protobuf:"bytes,2,opt,name=packet,proto3" json:"packet,omitempty"`
}

func (m *Envelope) Reset()         { *m = Envelope{} }
func (m *Envelope) String() string { return proto.CompactTextString(m) }
func (*Envelope) ProtoMessage()    {}

// Batch is an ordered list of envelopes, the unit exchanged over the wire.
type Batch struct {
	Envelopes []*Envelope `protobuf:"bytes,1,rep,name=envelopes,proto3" json:"envelopes,omitempty"`
}

func (m *Batch) Reset()         { *m = Batch{} }
func (m *Batch) String() string { return proto.CompactTextString(m) }
func (*Batch) ProtoMessage()    {}

// FromKeyBytes is a convenience accessor mirroring the original's
// `get_from_key` helper.
func (p *Packet) FromKeyBytes() []byte {
	if p == nil || p.FromKey == nil {
		return nil
	}
	return p.FromKey.Key
}

func (e *Envelope) Describe() string {
	if e == nil || e.Packet == nil {
		return "<nil envelope>"
	}
	return fmt.Sprintf("phase=%s from=%x", e.Packet.Phase, e.Packet.FromKeyBytes())
}
