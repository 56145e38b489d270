package handshake

import (
	"encoding/binary"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/schedule"
)

// Transcript is the append-only canonical encoding of every handshake
// message body exchanged so far, in the order they were sent or
// received. Both peers must compute byte-identical transcripts; it is
// both the salt for the mode binding and the body signed by every
// handshake signature.
type Transcript struct {
	bytes []byte
}

func (t *Transcript) Bytes() []byte {
	out := make([]byte, len(t.bytes))
	copy(out, t.bytes)
	return out
}

func (t *Transcript) append(encoded []byte) {
	t.bytes = append(t.bytes, encoded...)
}

func putU64BE(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func putVarBytes(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

// SignatureBody builds the body every handshake signature covers:
// protocol_id ‖ mode_binding ‖ message_type_tag(1) ‖ transcript-so-far,
// where transcript-so-far does NOT include the message currently being
// signed.
func (t *Transcript) SignatureBody(modeBinding [32]byte, messageTypeTag byte) []byte {
	body := make([]byte, 0, 32+32+1+len(t.bytes))
	body = append(body, schedule.ProtocolID[:]...)
	body = append(body, modeBinding[:]...)
	body = append(body, messageTypeTag)
	body = append(body, t.bytes...)
	return body
}

func encodeModeNegotiation(m ModeNegotiation) []byte {
	out := make([]byte, 0, 32+1+len(m.SupportedModes)+1)
	out = append(out, m.ClientRandom[:]...)
	out = append(out, byte(len(m.SupportedModes)))
	for _, mode := range m.SupportedModes {
		out = append(out, byte(mode))
	}
	out = append(out, byte(m.PreferredMode))
	return out
}

func encodeModeSelection(m ModeSelection) []byte {
	out := make([]byte, 0, 33)
	out = append(out, m.ServerRandom[:]...)
	out = append(out, byte(m.SelectedMode))
	return out
}

func encodeClientHello(m ClientHello) []byte {
	out := make([]byte, 0, 72)
	out = append(out, m.ClientRandom[:]...)
	out = append(out, putU64BE(uint64(m.Timestamp))...)
	out = append(out, m.ModeBinding[:]...)
	return out
}

func encodeCookieChallenge(m CookieChallenge) []byte {
	out := make([]byte, 0, 64)
	out = append(out, m.Cookie[:]...)
	out = append(out, m.ServerRandom[:]...)
	return out
}

func encodeClientHelloWithCookie(m ClientHelloWithCookie) []byte {
	out := make([]byte, 0, 104)
	out = append(out, m.ClientRandom[:]...)
	out = append(out, m.Cookie[:]...)
	out = append(out, m.ModeBinding[:]...)
	out = append(out, putU64BE(uint64(m.Timestamp))...)
	return out
}

func encodeHandshakeInit(m HandshakeInit) []byte {
	out := make([]byte, 0, 256)
	out = append(out, putVarBytes(m.InitiatorEphKyberPK)...)
	out = append(out, m.InitiatorEphX25519PK[:]...)
	out = append(out, m.ModeBinding[:]...)
	out = append(out, putVarBytes(m.Signature)...)
	return out
}

func encodeHandshakeResponse(m HandshakeResponse) []byte {
	out := make([]byte, 0, 256)
	out = append(out, putVarBytes(m.ResponderEphKyberPK)...)
	out = append(out, m.ResponderEphX25519PK[:]...)
	out = append(out, putVarBytes(m.KyberCiphertext)...)
	out = append(out, m.ModeBinding[:]...)
	out = append(out, putVarBytes(m.Signature)...)
	return out
}

func encodeHandshakeComplete(m HandshakeComplete) []byte {
	out := make([]byte, 0, 256)
	out = append(out, putVarBytes(m.InitiatorKyberCiphertext)...)
	out = append(out, m.ConfirmationTag[:]...)
	out = append(out, putVarBytes(m.Signature)...)
	return out
}
