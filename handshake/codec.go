package handshake

import (
	"encoding/binary"
	"fmt"
)

// WireEncode frames a canonically-encoded message body with its
// 1-byte message-type tag, the framing unit spec §6.2 puts one of per
// transport datagram.
func WireEncode(tag byte, body []byte) []byte {
	out := make([]byte, 1+len(body))
	out[0] = tag
	copy(out[1:], body)
	return out
}

// WireDecode splits a datagram into its tag and body.
func WireDecode(data []byte) (tag byte, body []byte, err error) {
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("handshake: empty datagram")
	}
	return data[0], data[1:], nil
}

func readVarBytes(b []byte) (value, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("handshake: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b)
	if uint32(len(b)-4) < n {
		return nil, nil, fmt.Errorf("handshake: truncated variable field")
	}
	return b[4 : 4+n], b[4+n:], nil
}

func decodeModeNegotiation(body []byte) (ModeNegotiation, error) {
	var m ModeNegotiation
	if len(body) < 34 {
		return m, fmt.Errorf("handshake: truncated ModeNegotiation")
	}
	copy(m.ClientRandom[:], body[0:32])
	n := int(body[32])
	if len(body) < 33+n+1 {
		return m, fmt.Errorf("handshake: truncated ModeNegotiation modes")
	}
	m.SupportedModes = make([]AuthenticationMode, n)
	for i := 0; i < n; i++ {
		m.SupportedModes[i] = AuthenticationMode(body[33+i])
	}
	m.PreferredMode = AuthenticationMode(body[33+n])
	return m, nil
}

func decodeModeSelection(body []byte) (ModeSelection, error) {
	var m ModeSelection
	if len(body) < 33 {
		return m, fmt.Errorf("handshake: truncated ModeSelection")
	}
	copy(m.ServerRandom[:], body[0:32])
	m.SelectedMode = AuthenticationMode(body[32])
	return m, nil
}

func decodeClientHello(body []byte) (ClientHello, error) {
	var m ClientHello
	if len(body) < 72 {
		return m, fmt.Errorf("handshake: truncated ClientHello")
	}
	copy(m.ClientRandom[:], body[0:32])
	m.Timestamp = int64(binary.BigEndian.Uint64(body[32:40]))
	copy(m.ModeBinding[:], body[40:72])
	return m, nil
}

func decodeCookieChallenge(body []byte) (CookieChallenge, error) {
	var m CookieChallenge
	if len(body) < 64 {
		return m, fmt.Errorf("handshake: truncated CookieChallenge")
	}
	copy(m.Cookie[:], body[0:32])
	copy(m.ServerRandom[:], body[32:64])
	return m, nil
}

func decodeClientHelloWithCookie(body []byte) (ClientHelloWithCookie, error) {
	var m ClientHelloWithCookie
	if len(body) < 104 {
		return m, fmt.Errorf("handshake: truncated ClientHelloWithCookie")
	}
	copy(m.ClientRandom[:], body[0:32])
	copy(m.Cookie[:], body[32:64])
	copy(m.ModeBinding[:], body[64:96])
	m.Timestamp = int64(binary.BigEndian.Uint64(body[96:104]))
	return m, nil
}

func decodeHandshakeInit(body []byte) (HandshakeInit, error) {
	var m HandshakeInit
	kyberPK, rest, err := readVarBytes(body)
	if err != nil {
		return m, err
	}
	m.InitiatorEphKyberPK = kyberPK
	if len(rest) < 32 {
		return m, fmt.Errorf("handshake: truncated HandshakeInit")
	}
	copy(m.InitiatorEphX25519PK[:], rest[0:32])
	rest = rest[32:]
	if len(rest) < 32 {
		return m, fmt.Errorf("handshake: truncated HandshakeInit mode binding")
	}
	copy(m.ModeBinding[:], rest[0:32])
	rest = rest[32:]
	sig, _, err := readVarBytes(rest)
	if err != nil {
		return m, err
	}
	m.Signature = sig
	return m, nil
}

func decodeHandshakeResponse(body []byte) (HandshakeResponse, error) {
	var m HandshakeResponse
	kyberPK, rest, err := readVarBytes(body)
	if err != nil {
		return m, err
	}
	m.ResponderEphKyberPK = kyberPK
	if len(rest) < 32 {
		return m, fmt.Errorf("handshake: truncated HandshakeResponse")
	}
	copy(m.ResponderEphX25519PK[:], rest[0:32])
	rest = rest[32:]
	ct, rest, err := readVarBytes(rest)
	if err != nil {
		return m, err
	}
	m.KyberCiphertext = ct
	if len(rest) < 32 {
		return m, fmt.Errorf("handshake: truncated HandshakeResponse mode binding")
	}
	copy(m.ModeBinding[:], rest[0:32])
	rest = rest[32:]
	sig, _, err := readVarBytes(rest)
	if err != nil {
		return m, err
	}
	m.Signature = sig
	return m, nil
}

func decodeHandshakeComplete(body []byte) (HandshakeComplete, error) {
	var m HandshakeComplete
	ct, rest, err := readVarBytes(body)
	if err != nil {
		return m, err
	}
	m.InitiatorKyberCiphertext = ct
	if len(rest) < 32 {
		return m, fmt.Errorf("handshake: truncated HandshakeComplete")
	}
	copy(m.ConfirmationTag[:], rest[0:32])
	rest = rest[32:]
	sig, _, err := readVarBytes(rest)
	if err != nil {
		return m, err
	}
	m.Signature = sig
	return m, nil
}
