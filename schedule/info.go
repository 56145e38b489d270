// Package schedule implements the protocol's domain-separation and key
// schedule: a closed table of HKDF info strings (spec §4.1) and the
// protocol identity (spec §4.2). Every derivation here goes through
// HKDF-SHA3-256; concatenation order within each IKM is load-bearing
// and must never be changed independently of a new info string.
package schedule

// Info strings, reproduced exactly from the closed table. Never alter
// an existing entry; a protocol revision adds a new string instead.
const (
	InfoHybridKEM          = "B4AE-v1-hybrid-kem"
	InfoMasterSecret       = "B4AE-v1-master-secret"
	InfoEncryptionKey      = "B4AE-v1-encryption-key"
	InfoAuthenticationKey  = "B4AE-v1-authentication-key"
	InfoMetadataKey        = "B4AE-v1-metadata-key"
	InfoSessionID          = "B4AE-v2-session-id"
	InfoHandshakeConfirm   = "handshake-confirmation"
	InfoDoubleRatchetRoot  = "B4AE-v2-double-ratchet-root"
	InfoSendingChain0      = "B4AE-v2-sending-chain-0"
	InfoReceivingChain0    = "B4AE-v2-receiving-chain-0"
	InfoRootRatchet        = "B4AE-v2-root-ratchet"
	InfoSendingChain       = "B4AE-v2-sending-chain"
	InfoReceivingChain     = "B4AE-v2-receiving-chain"
	InfoMessageKey         = "B4AE-v2-message-key"
	InfoChainAdvance       = "B4AE-v2-chain-advance"
	InfoNonce              = "B4AE-v2-nonce"
	InfoModeBindingLiteral = "B4AE-v2-mode-binding"
)
