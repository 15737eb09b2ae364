package models

// Message is a ledger record. It is written once and never mutated.
type Message struct {
	ID         uint64   `json:"id"`
	Sender     Address  `json:"sender"`
	Ciphertext HexBytes `json:"ciphertext"` // XOR-obfuscated client side
	KeyHandle  Handle   `json:"key_handle"` // gateway handle of the obfuscation key
	ModelID    uint64   `json:"model_id"`
	Timestamp  int64    `json:"timestamp"` // Unix seconds
}

// ResponseState tracks the response handle issued for a message.
type ResponseState struct {
	MessageID   uint64 `json:"message_id"`
	Handle      Handle `json:"handle"`
	RequestedAt int64  `json:"requested_at"`
}
