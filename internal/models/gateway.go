package models

// EncryptedInput is what the gateway returns for an encrypted input.
type EncryptedInput struct {
	Handles    []Handle `json:"handles"`
	InputProof HexBytes `json:"input_proof"`
}

// HandleContractPair names a handle and the contract it belongs to.
type HandleContractPair struct {
	Handle          Handle  `json:"handle"`
	ContractAddress Address `json:"contract_address"`
}

// DecryptAuthorization is the EIP-712 style statement a user signs to let the
// gateway re-encrypt handle plaintexts to an ephemeral public key.
type DecryptAuthorization struct {
	PublicKey         string    `json:"public_key"` // base64 Ed25519, ephemeral
	ContractAddresses []Address `json:"contract_addresses"`
	StartTimestamp    int64     `json:"start_timestamp"` // Unix seconds
	DurationDays      int64     `json:"duration_days"`
}

// UserDecryptRequest is the batch decrypt call.
type UserDecryptRequest struct {
	Pairs         []HandleContractPair `json:"pairs"`
	Authorization DecryptAuthorization `json:"authorization"`
	Signature     string               `json:"signature"` // base64, by UserKey
	UserAddress   Address              `json:"user_address"`
	UserKey       string               `json:"user_key"` // base64 Ed25519 signing key of UserAddress
}

// UserDecryptResponse maps handle hex to a sealed plaintext (base64).
type UserDecryptResponse struct {
	Results map[string]string `json:"results"`
}
