package models

// Request and response bodies of the node's HTTP API.

type DeployRequest struct {
	BotAddress      *Address `json:"bot_address,omitempty"`
	ResponseAddress *Address `json:"response_address,omitempty"`
}

type DeployResponse struct {
	Contract Contract `json:"contract"`
	Receipt  Receipt  `json:"receipt"`
}

type SubmitMessageRequest struct {
	Ciphertext HexBytes `json:"ciphertext"`
	KeyHandle  Handle   `json:"key_handle"`
	InputProof HexBytes `json:"input_proof"`
	ModelID    uint64   `json:"model_id"`
}

type SubmitMessageResponse struct {
	ID      uint64  `json:"id"`
	Receipt Receipt `json:"receipt"`
}

// ResponseHandleResponse carries the response handle of a message. Receipt is
// nil for a preview.
type ResponseHandleResponse struct {
	MessageID uint64   `json:"message_id"`
	Handle    Handle   `json:"handle"`
	Receipt   *Receipt `json:"receipt,omitempty"`
}

type TotalMessagesResponse struct {
	Total uint64 `json:"total"`
}

type UserMessagesResponse struct {
	Address Address  `json:"address"`
	IDs     []uint64 `json:"ids"`
}

// AddressRequest is the body of the owner configuration calls.
type AddressRequest struct {
	Address Address `json:"address"`
}

type ReceiptResponse struct {
	Receipt Receipt `json:"receipt"`
}

type GatewayKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// EncryptInputRequest asks the gateway to encrypt Value for ContractAddress.
// The user is the signer of the request.
type EncryptInputRequest struct {
	ContractAddress Address `json:"contract_address"`
	Value           Address `json:"value"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
