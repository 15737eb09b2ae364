package models

// Contract holds the deployed ledger's identity and owner-controlled settings.
type Contract struct {
	Address              Address `json:"address"`
	Owner                Address `json:"owner"`
	BotAddress           Address `json:"bot_address"`
	ResponsePlainAddress Address `json:"response_plain_address"`
	DeployedAt           int64   `json:"deployed_at"`
}

// Receipt describes an applied state-changing call.
type Receipt struct {
	TxHash    string `json:"tx_hash"` // ULID
	Status    int    `json:"status"`  // 1 on success
	BlockTime int64  `json:"block_time"`
}
