// Package fheai is the client side of the FHE-AI ledger: the HTTP client,
// the local account, the obfuscation codec and the session that drives the
// ask / inbox / unlock flows.
package fheai

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/novastreamlab/FHE-AI/internal/api/middleware"
	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

// DefaultBaseURL is the local development node.
const DefaultBaseURL = "http://localhost:8080"

// Client talks to a ledger node. Signed calls need an account.
type Client struct {
	BaseURL    string
	Account    *Account
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL. account may be nil for read-only use.
func NewClient(baseURL string, account *Account) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		Account:    account,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// signRequest creates authentication headers for a request.
func (c *Client) signRequest(body []byte) http.Header {
	hash := sha256.Sum256(body)
	hashHex := hex.EncodeToString(hash[:])

	nonceBytes := make([]byte, 12) // 24 hex chars
	rand.Read(nonceBytes)
	nonce := hex.EncodeToString(nonceBytes)

	timestamp := time.Now().UnixMilli()
	payload := crypto.SignaturePayload(hashHex, nonce, timestamp)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(middleware.HeaderKey, crypto.EncodePublicKey(c.Account.PublicKey()))
	headers.Set(middleware.HeaderNonce, nonce)
	headers.Set(middleware.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	headers.Set(middleware.HeaderSignature, crypto.Sign(c.Account.PrivateKey, payload))
	return headers
}

// doRequest performs an HTTP request and decodes a JSON reply into out.
func (c *Client) doRequest(ctx context.Context, method, path string, in, out interface{}, signed bool) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}
	if signed && c.Account == nil {
		return fmt.Errorf("%w: wallet signer unavailable", ErrServiceUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if signed {
		req.Header = c.signRequest(body)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp models.ErrorResponse
		if json.Unmarshal(respBody, &errResp) != nil || errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &RevertError{Status: resp.StatusCode, Reason: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Deploy creates the ledger on the node. Nil addresses default to the signer.
func (c *Client) Deploy(ctx context.Context, bot, response *models.Address) (*models.DeployResponse, error) {
	var resp models.DeployResponse
	req := models.DeployRequest{BotAddress: bot, ResponseAddress: response}
	if err := c.doRequest(ctx, http.MethodPost, "/deploy", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Contract returns the deployed ledger and its configuration.
func (c *Client) Contract(ctx context.Context) (*models.Contract, error) {
	var resp models.Contract
	if err := c.doRequest(ctx, http.MethodGet, "/contract", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TotalMessages returns the number of messages on the ledger.
func (c *Client) TotalMessages(ctx context.Context) (uint64, error) {
	var resp models.TotalMessagesResponse
	if err := c.doRequest(ctx, http.MethodGet, "/messages/total", nil, &resp, false); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// GetMessage fetches message id. Unknown ids fail with ErrNotFound.
func (c *Client) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	var resp models.Message
	path := "/messages/" + strconv.FormatUint(id, 10)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUserMessageIDs returns the ids of the messages sent by user, oldest first.
func (c *Client) GetUserMessageIDs(ctx context.Context, user models.Address) ([]uint64, error) {
	var resp models.UserMessagesResponse
	path := "/users/" + user.Hex() + "/messages"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// SubmitMessage records an obfuscated prompt and the gateway handle of its key.
func (c *Client) SubmitMessage(ctx context.Context, ciphertext models.HexBytes, input *models.EncryptedInput, modelID uint64) (*models.SubmitMessageResponse, error) {
	if input == nil || len(input.Handles) == 0 {
		return nil, fmt.Errorf("%w: missing encrypted key", ErrInvalidArgument)
	}
	req := models.SubmitMessageRequest{
		Ciphertext: ciphertext,
		KeyHandle:  input.Handles[0],
		InputProof: input.InputProof,
		ModelID:    modelID,
	}
	var resp models.SubmitMessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/messages", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestResponse issues (or re-reads) the response handle of a message.
func (c *Client) RequestResponse(ctx context.Context, id uint64) (*models.ResponseHandleResponse, error) {
	var resp models.ResponseHandleResponse
	path := "/messages/" + strconv.FormatUint(id, 10) + "/response"
	if err := c.doRequest(ctx, http.MethodPost, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviewResponse returns the handle RequestResponse would return, without a state change.
func (c *Client) PreviewResponse(ctx context.Context, id uint64) (models.Handle, error) {
	var resp models.ResponseHandleResponse
	path := "/messages/" + strconv.FormatUint(id, 10) + "/response"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return models.ZeroHandle, err
	}
	return resp.Handle, nil
}

// UpdateBotAddress sets the bot granted access to new prompt keys. Owner only.
func (c *Client) UpdateBotAddress(ctx context.Context, addr models.Address) (*models.Receipt, error) {
	return c.ownerCall(ctx, "/config/bot", addr)
}

// UpdateResponsePlainAddress sets the value future response handles encrypt. Owner only.
func (c *Client) UpdateResponsePlainAddress(ctx context.Context, addr models.Address) (*models.Receipt, error) {
	return c.ownerCall(ctx, "/config/response", addr)
}

// TransferOwnership hands the contract to addr. Owner only.
func (c *Client) TransferOwnership(ctx context.Context, addr models.Address) (*models.Receipt, error) {
	return c.ownerCall(ctx, "/config/owner", addr)
}

func (c *Client) ownerCall(ctx context.Context, path string, addr models.Address) (*models.Receipt, error) {
	var resp models.ReceiptResponse
	if err := c.doRequest(ctx, http.MethodPost, path, models.AddressRequest{Address: addr}, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Receipt, nil
}

// GatewayKey returns the gateway's base64 Ed25519 public key.
func (c *Client) GatewayKey(ctx context.Context) (string, error) {
	var resp models.GatewayKeyResponse
	if err := c.doRequest(ctx, http.MethodGet, "/gateway/key", nil, &resp, false); err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}

// EncryptInput has the gateway encrypt value for contract. The signer is the user.
func (c *Client) EncryptInput(ctx context.Context, contract, value models.Address) (*models.EncryptedInput, error) {
	var resp models.EncryptedInput
	req := models.EncryptInputRequest{ContractAddress: contract, Value: value}
	if err := c.doRequest(ctx, http.MethodPost, "/gateway/input", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserDecrypt posts a batch decrypt request. Its authorization is signed in the body.
func (c *Client) UserDecrypt(ctx context.Context, req *models.UserDecryptRequest) (*models.UserDecryptResponse, error) {
	var resp models.UserDecryptResponse
	if err := c.doRequest(ctx, http.MethodPost, "/gateway/decrypt", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Address returns the signer's address, or the zero address without an account.
func (c *Client) Address() models.Address {
	if c.Account == nil {
		return models.ZeroAddress
	}
	return c.Account.Address()
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Contract string `json:"contract,omitempty"`
	Checks   map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
	Timestamp string `json:"timestamp"`
}

// Health checks node health. A degraded node answers with a RevertError of status 503.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}
