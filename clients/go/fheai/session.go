package fheai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

// Status messages shown to the user.
const (
	StatusEmptyPrompt    = "Please enter a question for the AI model."
	StatusNotReady       = "Encryption service is not ready yet."
	StatusConnectSubmit  = "Please connect your wallet to submit."
	StatusConnectRequest = "Please connect your wallet to request a response."
	StatusEncrypting     = "Encrypting message and preparing transaction..."
	StatusConfirming     = "Waiting for transaction confirmation..."
	StatusSubmitted      = "Message submitted successfully."
	StatusSubmitFailed   = "Failed to submit message"
	StatusFetchFailed    = "Failed to fetch messages"
	StatusRequesting     = "Requesting AI response..."
	StatusUnlocked       = "AI response unlocked."
	StatusRequestFailed  = "Failed to request AI response"
	PendingText          = "Decrypting question with your private key..."
)

// MessageView is a ledger record as seen by its sender.
type MessageView struct {
	models.Message
	Key       models.Address // valid when Decoded
	Decoded   bool
	Plaintext string
}

// Pending reports whether the obfuscation key is still unknown.
func (m MessageView) Pending() bool {
	return !m.Decoded
}

// ResponseView is an unlocked answer.
type ResponseView struct {
	MessageID uint64
	Handle    models.Handle
	Key       models.Address
	Encrypted models.HexBytes
	Plain     string
}

// Session drives the user flows for one account. It is safe for concurrent use.
type Session struct {
	client *Client
	sdk    Encryptor
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	contract  models.Address
	keys      map[models.Handle]models.Address
	responses map[uint64]ResponseView
	status    string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger routes session logs to logger.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithContract pins the ledger address instead of asking the node.
func WithContract(addr models.Address) SessionOption {
	return func(s *Session) { s.contract = addr }
}

// NewSession creates a session. sdk may be nil, in which case every
// encrypted operation fails with ErrServiceUnavailable.
func NewSession(client *Client, sdk Encryptor, opts ...SessionOption) *Session {
	s := &Session{
		client:    client,
		sdk:       sdk,
		logger:    zerolog.Nop(),
		now:       time.Now,
		keys:      make(map[models.Handle]models.Address),
		responses: make(map[uint64]ResponseView),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns the last user-visible status message.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// fail records err as the status, or fallback when err has no message.
func (s *Session) fail(err error, fallback string) error {
	msg := fallback
	var re *RevertError
	switch {
	case errors.As(err, &re):
		msg = re.Reason
	case err != nil && err.Error() != "":
		msg = err.Error()
	}
	s.logger.Error().Err(err).Msg(fallback)
	s.setStatus(msg)
	return err
}

// CachedKey returns the decrypted obfuscation key of handle, if known.
func (s *Session) CachedKey(h models.Handle) (models.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[h]
	return k, ok
}

// Response returns the unlocked answer of a message, if any.
func (s *Session) Response(id uint64) (ResponseView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[id]
	return r, ok
}

func (s *Session) mergeKeys(keys map[models.Handle]models.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, k := range keys {
		s.keys[h] = k
	}
}

// Contract returns the ledger address, asking the node once.
func (s *Session) Contract(ctx context.Context) (models.Address, error) {
	s.mu.Lock()
	addr := s.contract
	s.mu.Unlock()
	if !addr.IsZero() {
		return addr, nil
	}

	c, err := s.client.Contract(ctx)
	if err != nil {
		return models.ZeroAddress, err
	}
	s.mu.Lock()
	s.contract = c.Address
	s.mu.Unlock()
	return c.Address, nil
}

// Refresh loads the account's messages and decodes those whose key is known
// or can be decrypted in one batch.
func (s *Session) Refresh(ctx context.Context) ([]MessageView, error) {
	if s.client.Account == nil {
		return nil, nil
	}
	user := s.client.Address()

	rawIDs, err := s.client.GetUserMessageIDs(ctx, user)
	if err != nil {
		return nil, s.fail(err, StatusFetchFailed)
	}
	ids := uniqueSorted(rawIDs)

	msgs := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.client.GetMessage(ctx, id)
		if err != nil {
			return nil, s.fail(err, StatusFetchFailed)
		}
		msgs = append(msgs, msg)
	}

	var missing []models.Handle
	seen := make(map[models.Handle]bool)
	for _, m := range msgs {
		if m.KeyHandle.IsZero() || seen[m.KeyHandle] {
			continue
		}
		seen[m.KeyHandle] = true
		if _, ok := s.CachedKey(m.KeyHandle); !ok {
			missing = append(missing, m.KeyHandle)
		}
	}

	decode := true
	if len(missing) > 0 && s.sdk != nil {
		keys, err := s.decryptHandles(ctx, missing)
		if err != nil {
			// Decoding is skipped for this cycle; cached keys stay as they are.
			s.fail(err, StatusFetchFailed)
			decode = false
		} else {
			s.mergeKeys(keys)
		}
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := MessageView{Message: *m}
		if key, ok := s.CachedKey(m.KeyHandle); ok && decode {
			v.Key = key
			v.Decoded = true
			v.Plaintext = Decode(m.Ciphertext, key)
		}
		views = append(views, v)
	}
	return views, nil
}

// Submit obfuscates prompt with a fresh random key, has the gateway encrypt
// the key and records the message.
func (s *Session) Submit(ctx context.Context, prompt string, modelID uint64) (uint64, *models.Receipt, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		s.setStatus(StatusEmptyPrompt)
		return 0, nil, fmt.Errorf("%w: empty prompt", ErrInvalidArgument)
	}
	if s.sdk == nil {
		s.setStatus(StatusNotReady)
		return 0, nil, ErrServiceUnavailable
	}
	if s.client.Account == nil {
		s.setStatus(StatusConnectSubmit)
		return 0, nil, fmt.Errorf("%w: wallet signer unavailable", ErrServiceUnavailable)
	}

	s.setStatus(StatusEncrypting)
	contract, err := s.Contract(ctx)
	if err != nil {
		return 0, nil, s.fail(err, StatusSubmitFailed)
	}

	key, err := crypto.RandomAddress()
	if err != nil {
		return 0, nil, s.fail(err, StatusSubmitFailed)
	}
	ciphertext := Encode(prompt, key)

	input, err := s.sdk.EncryptAddress(ctx, contract, s.client.Address(), key)
	if err != nil {
		return 0, nil, s.fail(err, StatusSubmitFailed)
	}

	s.setStatus(StatusConfirming)
	resp, err := s.client.SubmitMessage(ctx, ciphertext, input, modelID)
	if err != nil {
		return 0, nil, s.fail(err, StatusSubmitFailed)
	}

	s.mergeKeys(map[models.Handle]models.Address{input.Handles[0]: key})
	s.setStatus(StatusSubmitted)
	s.logger.Info().
		Uint64("message_id", resp.ID).
		Str("handle", input.Handles[0].Hex()).
		Str("tx", resp.Receipt.TxHash).
		Msg("message submitted")
	return resp.ID, &resp.Receipt, nil
}

// RequestResponse asks for the response handle of message id, decrypts its
// key and unlocks the simulated answer.
func (s *Session) RequestResponse(ctx context.Context, id uint64) (*ResponseView, error) {
	if s.sdk == nil {
		s.setStatus(StatusNotReady)
		return nil, ErrServiceUnavailable
	}
	if s.client.Account == nil {
		s.setStatus(StatusConnectRequest)
		return nil, fmt.Errorf("%w: wallet signer unavailable", ErrServiceUnavailable)
	}

	s.setStatus(StatusRequesting)
	preview, err := s.client.PreviewResponse(ctx, id)
	if err != nil {
		return nil, s.fail(err, StatusRequestFailed)
	}
	resp, err := s.client.RequestResponse(ctx, id)
	if err != nil {
		return nil, s.fail(err, StatusRequestFailed)
	}
	if resp.Handle != preview {
		s.logger.Warn().
			Uint64("message_id", id).
			Str("preview", preview.Hex()).
			Str("handle", resp.Handle.Hex()).
			Msg("response handle differs from preview")
	}

	keys, err := s.decryptHandles(ctx, []models.Handle{resp.Handle})
	if err != nil {
		return nil, s.fail(err, StatusRequestFailed)
	}
	key, ok := keys[resp.Handle]
	if !ok {
		return nil, s.fail(ErrDecryptionFailed, StatusRequestFailed)
	}
	s.mergeKeys(keys)

	encrypted := Encode(ResponseText, key)
	view := ResponseView{
		MessageID: id,
		Handle:    resp.Handle,
		Key:       key,
		Encrypted: encrypted,
		Plain:     Decode(encrypted, key),
	}

	s.mu.Lock()
	s.responses[id] = view
	s.status = StatusUnlocked
	s.mu.Unlock()

	return &view, nil
}

// decryptHandles runs one batch user decrypt under a fresh ephemeral key.
func (s *Session) decryptHandles(ctx context.Context, handles []models.Handle) (map[models.Handle]models.Address, error) {
	if s.sdk == nil {
		return nil, ErrServiceUnavailable
	}
	if s.client.Account == nil {
		return nil, fmt.Errorf("%w: wallet signer unavailable", ErrServiceUnavailable)
	}
	if len(handles) == 0 {
		return map[models.Handle]models.Address{}, nil
	}

	contract, err := s.Contract(ctx)
	if err != nil {
		return nil, err
	}

	kp, err := s.sdk.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	pairs := make([]models.HandleContractPair, 0, len(handles))
	for _, h := range handles {
		pairs = append(pairs, models.HandleContractPair{Handle: h, ContractAddress: contract})
	}

	start := s.now().Unix()
	contracts := []models.Address{contract}
	auth := s.sdk.NewDecryptAuthorization(kp.PublicKey, contracts, start, DecryptWindowDays)
	signature := s.client.Account.SignAuthorization(auth)

	keys, err := s.sdk.UserDecrypt(ctx, pairs, kp, signature, contracts, s.client.Address(), start, DecryptWindowDays)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("requested", len(handles)).Int("decrypted", len(keys)).Msg("handles decrypted")
	return keys, nil
}

func uniqueSorted(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsRevert reports whether err is a rejection returned by the node.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}
