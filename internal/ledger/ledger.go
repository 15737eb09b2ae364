// Package ledger implements the message ledger contract: an append-only log of
// obfuscated prompts, the sender-only response gate and owner configuration.
//
// All state-changing calls are serialized. Each either applies fully and
// returns a receipt or returns an error and leaves state untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/metrics"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

// MaxModelID is the largest model id the ledger stores (one byte on chain).
const MaxModelID = 255

// Gateway is the part of the encryption service the ledger calls into.
type Gateway interface {
	VerifyInput(ctx context.Context, contract, user models.Address, handle models.Handle, proof models.HexBytes) error
	Allow(ctx context.Context, handle models.Handle, account models.Address) error
	TrivialEncrypt(ctx context.Context, handle models.Handle, value models.Address) error
}

// DeployPolicy controls who may deploy and which addresses a deploy defaults to.
// Zero fields mean "unrestricted" and "use the deployer".
type DeployPolicy struct {
	Deployer models.Address
	Bot      models.Address
	Response models.Address
}

// Ledger is the single contract hosted by a node.
type Ledger struct {
	mu      sync.Mutex
	store   store.LedgerStore
	gateway Gateway
	policy  DeployPolicy
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a ledger over st and gw.
func New(st store.LedgerStore, gw Gateway, policy DeployPolicy, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:   st,
		gateway: gw,
		policy:  policy,
		logger:  logger.With().Str("component", "ledger").Logger(),
		now:     time.Now,
	}
}

func (l *Ledger) receipt() *models.Receipt {
	return &models.Receipt{
		TxHash:    crypto.NewTxHash(),
		Status:    1,
		BlockTime: l.now().Unix(),
	}
}

func (l *Ledger) reject(err error) error {
	if reason := Reason(err); reason != "" {
		metrics.Reverts.WithLabelValues(reason).Inc()
	}
	return err
}

// Deploy creates the node's contract. bot and response default to the
// policy's addresses, then to the deployer.
func (l *Ledger) Deploy(ctx context.Context, deployer, bot, response models.Address) (*models.Contract, *models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if deployer.IsZero() {
		return nil, nil, l.reject(revert(ErrInvalidArgument, "Invalid deployer"))
	}
	if !l.policy.Deployer.IsZero() && deployer != l.policy.Deployer {
		return nil, nil, l.reject(ErrNotOwner)
	}
	if bot.IsZero() {
		bot = l.policy.Bot
	}
	if bot.IsZero() {
		bot = deployer
	}
	if response.IsZero() {
		response = l.policy.Response
	}
	if response.IsZero() {
		response = deployer
	}

	rcpt := l.receipt()
	c := &models.Contract{
		Address:              crypto.ContractAddress(deployer, rcpt.BlockTime),
		Owner:                deployer,
		BotAddress:           bot,
		ResponsePlainAddress: response,
		DeployedAt:           rcpt.BlockTime,
	}
	if err := l.store.SaveContract(ctx, c); err != nil {
		if errors.Is(err, store.ErrContractExists) {
			return nil, nil, l.reject(ErrAlreadyDeployed)
		}
		return nil, nil, fmt.Errorf("save contract: %w", err)
	}

	l.logger.Info().
		Str("contract", c.Address.Hex()).
		Str("owner", c.Owner.Hex()).
		Str("bot", c.BotAddress.Hex()).
		Str("tx", rcpt.TxHash).
		Msg("contract deployed")

	return c, rcpt, nil
}

// Contract returns the deployed contract and its configuration.
func (l *Ledger) Contract(ctx context.Context) (*models.Contract, error) {
	c, err := l.store.GetContract(ctx)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if c == nil {
		return nil, ErrNotDeployed
	}
	return c, nil
}

// SubmitMessage appends an obfuscated prompt. keyHandle must be an input the
// gateway encrypted for this contract and caller, attested by proof.
func (l *Ledger) SubmitMessage(ctx context.Context, caller models.Address, ciphertext models.HexBytes, keyHandle models.Handle, proof models.HexBytes, modelID uint64) (uint64, *models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.Contract(ctx)
	if err != nil {
		return 0, nil, l.reject(err)
	}
	if modelID > MaxModelID {
		return 0, nil, l.reject(revert(ErrInvalidArgument, "Invalid model"))
	}
	if keyHandle.IsZero() {
		return 0, nil, l.reject(revert(ErrInvalidArgument, "Invalid key handle"))
	}
	if err := l.gateway.VerifyInput(ctx, c.Address, caller, keyHandle, proof); err != nil {
		l.logger.Warn().Err(err).Str("sender", caller.Hex()).Msg("input proof rejected")
		return 0, nil, l.reject(revert(ErrInvalidArgument, "Invalid input proof"))
	}

	// Grants are idempotent; a failed append below leaves no record.
	for _, account := range []models.Address{c.Address, caller, c.BotAddress} {
		if err := l.gateway.Allow(ctx, keyHandle, account); err != nil {
			return 0, nil, fmt.Errorf("grant %s: %w", account, err)
		}
	}

	rcpt := l.receipt()
	if ciphertext == nil {
		ciphertext = models.HexBytes{}
	}
	msg := &models.Message{
		Sender:     caller,
		Ciphertext: ciphertext,
		KeyHandle:  keyHandle,
		ModelID:    modelID,
		Timestamp:  rcpt.BlockTime,
	}
	id, err := l.store.AppendMessage(ctx, msg)
	if err != nil {
		return 0, nil, fmt.Errorf("append message: %w", err)
	}

	metrics.MessagesSubmitted.WithLabelValues(strconv.FormatUint(modelID, 10)).Inc()
	l.logger.Info().
		Uint64("message_id", id).
		Str("sender", caller.Hex()).
		Str("handle", keyHandle.Hex()).
		Uint64("model_id", modelID).
		Str("tx", rcpt.TxHash).
		Msg("message submitted")

	return id, rcpt, nil
}

// GetMessage returns the record with the given id.
func (l *Ledger) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	msg, err := l.store.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load message %d: %w", id, err)
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	return msg, nil
}

// GetUserMessageIDs returns the ids submitted by user, oldest first.
func (l *Ledger) GetUserMessageIDs(ctx context.Context, user models.Address) ([]uint64, error) {
	ids, err := l.store.ListMessageIDsBySender(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", user, err)
	}
	return ids, nil
}

// TotalMessages returns the number of records on the ledger.
func (l *Ledger) TotalMessages(ctx context.Context) (uint64, error) {
	n, err := l.store.CountMessages(ctx)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
