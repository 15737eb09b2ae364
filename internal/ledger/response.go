package ledger

import (
	"context"
	"fmt"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/metrics"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

// senderMessage loads message id and checks that caller sent it.
func (l *Ledger) senderMessage(ctx context.Context, caller models.Address, id uint64) (*models.Contract, *models.Message, error) {
	c, err := l.Contract(ctx)
	if err != nil {
		return nil, nil, err
	}
	msg, err := l.GetMessage(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if msg.Sender != caller {
		return nil, nil, ErrUnauthorized
	}
	return c, msg, nil
}

// RequestResponse issues the encrypted response handle for message id. Only
// the sender may call it; repeat calls return the handle issued first.
func (l *Ledger) RequestResponse(ctx context.Context, caller models.Address, id uint64) (models.Handle, *models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, msg, err := l.senderMessage(ctx, caller, id)
	if err != nil {
		return models.ZeroHandle, nil, l.reject(err)
	}

	st, err := l.store.GetResponseState(ctx, id)
	if err != nil {
		return models.ZeroHandle, nil, fmt.Errorf("load response state: %w", err)
	}
	if st != nil {
		metrics.ResponsesRequested.WithLabelValues("existing").Inc()
		return st.Handle, l.receipt(), nil
	}

	handle := crypto.ResponseHandle(c.Address, id, c.ResponsePlainAddress)
	if err := l.gateway.TrivialEncrypt(ctx, handle, c.ResponsePlainAddress); err != nil {
		return models.ZeroHandle, nil, err
	}
	for _, account := range []models.Address{c.Address, msg.Sender} {
		if err := l.gateway.Allow(ctx, handle, account); err != nil {
			return models.ZeroHandle, nil, fmt.Errorf("grant %s: %w", account, err)
		}
	}

	rcpt := l.receipt()
	st = &models.ResponseState{MessageID: id, Handle: handle, RequestedAt: rcpt.BlockTime}
	if err := l.store.SaveResponseState(ctx, st); err != nil {
		return models.ZeroHandle, nil, fmt.Errorf("save response state: %w", err)
	}

	metrics.ResponsesRequested.WithLabelValues("created").Inc()
	l.logger.Info().
		Uint64("message_id", id).
		Str("sender", caller.Hex()).
		Str("handle", handle.Hex()).
		Str("tx", rcpt.TxHash).
		Msg("response requested")

	return handle, rcpt, nil
}

// PreviewResponse returns what RequestResponse would return without changing state.
func (l *Ledger) PreviewResponse(ctx context.Context, caller models.Address, id uint64) (models.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, _, err := l.senderMessage(ctx, caller, id)
	if err != nil {
		return models.ZeroHandle, err
	}
	st, err := l.store.GetResponseState(ctx, id)
	if err != nil {
		return models.ZeroHandle, fmt.Errorf("load response state: %w", err)
	}
	if st != nil {
		return st.Handle, nil
	}
	return crypto.ResponseHandle(c.Address, id, c.ResponsePlainAddress), nil
}
