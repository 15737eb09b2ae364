package ledger

import (
	"context"
	"fmt"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// UpdateBotAddress sets the account granted access to every new message key.
func (l *Ledger) UpdateBotAddress(ctx context.Context, caller, bot models.Address) (*models.Receipt, error) {
	return l.updateConfig(ctx, caller, bot, "bot address updated", func(c *models.Contract) {
		c.BotAddress = bot
	})
}

// UpdateResponsePlainAddress sets the value behind newly issued response handles.
func (l *Ledger) UpdateResponsePlainAddress(ctx context.Context, caller, response models.Address) (*models.Receipt, error) {
	return l.updateConfig(ctx, caller, response, "response address updated", func(c *models.Contract) {
		c.ResponsePlainAddress = response
	})
}

// TransferOwnership hands the owner role to newOwner.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner models.Address) (*models.Receipt, error) {
	return l.updateConfig(ctx, caller, newOwner, "ownership transferred", func(c *models.Contract) {
		c.Owner = newOwner
	})
}

func (l *Ledger) updateConfig(ctx context.Context, caller, value models.Address, event string, apply func(*models.Contract)) (*models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.Contract(ctx)
	if err != nil {
		return nil, l.reject(err)
	}
	if caller != c.Owner {
		return nil, l.reject(ErrNotOwner)
	}
	if value.IsZero() {
		return nil, l.reject(revert(ErrInvalidArgument, "Invalid address"))
	}

	updated := *c
	apply(&updated)
	if err := l.store.UpdateContract(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update contract: %w", err)
	}

	rcpt := l.receipt()
	l.logger.Info().
		Str("caller", caller.Hex()).
		Str("value", value.Hex()).
		Str("tx", rcpt.TxHash).
		Msg(event)
	return rcpt, nil
}
