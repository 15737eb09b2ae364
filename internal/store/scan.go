package store

import (
	"fmt"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

func parseContract(c *models.Contract, address, owner, bot, response string) error {
	var err error
	if c.Address, err = models.ParseAddress(address); err != nil {
		return fmt.Errorf("contract address: %w", err)
	}
	if c.Owner, err = models.ParseAddress(owner); err != nil {
		return fmt.Errorf("contract owner: %w", err)
	}
	if c.BotAddress, err = models.ParseAddress(bot); err != nil {
		return fmt.Errorf("bot address: %w", err)
	}
	if c.ResponsePlainAddress, err = models.ParseAddress(response); err != nil {
		return fmt.Errorf("response address: %w", err)
	}
	return nil
}

func buildMessage(id int64, sender string, body []byte, handle string, modelID, createdAt int64) (*models.Message, error) {
	from, err := models.ParseAddress(sender)
	if err != nil {
		return nil, fmt.Errorf("message %d sender: %w", id, err)
	}
	key, err := models.ParseHandle(handle)
	if err != nil {
		return nil, fmt.Errorf("message %d key handle: %w", id, err)
	}
	if body == nil {
		body = []byte{}
	}
	return &models.Message{
		ID:         uint64(id),
		Sender:     from,
		Ciphertext: models.HexBytes(body),
		KeyHandle:  key,
		ModelID:    uint64(modelID),
		Timestamp:  createdAt,
	}, nil
}
