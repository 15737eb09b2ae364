package fheai

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

func TestRevertErrorIs(t *testing.T) {
	tests := []struct {
		status int
		reason string
		want   error
	}{
		{http.StatusBadRequest, "Invalid model", ErrInvalidArgument},
		{http.StatusUnauthorized, "signature verification failed", ErrUnauthorized},
		{http.StatusForbidden, "Unauthorized", ErrUnauthorized},
		{http.StatusForbidden, "Not owner", ErrNotOwner},
		{http.StatusNotFound, "Invalid message id", ErrNotFound},
		{http.StatusNotFound, "Contract not deployed", ErrNotDeployed},
		{http.StatusConflict, "Contract already deployed", ErrAlreadyDeployed},
	}
	for _, tt := range tests {
		err := error(&RevertError{Status: tt.status, Reason: tt.reason})
		assert.ErrorIs(t, err, tt.want, tt.reason)
		assert.True(t, IsRevert(err))
	}

	notOwner := &RevertError{Status: http.StatusForbidden, Reason: "Not owner"}
	assert.NotErrorIs(t, notOwner, ErrUnauthorized)
}

func TestAccountPersistence(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadAccount(dir)
	assert.ErrorIs(t, err, ErrNoAccount)

	a, err := GenerateAccount()
	require.NoError(t, err)
	require.NoError(t, SaveAccount(dir, a))

	loaded, err := LoadAccount(dir)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), loaded.Address())
	assert.Equal(t, a.PublicKey(), loaded.PublicKey())
}

func TestClientReadsAndOwnerCalls(t *testing.T) {
	ctx := context.Background()
	node := startNode(t)

	anon := NewClient(node.URL, nil)
	c, err := anon.Contract(ctx)
	require.NoError(t, err)
	assert.Equal(t, node.Contract, c.Address)
	assert.Equal(t, node.Owner.Address(), c.Owner)

	total, err := anon.TotalMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = anon.GetMessage(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = anon.UpdateBotAddress(ctx, models.Address{0xB0})
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	stranger, err := GenerateAccount()
	require.NoError(t, err)
	_, err = NewClient(node.URL, stranger).UpdateBotAddress(ctx, models.Address{0xB0})
	assert.ErrorIs(t, err, ErrNotOwner)

	owner := NewClient(node.URL, node.Owner)
	rcpt, err := owner.UpdateBotAddress(ctx, models.Address{0xB0})
	require.NoError(t, err)
	assert.Equal(t, 1, rcpt.Status)

	_, err = owner.Deploy(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrAlreadyDeployed)

	key, err := anon.GatewayKey(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	health, err := anon.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestGatewaySDKRejectsForeignUser(t *testing.T) {
	node := startNode(t)
	client, _ := node.user(t)
	sdk := NewGatewaySDK(client)

	_, err := sdk.EncryptAddress(context.Background(), node.Contract, models.Address{0x01}, models.Address{0x02})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
