package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/gateway"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

var (
	owner = models.Address{0x0A}
	alice = models.Address{0xA1}
	bob   = models.Address{0xB0}
)

type fixture struct {
	ledger   *Ledger
	gw       *gateway.Gateway
	contract *models.Contract
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	vault, err := gateway.OpenVault("")
	require.NoError(t, err)
	t.Cleanup(func() { vault.Close() })

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	gw := gateway.New(vault, key, zerolog.Nop())

	l := New(st, gw, DeployPolicy{}, zerolog.Nop())
	c, _, err := l.Deploy(ctx, owner, models.ZeroAddress, models.ZeroAddress)
	require.NoError(t, err)

	return &fixture{ledger: l, gw: gw, contract: c}
}

// submit encrypts key for caller and appends a message.
func (f *fixture) submit(t *testing.T, caller models.Address, ciphertext string, model uint64) uint64 {
	t.Helper()
	ctx := context.Background()

	in, err := f.gw.EncryptInput(ctx, f.contract.Address, caller, models.Address{0x5E})
	require.NoError(t, err)
	body, err := models.ParseHexBytes(ciphertext)
	require.NoError(t, err)

	id, rcpt, err := f.ledger.SubmitMessage(ctx, caller, body, in.Handles[0], in.InputProof, model)
	require.NoError(t, err)
	assert.Equal(t, 1, rcpt.Status)
	return id
}

func TestDeployDefaults(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, owner, f.contract.Owner)
	assert.Equal(t, owner, f.contract.BotAddress)
	assert.Equal(t, owner, f.contract.ResponsePlainAddress)
	assert.False(t, f.contract.Address.IsZero())

	_, _, err := f.ledger.Deploy(context.Background(), owner, bob, bob)
	assert.ErrorIs(t, err, ErrAlreadyDeployed)
}

func TestDeployPolicy(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer st.Close()

	l := New(st, nil, DeployPolicy{Deployer: owner, Bot: bob}, zerolog.Nop())

	_, _, err = l.Deploy(ctx, alice, models.ZeroAddress, models.ZeroAddress)
	assert.ErrorIs(t, err, ErrNotOwner)

	c, _, err := l.Deploy(ctx, owner, models.ZeroAddress, models.ZeroAddress)
	require.NoError(t, err)
	assert.Equal(t, bob, c.BotAddress)
	assert.Equal(t, owner, c.ResponsePlainAddress)
}

func TestSubmitAndRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	total, err := f.ledger.TotalMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	id := f.submit(t, alice, "0xdeadbeef", 3)
	assert.Equal(t, uint64(0), id)

	msg, err := f.ledger.GetMessage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, alice, msg.Sender)
	assert.Equal(t, "0xdeadbeef", msg.Ciphertext.String())
	assert.Equal(t, uint64(3), msg.ModelID)
	assert.NotZero(t, msg.Timestamp)

	ids, err := f.ledger.GetUserMessageIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, ids)

	total, err = f.ledger.TotalMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	for _, who := range []models.Address{f.contract.Address, alice, f.contract.BotAddress} {
		ok, err := f.gw.IsAllowed(ctx, msg.KeyHandle, who)
		require.NoError(t, err)
		assert.True(t, ok, who.Hex())
	}
	ok, err := f.gw.IsAllowed(ctx, msg.KeyHandle, bob)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserIndexesAreSeparate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.submit(t, alice, "0x01", 1)
	f.submit(t, bob, "0x02", 2)
	f.submit(t, alice, "0x03", 4)

	ids, err := f.ledger.GetUserMessageIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2}, ids)

	ids, err = f.ledger.GetUserMessageIDs(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)

	ids, err = f.ledger.GetUserMessageIDs(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSubmitRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in, err := f.gw.EncryptInput(ctx, f.contract.Address, alice, models.Address{1})
	require.NoError(t, err)
	h := in.Handles[0]

	_, _, err = f.ledger.SubmitMessage(ctx, alice, models.HexBytes{1}, h, in.InputProof, 256)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "Invalid model", Reason(err))

	_, _, err = f.ledger.SubmitMessage(ctx, alice, models.HexBytes{1}, models.ZeroHandle, in.InputProof, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Proof was issued for alice, not bob.
	_, _, err = f.ledger.SubmitMessage(ctx, bob, models.HexBytes{1}, h, in.InputProof, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "Invalid input proof", Reason(err))

	total, err := f.ledger.TotalMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = f.ledger.GetMessage(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Invalid message id", Reason(err))
}

func TestSubmitBeforeDeploy(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer st.Close()

	l := New(st, nil, DeployPolicy{}, zerolog.Nop())
	_, _, err = l.SubmitMessage(ctx, alice, nil, models.Handle{1}, nil, 1)
	assert.ErrorIs(t, err, ErrNotDeployed)
}

func TestRequestResponseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.submit(t, alice, "0xdeadbeef", 3)

	preview, err := f.ledger.PreviewResponse(ctx, alice, id)
	require.NoError(t, err)

	h1, _, err := f.ledger.RequestResponse(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, preview, h1)
	assert.False(t, h1.IsZero())

	h2, _, err := f.ledger.RequestResponse(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	preview, err = f.ledger.PreviewResponse(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, h1, preview)

	for _, who := range []models.Address{f.contract.Address, alice} {
		ok, err := f.gw.IsAllowed(ctx, h1, who)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRequestResponseOnlySender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.submit(t, alice, "0x01", 1)

	_, _, err := f.ledger.RequestResponse(ctx, bob, id)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Unauthorized", Reason(err))

	_, err = f.ledger.PreviewResponse(ctx, bob, id)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = f.ledger.RequestResponse(ctx, alice, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResponseHandleFollowsConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.submit(t, alice, "0x01", 1)
	second := f.submit(t, alice, "0x02", 1)

	h1, _, err := f.ledger.RequestResponse(ctx, alice, first)
	require.NoError(t, err)

	_, err = f.ledger.UpdateResponsePlainAddress(ctx, owner, bob)
	require.NoError(t, err)

	h2, _, err := f.ledger.RequestResponse(ctx, alice, second)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	// Already issued handles are unaffected.
	again, _, err := f.ledger.RequestResponse(ctx, alice, first)
	require.NoError(t, err)
	assert.Equal(t, h1, again)
}

func TestOwnerConfiguration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.UpdateBotAddress(ctx, alice, bob)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, "Not owner", Reason(err))

	_, err = f.ledger.UpdateBotAddress(ctx, owner, models.ZeroAddress)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	c, err := f.ledger.Contract(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, c.BotAddress)

	_, err = f.ledger.UpdateBotAddress(ctx, owner, bob)
	require.NoError(t, err)
	c, err = f.ledger.Contract(ctx)
	require.NoError(t, err)
	assert.Equal(t, bob, c.BotAddress)

	// New messages grant the new bot.
	id := f.submit(t, alice, "0x01", 1)
	msg, err := f.ledger.GetMessage(ctx, id)
	require.NoError(t, err)
	ok, err := f.gw.IsAllowed(ctx, msg.KeyHandle, bob)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.TransferOwnership(ctx, owner, models.ZeroAddress)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.ledger.TransferOwnership(ctx, owner, alice)
	require.NoError(t, err)

	_, err = f.ledger.UpdateBotAddress(ctx, owner, bob)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.ledger.UpdateBotAddress(ctx, alice, bob)
	assert.NoError(t, err)

	c, err := f.ledger.Contract(ctx)
	require.NoError(t, err)
	assert.Equal(t, alice, c.Owner)
}

func TestConcurrentSubmitsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 16
	type input struct {
		handle models.Handle
		proof  models.HexBytes
	}
	inputs := make([]input, n)
	for i := range inputs {
		in, err := f.gw.EncryptInput(ctx, f.contract.Address, alice, models.Address{byte(i)})
		require.NoError(t, err)
		inputs[i] = input{in.Handles[0], in.InputProof}
	}

	var wg sync.WaitGroup
	ids := make([]uint64, n)
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, _, err := f.ledger.SubmitMessage(ctx, alice, models.HexBytes{byte(i)}, inputs[i].handle, inputs[i].proof, 1)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := map[uint64]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	total, err := f.ledger.TotalMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), total)
}
