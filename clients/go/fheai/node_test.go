package fheai

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/api"
	"github.com/novastreamlab/FHE-AI/internal/gateway"
	"github.com/novastreamlab/FHE-AI/internal/ledger"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

// testNode is a ledger node served over httptest with a deployed contract.
type testNode struct {
	URL      string
	Owner    *Account
	Contract models.Address
}

func startNode(t *testing.T) *testNode {
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
	l := ledger.New(st, gw, ledger.DeployPolicy{}, zerolog.Nop())

	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), api.Deps{Ledger: l, Gateway: gw, DB: st}))
	t.Cleanup(srv.Close)

	owner, err := GenerateAccount()
	require.NoError(t, err)
	resp, err := NewClient(srv.URL, owner).Deploy(ctx, nil, nil)
	require.NoError(t, err)

	return &testNode{URL: srv.URL, Owner: owner, Contract: resp.Contract.Address}
}

// user returns a client and session for a fresh account.
func (n *testNode) user(t *testing.T) (*Client, *Session) {
	t.Helper()
	account, err := GenerateAccount()
	require.NoError(t, err)
	client := NewClient(n.URL, account)
	return client, NewSession(client, NewGatewaySDK(client))
}
