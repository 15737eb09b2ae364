package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novastreamlab/FHE-AI/clients/go/fheai"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

// newClient returns a client for the configured node, signed by the local
// account when one exists.
func newClient() (*fheai.Client, error) {
	account, err := fheai.LoadAccount(cfg.AccountDir)
	if err != nil && !errors.Is(err, fheai.ErrNoAccount) {
		return nil, err
	}
	return fheai.NewClient(cfg.NodeURL, account), nil
}

// newSignedClient is newClient, failing without an account.
func newSignedClient() (*fheai.Client, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	if client.Account == nil {
		return nil, fmt.Errorf("no account in %s, run 'fheai init' first", cfg.AccountDir)
	}
	return client, nil
}

func deploymentStore(ctx context.Context) (fheai.DeploymentStore, error) {
	if cfg.DeploymentsBucket != "" {
		return fheai.NewS3DeploymentStore(ctx, cfg.DeploymentsBucket, cfg.DeploymentsPrefix)
	}
	return fheai.NewLocalDeploymentStore(cfg.DeploymentsDir), nil
}

// resolveContract picks the ledger address from --contract or the deployment
// record, falling back to the node, and checks it against the node.
func resolveContract(ctx context.Context, cmd *cobra.Command, client *fheai.Client) (models.Address, error) {
	deployed, err := client.Contract(ctx)
	if err != nil {
		return models.ZeroAddress, err
	}

	var want models.Address
	if flag, _ := cmd.Flags().GetString("contract"); flag != "" {
		if want, err = models.ParseAddress(flag); err != nil {
			return models.ZeroAddress, fmt.Errorf("--contract must be a valid address")
		}
	} else {
		store, err := deploymentStore(ctx)
		if err != nil {
			return models.ZeroAddress, err
		}
		d, err := store.Load(ctx, cfg.Network)
		switch {
		case errors.Is(err, fheai.ErrNoDeployment):
			logger.Debug().Str("network", cfg.Network).Msg("no deployment record, using node contract")
			return deployed.Address, nil
		case err != nil:
			return models.ZeroAddress, err
		}
		want = d.Address
	}

	if want != deployed.Address {
		return models.ZeroAddress, fmt.Errorf("contract %s is not deployed on %s (node serves %s)", want, cfg.NodeURL, deployed.Address)
	}
	return want, nil
}

func addContractFlag(cmd *cobra.Command) {
	cmd.Flags().String("contract", "", "Optional FHEAI contract address")
}

func newSession(client *fheai.Client, contract models.Address) *fheai.Session {
	return fheai.NewSession(client, fheai.NewGatewaySDK(client),
		fheai.WithLogger(logger),
		fheai.WithContract(contract),
	)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
