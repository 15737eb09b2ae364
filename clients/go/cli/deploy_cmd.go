package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novastreamlab/FHE-AI/clients/go/fheai"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

func init() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(addressCmd)
	deployCmd.Flags().String("bot", "", "Bot address (defaults to the deployer)")
	deployCmd.Flags().String("response", "", "Response plain address (defaults to the deployer)")
}

// optionalAddress parses a flag that may be empty.
func optionalAddress(cmd *cobra.Command, name string) (*models.Address, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	addr, err := models.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("--%s must be a valid address", name)
	}
	return &addr, nil
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the ledger on the node and record the deployment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := optionalAddress(cmd, "bot")
		if err != nil {
			return err
		}
		response, err := optionalAddress(cmd, "response")
		if err != nil {
			return err
		}

		client, err := newSignedClient()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		resp, err := client.Deploy(ctx, bot, response)
		if err != nil {
			return err
		}

		store, err := deploymentStore(ctx)
		if err != nil {
			return err
		}
		err = store.Save(ctx, &fheai.Deployment{
			Name:       fheai.DeploymentName,
			Network:    cfg.Network,
			NodeURL:    cfg.NodeURL,
			Address:    resp.Contract.Address,
			Owner:      resp.Contract.Owner,
			TxHash:     resp.Receipt.TxHash,
			DeployedAt: resp.Contract.DeployedAt,
		})
		if err != nil {
			return fmt.Errorf("deployed but failed to record deployment: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "FHEAI contract: %s\n", resp.Contract.Address)
		fmt.Fprintf(out, "  owner:    %s\n", resp.Contract.Owner)
		fmt.Fprintf(out, "  bot:      %s\n", resp.Contract.BotAddress)
		fmt.Fprintf(out, "  response: %s\n", resp.Contract.ResponsePlainAddress)
		fmt.Fprintf(out, "Deploy tx: %s\n", resp.Receipt.TxHash)
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the FHEAI contract address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := deploymentStore(commandContext(cmd))
		if err != nil {
			return err
		}
		d, err := store.Load(commandContext(cmd), cfg.Network)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "FHEAI address is %s\n", d.Address)
		return nil
	},
}
