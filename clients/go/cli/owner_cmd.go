package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novastreamlab/FHE-AI/clients/go/fheai"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

func init() {
	rootCmd.AddCommand(ownerCmd)
	ownerCmd.AddCommand(setBotCmd, setResponseCmd, transferCmd)
	addContractFlag(setBotCmd)
	addContractFlag(setResponseCmd)
	addContractFlag(transferCmd)
}

var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Owner configuration calls",
}

type ownerCall func(c *fheai.Client, ctx context.Context, addr models.Address) (*models.Receipt, error)

func ownerRunE(label string, call ownerCall) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		addr, err := models.ParseAddress(args[0])
		if err != nil {
			return fmt.Errorf("address must be a valid address")
		}
		client, err := newSignedClient()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		if _, err := resolveContract(ctx, cmd, client); err != nil {
			return err
		}
		rcpt, err := call(client, ctx, addr)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s set to %s\n", label, addr)
		fmt.Fprintf(out, "Tx: %s\n", rcpt.TxHash)
		fmt.Fprintf(out, "Status: %d\n", rcpt.Status)
		return nil
	}
}

var setBotCmd = &cobra.Command{
	Use:   "set-bot <address>",
	Short: "Update the bot address",
	Args:  cobra.ExactArgs(1),
	RunE:  ownerRunE("Bot address", (*fheai.Client).UpdateBotAddress),
}

var setResponseCmd = &cobra.Command{
	Use:   "set-response <address>",
	Short: "Update the response plain address",
	Args:  cobra.ExactArgs(1),
	RunE:  ownerRunE("Response address", (*fheai.Client).UpdateResponsePlainAddress),
}

var transferCmd = &cobra.Command{
	Use:   "transfer <address>",
	Short: "Transfer ownership",
	Args:  cobra.ExactArgs(1),
	RunE:  ownerRunE("Owner", (*fheai.Client).TransferOwnership),
}
