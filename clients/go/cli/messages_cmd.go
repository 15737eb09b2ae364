package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

func init() {
	rootCmd.AddCommand(totalMessagesCmd)
	rootCmd.AddCommand(submitMessageCmd)
	rootCmd.AddCommand(getMessageCmd)

	addContractFlag(totalMessagesCmd)

	addContractFlag(submitMessageCmd)
	submitMessageCmd.Flags().String("ciphertext", "", "Ciphertext produced client-side")
	submitMessageCmd.Flags().String("key", "", "Plain address used for XOR encryption")
	submitMessageCmd.Flags().String("model", "", "Numeric identifier of the AI model")
	_ = submitMessageCmd.MarkFlagRequired("ciphertext")
	_ = submitMessageCmd.MarkFlagRequired("key")
	_ = submitMessageCmd.MarkFlagRequired("model")

	addContractFlag(getMessageCmd)
	getMessageCmd.Flags().String("id", "", "Message identifier")
	_ = getMessageCmd.MarkFlagRequired("id")
}

// nonNegative parses a flag holding a non-negative integer.
func nonNegative(cmd *cobra.Command, name string) (uint64, error) {
	s, _ := cmd.Flags().GetString(name)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("--%s must be a non-negative integer", name)
	}
	return uint64(n), nil
}

var totalMessagesCmd = &cobra.Command{
	Use:   "total-messages",
	Short: "Read the total message count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		contract, err := resolveContract(commandContext(cmd), cmd, client)
		if err != nil {
			return err
		}
		total, err := client.TotalMessages(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "FHEAI(%s) total messages: %d\n", contract, total)
		return nil
	},
}

var submitMessageCmd = &cobra.Command{
	Use:   "submit-message",
	Short: "Submit a pre-obfuscated message",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		modelID, err := nonNegative(cmd, "model")
		if err != nil {
			return err
		}
		keyFlag, _ := cmd.Flags().GetString("key")
		key, err := models.ParseAddress(keyFlag)
		if err != nil {
			return fmt.Errorf("--key must be a valid address")
		}
		ctFlag, _ := cmd.Flags().GetString("ciphertext")
		ciphertext, err := models.ParseHexBytes(ctFlag)
		if err != nil {
			return fmt.Errorf("--ciphertext must be hex: %w", err)
		}

		client, err := newSignedClient()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		contract, err := resolveContract(ctx, cmd, client)
		if err != nil {
			return err
		}

		input, err := client.EncryptInput(ctx, contract, key)
		if err != nil {
			return err
		}
		resp, err := client.SubmitMessage(ctx, ciphertext, input, modelID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Submit tx: %s\n", resp.Receipt.TxHash)
		fmt.Fprintf(out, "Status: %d\n", resp.Receipt.Status)
		fmt.Fprintf(out, "Message id: %d\n", resp.ID)
		return nil
	},
}

var getMessageCmd = &cobra.Command{
	Use:   "get-message",
	Short: "Read message details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := nonNegative(cmd, "id")
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		if _, err := resolveContract(commandContext(cmd), cmd, client); err != nil {
			return err
		}
		msg, err := client.GetMessage(commandContext(cmd), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Message %d data:\n", id)
		fmt.Fprintf(out, "  user: %s\n", msg.Sender)
		fmt.Fprintf(out, "  ciphertext: %s\n", msg.Ciphertext)
		fmt.Fprintf(out, "  encrypted key handle: %s\n", msg.KeyHandle)
		fmt.Fprintf(out, "  model id: %d\n", msg.ModelID)
		fmt.Fprintf(out, "  timestamp: %d\n", msg.Timestamp)
		return nil
	},
}
