package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novastreamlab/FHE-AI/clients/go/fheai"
)

func init() {
	rootCmd.AddCommand(askCmd, inboxCmd, unlockCmd)
	askCmd.Flags().Uint64("model", fheai.DefaultModel, "AI model id (1 GPT-5, 2 Grok 4, 3 Claude 4.5, 4 Llama Vision)")
	addContractFlag(askCmd)
	addContractFlag(inboxCmd)
	addContractFlag(unlockCmd)
}

// sessionFor opens a session on the resolved contract.
func sessionFor(cmd *cobra.Command) (*fheai.Session, error) {
	client, err := newSignedClient()
	if err != nil {
		return nil, err
	}
	contract, err := resolveContract(commandContext(cmd), cmd, client)
	if err != nil {
		return nil, err
	}
	return newSession(client, contract), nil
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Encrypt and submit a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetUint64("model")
		s, err := sessionFor(cmd)
		if err != nil {
			return err
		}

		id, rcpt, err := s.Submit(commandContext(cmd), strings.Join(args, " "), model)
		if err != nil {
			return fmt.Errorf("%s", s.Status())
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, s.Status())
		fmt.Fprintf(out, "Message #%d to %s (tx %s)\n", id, fheai.ModelLabel(model), rcpt.TxHash)
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List and decrypt your messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sessionFor(cmd)
		if err != nil {
			return err
		}
		views, err := s.Refresh(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("%s", s.Status())
		}

		out := cmd.OutOrStdout()
		if len(views) == 0 {
			fmt.Fprintln(out, "No messages yet.")
			return nil
		}
		for _, v := range views {
			fmt.Fprintf(out, "#%d  %s  %s\n", v.ID, fheai.ModelLabel(v.ModelID), fheai.FormatTimestamp(v.Timestamp))
			if v.Pending() {
				fmt.Fprintf(out, "    %s\n", fheai.PendingText)
			} else {
				fmt.Fprintf(out, "    %s\n", v.Plaintext)
			}
		}
		if status := s.Status(); status != "" {
			fmt.Fprintln(out, status)
		}
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <id>",
	Short: "Request and decrypt the AI response to a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be a non-negative integer")
		}
		s, err := sessionFor(cmd)
		if err != nil {
			return err
		}

		resp, err := s.RequestResponse(commandContext(cmd), id)
		if err != nil {
			return fmt.Errorf("%s", s.Status())
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, s.Status())
		fmt.Fprintf(out, "Response key: %s\n", resp.Key)
		fmt.Fprintf(out, "Encrypted:    %s\n", resp.Encrypted)
		fmt.Fprintf(out, "Response:     %s\n", resp.Plain)
		return nil
	},
}
