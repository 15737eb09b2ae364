package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novastreamlab/FHE-AI/clients/go/fheai"
	"github.com/novastreamlab/FHE-AI/internal/crypto"
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(whoamiCmd)
	initCmd.Flags().Bool("force", false, "Replace an existing account")
	initCmd.Flags().String("seed", "", "Import a base64 Ed25519 seed instead of generating one")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the local account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		seed, _ := cmd.Flags().GetString("seed")

		existing, err := fheai.LoadAccount(cfg.AccountDir)
		if err != nil && !errors.Is(err, fheai.ErrNoAccount) {
			return err
		}
		if existing != nil && !force {
			return fmt.Errorf("account %s already exists in %s (use --force to replace)", existing.Address(), cfg.AccountDir)
		}

		var account *fheai.Account
		if seed != "" {
			account, err = fheai.AccountFromSeed(seed)
		} else {
			account, err = fheai.GenerateAccount()
		}
		if err != nil {
			return err
		}
		if err := fheai.SaveAccount(cfg.AccountDir, account); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Account created: %s\n", account.Address())
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the local account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := fheai.LoadAccount(cfg.AccountDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Address:    %s\n", account.Address())
		fmt.Fprintf(out, "Public key: %s\n", crypto.EncodePublicKey(account.PublicKey()))
		fmt.Fprintf(out, "Node:       %s\n", cfg.NodeURL)
		return nil
	},
}
