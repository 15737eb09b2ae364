// Package cli implements the fheai command line client.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *Config
	logger  = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "fheai",
	Short:         "Confidential AI message ledger client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fheai/fheai.yaml)")
	rootCmd.PersistentFlags().String("node", "", "ledger node URL")
	rootCmd.PersistentFlags().String("network", "", "deployment network name")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

func initConfig() {
	var err error
	cfg, err = LoadConfig(cfgFile, rootCmd.PersistentFlags())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func GetConfig() *Config {
	return cfg
}
