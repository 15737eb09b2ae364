package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/novastreamlab/FHE-AI/clients/go/fheai"
)

// Config is the CLI configuration. Values come from flags, FHEAI_* env vars,
// the config file and defaults, in that order.
type Config struct {
	NodeURL           string `mapstructure:"node"`
	Network           string `mapstructure:"network"`
	AccountDir        string `mapstructure:"account_dir"`
	DeploymentsDir    string `mapstructure:"deployments_dir"`
	DeploymentsBucket string `mapstructure:"deployments_bucket"` // S3 when set
	DeploymentsPrefix string `mapstructure:"deployments_prefix"`
	Verbose           bool   `mapstructure:"verbose"`
}

// LoadConfig reads path, or fheai.yaml from the account dir and the working
// directory. A missing file is not an error.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	accountDir := fheai.DefaultConfigDir()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fheai")
		v.SetConfigType("yaml")
		v.AddConfigPath(accountDir)
		v.AddConfigPath(".")
	}

	v.SetDefault("node", fheai.DefaultBaseURL)
	v.SetDefault("network", "localhost")
	v.SetDefault("account_dir", accountDir)
	v.SetDefault("deployments_dir", "./deployments")
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("FHEAI")
	v.AutomaticEnv()

	if flags != nil {
		for _, name := range []string{"node", "network", "verbose"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.AccountDir = filepath.Clean(c.AccountDir)
	return &c, nil
}
