package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the file and environment configuration. Command line flags
// override it.
type Config struct {
	Format  string `mapstructure:"format"`
	Verbose bool   `mapstructure:"verbose"`
	DB      string `mapstructure:"db"`
}

// loadConfig merges defaults, an optional YAML config file, REQUERY_*
// environment variables and the persistent flags into opts.
//
// Without --config a requery.yaml in the working directory is used when
// present. An explicit --config file must exist.
func loadConfig(cmd *cobra.Command, opts *RootOptions) error {
	v := viper.New()
	v.SetDefault("format", "text")
	v.SetDefault("verbose", false)
	v.SetDefault("db", "")

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("requery")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REQUERY")
	v.AutomaticEnv()

	for _, name := range []string{"format", "verbose", "db"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	opts.Format = cfg.Format
	opts.Verbose = cfg.Verbose
	opts.DB = cfg.DB
	return nil
}
