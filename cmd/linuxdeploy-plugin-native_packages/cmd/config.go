package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/appdir-native-packages/internal/config"
)

// flagOutput names the file the config command writes to.
const flagOutput = "output"

// errInvalidMeta is returned for --meta values without a key.
var errInvalidMeta = errors.New("metadata override must be key=value")

// newConfigCommand prints the effective configuration as YAML or saves it to a file.
func newConfigCommand(v *viper.Viper, opts *options) *cobra.Command {
	var output string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: "Print the configuration assembled from the config file, flags and LDNP_ environment variables. " +
			"The output can be saved with --output and passed back with --config.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(v, opts)
			if err != nil {
				return err
			}

			if output != "" {
				return config.Save(output, cfg)
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))

			return err
		},
	}

	configCmd.Flags().StringVarP(&output, flagOutput, "o", "", "write the configuration to this file instead of stdout")

	return configCmd
}
