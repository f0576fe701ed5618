package cmd

import (
	"fmt"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/appdir-native-packages/internal/config"
	"github.com/oshokin/appdir-native-packages/internal/logger"
	"github.com/oshokin/appdir-native-packages/internal/service/packager"
	"github.com/oshokin/appdir-native-packages/internal/version"
)

const (
	// envPrefix is prepended to every flag name to form its environment variable.
	envPrefix = "LDNP"

	// Answers of the linuxdeploy plugin API.
	pluginType       = "output"
	pluginAPIVersion = "0"
)

// Flag names shared by the root and the config commands.
const (
	flagAppDir      = "appdir"
	flagBuild       = "build"
	flagOutputDir   = "output-dir"
	flagStagingDir  = "staging-dir"
	flagKeepStaging = "keep-staging"
	flagOverwrite   = "overwrite"
	flagSign        = "sign"
	flagGPGKey      = "gpg-key"
	flagArch        = "arch"
	flagMeta        = "meta"
	flagEnvFile     = "env-file"
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLogLevel    = "log-level"
)

// options holds values that viper does not manage.
type options struct {
	// meta holds key=value metadata overrides.
	meta []string
	// pluginType prints the plugin type and exits.
	pluginType bool
	// pluginAPIVersion prints the plugin API version and exits.
	pluginAPIVersion bool
}

// Execute runs the CLI and exits with non-zero status on error.
func Execute() {
	rootCmd := newRootCommand()
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		v    = viper.New()
		opts = new(options)
	)

	rootCmd := &cobra.Command{
		Use:   "linuxdeploy-plugin-native_packages",
		Short: "Build native .deb and .rpm packages from an AppDir",
		Long: "Build native .deb and .rpm packages from an AppDir. The AppDir is installed to " +
			"/opt/<name>.AppDir and integrated into the system with desktop files, icons and launchers.\n\n" +
			"Every flag can also be set with an LDNP_ environment variable, e.g. LDNP_BUILD=deb. " +
			"Package metadata is read from LDNP_META_<KEY> and LDNP_META_<DEB|RPM>_<KEY>.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case opts.pluginType:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), pluginType)
				return err
			case opts.pluginAPIVersion:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), pluginAPIVersion)
				return err
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			configureLogging(v)

			cfg, err := buildConfig(v, opts)
			if err != nil {
				return err
			}

			paths, err := packager.Run(ctx, cfg)
			if err != nil {
				logger.ErrorKV(ctx, "Packaging failed", "error", err)
				return err
			}

			for _, path := range paths {
				if _, err = fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
					return err
				}
			}

			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagAppDir, "", "path to the AppDir to package")
	flags.StringSlice(flagBuild, nil, "package types to build: deb, rpm (repeatable)")
	flags.String(flagOutputDir, config.DefaultOutputDir, "directory the packages are written to")
	flags.String(flagStagingDir, "", "working directory for the packaging tools (default: temporary)")
	flags.Bool(flagKeepStaging, false, "keep the temporary staging directory")
	flags.Bool(flagOverwrite, false, "replace existing packages in the output directory")
	flags.Bool(flagSign, false, "sign the packages with dpkg-sig or rpmsign")
	flags.String(flagGPGKey, "", "GPG key used for signing")
	flags.String(flagArch, "", "host architecture name, e.g. x86_64 (default: this machine)")
	flags.StringArrayVar(&opts.meta, flagMeta, nil, "metadata override key=value (repeatable)")
	flags.String(flagEnvFile, "", "dotenv file with LDNP_META_* entries")
	flags.StringP(flagConfig, "c", "", "path to a YAML configuration file")
	flags.Bool(flagDebug, false, "enable debug logging")
	flags.String(flagLogLevel, "info", "log level: debug, info, warn, error")

	rootCmd.Flags().BoolVar(&opts.pluginType, "plugin-type", false, "show plugin type and exit")
	rootCmd.Flags().BoolVar(&opts.pluginAPIVersion, "plugin-api-version", false, "show plugin API version and exit")

	// Binding only fails for nil flags.
	_ = v.BindPFlags(flags)
	_ = v.BindEnv(flagDebug, "DEBUG", envPrefix+"_DEBUG")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(newConfigCommand(v, opts))

	return rootCmd
}

// configureLogging applies --log-level and --debug to the global logger.
func configureLogging(v *viper.Viper) {
	level, ok := logger.ParseLogLevel(v.GetString(flagLogLevel))
	if !ok {
		logger.Logger().Warnw("Unknown log level, using info", "level", v.GetString(flagLogLevel))
	}

	if v.GetBool(flagDebug) {
		level = zapcore.DebugLevel
	}

	logger.SetLevel(level)
}

// buildConfig layers flags and environment over the optional config file.
func buildConfig(v *viper.Viper, opts *options) (*config.Config, error) {
	cfg := config.Default()

	if path := v.GetString(flagConfig); path != "" {
		var err error

		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if v.IsSet(flagAppDir) {
		cfg.AppDir = v.GetString(flagAppDir)
	}

	if v.IsSet(flagBuild) {
		cfg.Builds = splitList(v.GetStringSlice(flagBuild))
	}

	if v.IsSet(flagOutputDir) {
		cfg.OutputDir = v.GetString(flagOutputDir)
	}

	if v.IsSet(flagStagingDir) {
		cfg.StagingDir = v.GetString(flagStagingDir)
	}

	if v.IsSet(flagArch) {
		cfg.HostArch = v.GetString(flagArch)
	}

	if v.IsSet(flagGPGKey) {
		cfg.GPGKey = v.GetString(flagGPGKey)
	}

	cfg.KeepStaging = cfg.KeepStaging || v.GetBool(flagKeepStaging)
	cfg.Overwrite = cfg.Overwrite || v.GetBool(flagOverwrite)
	cfg.Sign = cfg.Sign || v.GetBool(flagSign)

	meta, err := parseMeta(opts.meta)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if cfg.Metadata == nil {
			cfg.Metadata = make(map[string]string, len(meta))
		}

		maps.Copy(cfg.Metadata, meta)
	}

	env, err := environment(v.GetString(flagEnvFile))
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvironment(env)

	return cfg, nil
}

// environment returns the process environment on top of the optional dotenv file.
func environment(envFile string) (map[string]string, error) {
	env := make(map[string]string)

	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}

		maps.Copy(env, fileEnv)
	}

	for _, entry := range os.Environ() {
		if key, value, ok := strings.Cut(entry, "="); ok {
			env[key] = value
		}
	}

	return env, nil
}

func parseMeta(values []string) (map[string]string, error) {
	meta := make(map[string]string, len(values))

	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidMeta, value)
		}

		meta[strings.ToLower(strings.TrimSpace(key))] = val
	}

	return meta, nil
}

// splitList accepts comma and whitespace separated lists.
func splitList(values []string) []string {
	var result []string

	for _, value := range values {
		result = append(result, strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})...)
	}

	return result
}
