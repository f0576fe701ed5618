package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
)

// Config holds everything one packaging run needs.
type Config struct {
	// AppDir is the path of the AppDir to package.
	AppDir string `yaml:"appdir"`
	// Builds lists the requested backends ("deb", "rpm") in build order.
	Builds []string `yaml:"build"`
	// OutputDir is where finished packages are placed.
	OutputDir string `yaml:"output_dir"`
	// StagingDir is the working directory for the backend; a temporary one is used when empty.
	StagingDir string `yaml:"staging_dir,omitempty"`
	// KeepStaging keeps the staging directory after the run for debugging.
	KeepStaging bool `yaml:"keep_staging,omitempty"`
	// Overwrite allows replacing existing packages in OutputDir.
	Overwrite bool `yaml:"overwrite,omitempty"`
	// Sign enables signing the produced packages.
	Sign bool `yaml:"sign,omitempty"`
	// GPGKey selects the signing key; the signer picks one when empty.
	GPGKey string `yaml:"gpg_key,omitempty"`
	// HostArch is the host instruction-set name used for architecture mapping.
	HostArch string `yaml:"host_arch"`
	// Metadata holds explicit metadata overrides (highest precedence).
	Metadata map[string]string `yaml:"metadata,omitempty"`
	// DebianExtraFiles are copied into the DEBIAN control directory (maintainer scripts).
	DebianExtraFiles []string `yaml:"debian_extra_files,omitempty"`
	// RPMScriptlets maps scriptlet types to script files.
	RPMScriptlets map[string]string `yaml:"rpm_scriptlets,omitempty"`
	// Tools overrides the external executables.
	Tools Tools `yaml:"tools,omitempty"`
	// Environment holds environment-style metadata inputs (LDNP_META_*).
	// It is filled at runtime by the CLI and is not persisted.
	Environment map[string]string `yaml:"-"`
}

// Tools holds the paths or names of the external executables.
type Tools struct {
	DpkgDeb  string `yaml:"dpkg_deb,omitempty"`
	RPMBuild string `yaml:"rpmbuild,omitempty"`
	DpkgSig  string `yaml:"dpkg_sig,omitempty"`
	RPMSign  string `yaml:"rpmsign,omitempty"`
	GPG      string `yaml:"gpg,omitempty"`
}

const (
	// DefaultOutputDir is used when no output directory is configured.
	DefaultOutputDir = "."

	// DefaultFilePermissions is the permission for saved config files.
	DefaultFilePermissions = 0o600

	// EnvDebianExtraFiles lists extra DEBIAN control files separated by ";".
	EnvDebianExtraFiles = "LDNP_DEB_EXTRA_DEBIAN_FILES"
	// EnvRPMScriptletPrefix is followed by a scriptlet type and names a script file.
	EnvRPMScriptletPrefix = "LDNP_RPM_SCRIPTLET_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAppDirRequired is returned when no AppDir is configured.
	errAppDirRequired = errors.New("appdir must be provided")
	// errAppDirNotDirectory is returned when the AppDir path is not a directory.
	errAppDirNotDirectory = errors.New("appdir is not a directory")
	// errBuildRequired is returned when no backend is requested.
	errBuildRequired = errors.New("at least one build type must be provided")
	// errUnknownScriptlet is returned for scriptlet types rpm does not know.
	errUnknownScriptlet = errors.New("unknown rpm scriptlet type")
)

// Default returns a configuration with defaults for the current host.
func Default() *Config {
	return &Config{
		OutputDir: DefaultOutputDir,
		HostArch:  nativepkg.HostArch(runtime.GOARCH),
	}
}

// Load reads configuration from the provided path on top of Default.
// Validation is left to the caller because flags may still complete the config.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return data, nil
}

// Validate checks required fields, normalizes values and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.AppDir == "" {
		return errAppDirRequired
	}

	info, err := os.Stat(cfg.AppDir)
	if err != nil {
		return fmt.Errorf("stat appdir: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", cfg.AppDir, errAppDirNotDirectory)
	}

	if cfg.AppDir, err = filepath.Abs(cfg.AppDir); err != nil {
		return fmt.Errorf("resolve appdir: %w", err)
	}

	// A symlinked AppDir is packaged from its real location.
	if cfg.AppDir, err = filepath.EvalSymlinks(cfg.AppDir); err != nil {
		return fmt.Errorf("resolve appdir: %w", err)
	}

	if len(cfg.Builds) == 0 {
		return errBuildRequired
	}

	builds := make([]string, 0, len(cfg.Builds))
	for _, name := range cfg.Builds {
		kind, err := nativepkg.ParseKind(name)
		if err != nil {
			return err
		}

		if !slices.Contains(builds, kind.String()) {
			builds = append(builds, kind.String())
		}
	}

	cfg.Builds = builds

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	if cfg.HostArch == "" {
		cfg.HostArch = nativepkg.HostArch(runtime.GOARCH)
	}

	for _, scriptletType := range slices.Sorted(maps.Keys(cfg.RPMScriptlets)) {
		if !slices.Contains(nativepkg.ScriptletTypes(), strings.ToLower(scriptletType)) {
			return fmt.Errorf("%w: %s", errUnknownScriptlet, scriptletType)
		}
	}

	return nil
}

// ApplyEnvironment stores env as the environment-style metadata input and
// takes extra DEBIAN files and rpm scriptlets from it. Environment values win
// over the config file.
func (c *Config) ApplyEnvironment(env map[string]string) {
	c.Environment = env

	if value := env[EnvDebianExtraFiles]; value != "" {
		c.DebianExtraFiles = c.DebianExtraFiles[:0]

		for _, path := range strings.Split(value, ";") {
			if path = strings.TrimSpace(path); path != "" {
				c.DebianExtraFiles = append(c.DebianExtraFiles, path)
			}
		}
	}

	for _, scriptletType := range nativepkg.ScriptletTypes() {
		value := env[EnvRPMScriptletPrefix+scriptletType]
		if value == "" {
			value = env[EnvRPMScriptletPrefix+strings.ToUpper(scriptletType)]
		}

		if value == "" {
			continue
		}

		if c.RPMScriptlets == nil {
			c.RPMScriptlets = make(map[string]string)
		}

		c.RPMScriptlets[scriptletType] = value
	}
}

// Kinds returns the validated backend kinds in build order.
func (c *Config) Kinds() ([]nativepkg.Kind, error) {
	kinds := make([]nativepkg.Kind, 0, len(c.Builds))

	for _, name := range c.Builds {
		kind, err := nativepkg.ParseKind(name)
		if err != nil {
			return nil, err
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}

// Command returns the configured executable for the backend, or its default.
func (t Tools) Command(kind nativepkg.Kind) string {
	switch kind {
	case nativepkg.Debian:
		return firstNonEmpty(t.DpkgDeb, kind.Backend().Command)
	case nativepkg.RPM:
		return firstNonEmpty(t.RPMBuild, kind.Backend().Command)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
