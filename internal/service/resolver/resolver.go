package resolver

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
)

const (
	// EnvPrefix starts every environment-style metadata input.
	EnvPrefix = "LDNP_META_"

	// PlaceholderVersion is used when no source provides a version.
	PlaceholderVersion = "0.0.0"
)

// Sources are the metadata inputs in descending precedence.
type Sources struct {
	// Overrides are explicit values supplied by the invoking host.
	Overrides map[string]string
	// Environment holds raw environment variables; only LDNP_META_* entries are used.
	Environment map[string]string
	// Facts are values derived from the AppDir.
	Facts map[string]string
}

// Resolve produces the metadata for one backend.
// Every field is resolved on its own: override, then environment, then AppDir fact, then default.
func Resolve(ctx context.Context, backend nativepkg.Backend, hostArch string, src Sources) (nativepkg.Metadata, error) {
	layers := []nativepkg.Metadata{
		normalize(src.Overrides),
		fromEnvironment(backend, src.Environment),
		facts(src.Facts),
	}

	meta := make(nativepkg.Metadata)

	// Lowest precedence first so higher layers overwrite.
	for _, layer := range slices.Backward(layers) {
		for key, value := range layer {
			meta[key] = value
		}
	}

	if err := derive(ctx, backend, hostArch, meta); err != nil {
		return nil, err
	}

	for _, key := range nativepkg.RequiredKeys() {
		if meta[key] == "" {
			return nil, fmt.Errorf("%w: %s (backend %s)", nativepkg.ErrMissingRequiredField, key, backend.Name)
		}
	}

	return meta, nil
}

// derive fills computed fields and documented defaults.
func derive(ctx context.Context, backend nativepkg.Backend, hostArch string, meta nativepkg.Metadata) error {
	if meta[nativepkg.KeyVersion] == "" {
		meta[nativepkg.KeyVersion] = PlaceholderVersion
	}

	if backend.Kind == nativepkg.RPM {
		version := meta[nativepkg.KeyVersion]
		if fixed := strings.ReplaceAll(version, "-", "_"); fixed != version {
			logger.WarnKV(ctx, "Version number incompatible with rpm, replaced dashes",
				"version", version, "fixed_version", fixed)
			meta[nativepkg.KeyVersion] = fixed
		}

		if meta[nativepkg.KeyPackager] == "" && meta[nativepkg.KeyMaintainer] != "" {
			meta[nativepkg.KeyPackager] = meta[nativepkg.KeyMaintainer]
		}
	}

	if meta[nativepkg.KeyArchitecture] == "" {
		arch, err := backend.Architecture(hostArch)
		if err != nil {
			return err
		}

		meta[nativepkg.KeyArchitecture] = arch
	}

	for _, key := range slices.Sorted(maps.Keys(backend.Defaults)) {
		if meta[key] == "" {
			meta[key] = backend.Defaults[key]
		}
	}

	if meta[nativepkg.KeyShortDescription] == "" && meta[nativepkg.KeyPackageName] != "" {
		meta[nativepkg.KeyShortDescription] = meta[nativepkg.KeyPackageName]
	}

	if meta[nativepkg.KeyDescription] == "" {
		meta[nativepkg.KeyDescription] = meta[nativepkg.KeyShortDescription]
	}

	return nil
}

// fromEnvironment extracts LDNP_META_* variables. LDNP_META_<BACKEND>_<KEY>
// wins over LDNP_META_<KEY>; variables addressed to other backends are skipped.
// Names are visited in sorted order and the upper-case spelling of a name wins
// over mixed-case spellings of the same key.
func fromEnvironment(backend nativepkg.Backend, environ map[string]string) nativepkg.Metadata {
	var (
		generic  = make(nativepkg.Metadata)
		specific = make(nativepkg.Metadata)
		own      = EnvPrefix + backend.EnvPrefix + "_"
		others   = otherEnvPrefixes(backend)
	)

	for _, name := range slices.Sorted(maps.Keys(environ)) {
		value := environ[name]
		if !strings.HasPrefix(name, EnvPrefix) || value == "" {
			continue
		}

		canonical := name == strings.ToUpper(name)

		if strings.HasPrefix(name, own) {
			setKey(specific, strings.TrimPrefix(name, own), value, canonical)
			continue
		}

		if slices.ContainsFunc(others, func(prefix string) bool { return strings.HasPrefix(name, prefix) }) {
			continue
		}

		setKey(generic, strings.TrimPrefix(name, EnvPrefix), value, canonical)
	}

	maps.Copy(generic, specific)

	return generic
}

func otherEnvPrefixes(backend nativepkg.Backend) []string {
	var prefixes []string

	for _, kind := range []nativepkg.Kind{nativepkg.Debian, nativepkg.RPM} {
		if kind != backend.Kind {
			prefixes = append(prefixes, EnvPrefix+kind.Backend().EnvPrefix+"_")
		}
	}

	return prefixes
}

// normalize lower-cases keys and drops empty values so they fall through to lower layers.
// Keys are visited in sorted order and the lower-case spelling wins over mixed-case ones.
func normalize(values map[string]string) nativepkg.Metadata {
	result := make(nativepkg.Metadata, len(values))

	for _, key := range slices.Sorted(maps.Keys(values)) {
		if values[key] == "" {
			continue
		}

		trimmed := strings.TrimSpace(key)
		setKey(result, trimmed, values[key], trimmed == strings.ToLower(trimmed))
	}

	return result
}

// facts normalizes AppDir-derived values. The package name is derived from the
// application name and is sanitized; a name without usable characters is dropped.
func facts(values map[string]string) nativepkg.Metadata {
	result := normalize(values)

	if name, ok := result[nativepkg.KeyPackageName]; ok {
		if name = SanitizePackageName(name); name != "" {
			result[nativepkg.KeyPackageName] = name
		} else {
			delete(result, nativepkg.KeyPackageName)
		}
	}

	return result
}

// setKey stores value under the lower-cased key. An existing value is only
// replaced by a canonical spelling.
func setKey(meta nativepkg.Metadata, key, value string, canonical bool) {
	key = strings.ToLower(key)

	if _, ok := meta[key]; ok && !canonical {
		return
	}

	meta[key] = value
}

// SanitizePackageName lower-cases name and strips characters not allowed in
// package names. The result starts with a letter or digit.
func SanitizePackageName(name string) string {
	var builder strings.Builder

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '+' || r == '-' || r == '.':
			if builder.Len() > 0 {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}
