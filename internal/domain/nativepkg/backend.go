package nativepkg

import (
	"fmt"
	"strings"
)

// Kind selects the native packaging backend.
type Kind uint8

const (
	// Debian builds .deb files with dpkg-deb.
	Debian Kind = iota + 1
	// RPM builds .rpm files with rpmbuild.
	RPM
)

// Relation maps a metadata key holding a package relationship to the manifest field it fills.
type Relation struct {
	// Key is the metadata key, for example "depends".
	Key string
	// Field is the manifest field name, for example "Depends" or "Requires".
	Field string
}

// Backend describes everything that differs between the supported packaging tools.
// The pipeline is identical for all backends and only consumes this descriptor.
type Backend struct {
	// Kind is the variant tag.
	Kind Kind
	// Name is the short name used on the command line ("deb" or "rpm").
	Name string
	// EnvPrefix selects backend-specific metadata variables (LDNP_META_<EnvPrefix>_<KEY>).
	EnvPrefix string
	// Extension is the artifact file extension including the dot.
	Extension string
	// Template is the path of the manifest template inside the template filesystem.
	Template string
	// ManifestName is the file name the backend expects the manifest under.
	ManifestName string
	// FilenamePattern is the canonical output name; {key} placeholders refer to metadata keys.
	FilenamePattern string
	// Command is the default packaging executable.
	Command string
	// ListDirectories reports whether owned directories must be declared in the manifest.
	ListDirectories bool
	// Relations lists relationship fields in manifest order.
	Relations []Relation
	// Defaults holds documented fallback values applied by the resolver.
	Defaults map[string]string

	arch map[string]string
}

// ParseKind converts a backend name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deb":
		return Debian, nil
	case "rpm":
		return RPM, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// String returns the backend short name.
func (k Kind) String() string {
	switch k {
	case Debian:
		return "deb"
	case RPM:
		return "rpm"
	default:
		return "unknown"
	}
}

// Backend returns the descriptor for the kind.
func (k Kind) Backend() Backend {
	switch k {
	case Debian:
		return debianBackend()
	case RPM:
		return rpmBackend()
	default:
		return Backend{Kind: k, Name: k.String()}
	}
}

// Architecture maps a host instruction-set name to the backend's architecture vocabulary.
func (b Backend) Architecture(hostArch string) (string, error) {
	arch, ok := b.arch[strings.ToLower(strings.TrimSpace(hostArch))]
	if !ok {
		return "", fmt.Errorf("%w: %q for %s", ErrUnsupportedArchitecture, hostArch, b.Name)
	}

	return arch, nil
}

func debianBackend() Backend {
	return Backend{
		Kind:            Debian,
		Name:            "deb",
		EnvPrefix:       "DEB",
		Extension:       ".deb",
		Template:        "deb/control.tmpl",
		ManifestName:    "control",
		FilenamePattern: "{name}-{version}-{architecture}.deb",
		Command:         "dpkg-deb",
		ListDirectories: false,
		Relations: []Relation{
			{Key: KeyDepends, Field: "Depends"},
			{Key: KeyPreDepends, Field: "Pre-Depends"},
			{Key: KeyRecommends, Field: "Recommends"},
			{Key: KeySuggests, Field: "Suggests"},
			{Key: KeyConflicts, Field: "Conflicts"},
			{Key: KeyProvides, Field: "Provides"},
			{Key: KeyReplaces, Field: "Replaces"},
			{Key: KeyBreaks, Field: "Breaks"},
			{Key: KeyEnhances, Field: "Enhances"},
		},
		Defaults: map[string]string{
			KeyMaintainer: "Unknown Maintainer <unknown@localhost>",
			KeySection:    "misc",
			KeyPriority:   "optional",
		},
		arch: debianArchitectures,
	}
}

func rpmBackend() Backend {
	return Backend{
		Kind:            RPM,
		Name:            "rpm",
		EnvPrefix:       "RPM",
		Extension:       ".rpm",
		Template:        "rpm/package.spec.tmpl",
		ManifestName:    "package.spec",
		FilenamePattern: "{name}-{version}-{release}.{architecture}.rpm",
		Command:         "rpmbuild",
		ListDirectories: true,
		Relations: []Relation{
			{Key: KeyDepends, Field: "Requires"},
			{Key: KeyRecommends, Field: "Recommends"},
			{Key: KeySuggests, Field: "Suggests"},
			{Key: KeyConflicts, Field: "Conflicts"},
			{Key: KeyProvides, Field: "Provides"},
			{Key: KeyReplaces, Field: "Obsoletes"},
			{Key: KeyEnhances, Field: "Enhances"},
		},
		Defaults: map[string]string{
			KeyRelease: "1",
			KeyLicense: "Unknown",
		},
		arch: rpmArchitectures,
	}
}
