package nativepkg

import (
	"maps"
	"slices"
	"strings"
)

// Metadata keys understood by the manifest templates.
const (
	KeyPackageName      = "package_name"
	KeyVersion          = "version"
	KeyRelease          = "release"
	KeyArchitecture     = "architecture"
	KeyMaintainer       = "maintainer"
	KeyPackager         = "packager"
	KeyVendor           = "vendor"
	KeyLicense          = "license"
	KeyHomepage         = "homepage"
	KeyGroup            = "group"
	KeySection          = "section"
	KeyPriority         = "priority"
	KeyDescription      = "description"
	KeyShortDescription = "short_description"
	KeyDepends          = "depends"
	KeyPreDepends       = "pre_depends"
	KeyRecommends       = "recommends"
	KeySuggests         = "suggests"
	KeyConflicts        = "conflicts"
	KeyProvides         = "provides"
	KeyReplaces         = "replaces"
	KeyBreaks           = "breaks"
	KeyEnhances         = "enhances"
	KeyInstalledSize    = "installed_size"
	KeyFilenamePrefix   = "filename_prefix"
)

// Vocabulary returns every recognized metadata key in a fixed order.
func Vocabulary() []string {
	return []string{
		KeyPackageName,
		KeyVersion,
		KeyRelease,
		KeyArchitecture,
		KeyMaintainer,
		KeyPackager,
		KeyVendor,
		KeyLicense,
		KeyHomepage,
		KeyGroup,
		KeySection,
		KeyPriority,
		KeyDescription,
		KeyShortDescription,
		KeyDepends,
		KeyPreDepends,
		KeyRecommends,
		KeySuggests,
		KeyConflicts,
		KeyProvides,
		KeyReplaces,
		KeyBreaks,
		KeyEnhances,
		KeyInstalledSize,
		KeyFilenamePrefix,
	}
}

// RequiredKeys lists the fields every backend needs before rendering.
func RequiredKeys() []string {
	return []string{KeyPackageName, KeyVersion, KeyArchitecture}
}

// Metadata is the resolved field map for one package build.
// Keys are lower-case; unknown keys are kept but ignored by templates.
type Metadata map[string]string

// Get returns the value stored under key, or an empty string.
func (m Metadata) Get(key string) string {
	return m[strings.ToLower(key)]
}

// Keys returns the stored keys in sorted order.
func (m Metadata) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// String renders the map as sorted key=value lines.
func (m Metadata) String() string {
	var builder strings.Builder

	for _, key := range m.Keys() {
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(m[key])
		builder.WriteByte('\n')
	}

	return builder.String()
}
