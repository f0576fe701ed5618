// Package resolver merges package metadata from explicit overrides,
// LDNP_META_* environment-style inputs, AppDir facts and backend defaults
// into one canonical nativepkg.Metadata map.
package resolver
